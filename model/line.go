package model

import (
	"fmt"
	"strconv"
)

// LineID identifies a jack on the switchboard by its grid position.
// Columns are lettered, rows are numbered, so column 1 / row 2 is "B3"
// when printed (columns start at 'A', rows at 1).
type LineID struct {
	Col int
	Row int
}

// String renders the ID in exchange notation, e.g. "A1" or "C4".
func (id LineID) String() string {
	return fmt.Sprintf("%c%d", 'A'+rune(id.Col), id.Row+1)
}

// ParseLineID parses exchange notation back into a LineID.
func ParseLineID(s string) (LineID, error) {
	if len(s) < 2 {
		return LineID{}, fmt.Errorf("line id %q too short", s)
	}
	col := s[0]
	if col < 'A' || col > 'Z' {
		return LineID{}, fmt.Errorf("line id %q: column must be A-Z", s)
	}
	row, err := strconv.Atoi(s[1:])
	if err != nil || row < 1 {
		return LineID{}, fmt.Errorf("line id %q: bad row", s)
	}
	return LineID{Col: int(col - 'A'), Row: row - 1}, nil
}
