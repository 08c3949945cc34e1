package exchange

import "github.com/signalsfoundry/switchboard-simulator/model"

// Line is a single addressable endpoint on the switchboard: one jack that
// can carry at most one call and hold at most one console cable end.
// Lines are session-scoped; calls come and go on top of them.
type Line struct {
	id model.LineID

	// occupiedBy is the call currently using this line, if any.
	occupiedBy *Call
	// expected is set once a call has targeted this line as its
	// destination but not yet connected. It prevents double-targeting.
	expected bool

	// patchedBy records which console end currently occupies the jack.
	// The console owns the plug action; the line only records the relation.
	patchedBy  *Console
	patchedEnd CableEndKind
}

// NewLine constructs an idle line.
func NewLine(id model.LineID) *Line {
	return &Line{id: id}
}

// ID returns the line's grid identifier.
func (l *Line) ID() model.LineID { return l.id }

// Occupant returns the call currently on the line, or nil.
func (l *Line) Occupant() *Call { return l.occupiedBy }

// Expected reports whether a pending call has targeted this line.
func (l *Line) Expected() bool { return l.expected }

// Patched reports whether a console cable end occupies the jack.
func (l *Line) Patched() bool { return l.patchedBy != nil }

// Free reports whether the line can carry a new call.
func (l *Line) Free() bool { return l.occupiedBy == nil && !l.expected }

// AssignCaller marks the line as carrying the given call's source side.
func (l *Line) AssignCaller(c *Call) {
	l.occupiedBy = c
}

// AssignExpected reserves the line as an upcoming call's destination.
func (l *Line) AssignExpected() {
	l.expected = true
}

// Release clears both occupancy and reservation. It is called exactly once,
// by the owning call's resolution step.
func (l *Line) Release() {
	l.occupiedBy = nil
	l.expected = false
}

// Patch binds a console cable end to the jack. It reports false without any
// state change when the jack is already occupied by a cable.
func (l *Line) Patch(console *Console, end CableEndKind) bool {
	if l.patchedBy != nil {
		return false
	}
	l.patchedBy = console
	l.patchedEnd = end
	return true
}

// Unpatch removes the cable from the jack. Physically unplugging a line
// that carries a call ends it: the occupying call is disconnected.
func (l *Line) Unpatch() {
	if l.patchedBy == nil {
		return
	}
	l.patchedBy = nil

	if l.occupiedBy != nil {
		l.occupiedBy.Disconnect()
	}
}
