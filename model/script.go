package model

// Speaker identifies which side of a connected call is talking.
type Speaker int

const (
	SpeakerCaller Speaker = iota
	SpeakerCallee
)

func (s Speaker) String() string {
	if s == SpeakerCallee {
		return "CALLEE"
	}
	return "CALLER"
}

// Utterance is a single line of conversation.
type Utterance struct {
	Speaker Speaker
	Text    string
}

// Script is a finite, non-restartable conversation: an immutable utterance
// sequence consumed front to back through a cursor.
type Script struct {
	utterances []Utterance
	cursor     int
}

// NewScript builds a script over a copy of the given utterances.
func NewScript(utterances []Utterance) *Script {
	copied := make([]Utterance, len(utterances))
	copy(copied, utterances)
	return &Script{utterances: copied}
}

// Len reports the total number of utterances in the script.
func (s *Script) Len() int { return len(s.utterances) }

// Remaining reports how many utterances have not been consumed yet.
func (s *Script) Remaining() int { return len(s.utterances) - s.cursor }

// Peek returns the utterance at the cursor without consuming it.
// The second return is false once the script is exhausted.
func (s *Script) Peek() (Utterance, bool) {
	if s.cursor >= len(s.utterances) {
		return Utterance{}, false
	}
	return s.utterances[s.cursor], true
}

// Next consumes and returns the utterance at the cursor.
func (s *Script) Next() (Utterance, bool) {
	u, ok := s.Peek()
	if ok {
		s.cursor++
	}
	return u, ok
}

// Consumed returns the utterances consumed so far, in order.
func (s *Script) Consumed() []Utterance {
	out := make([]Utterance, s.cursor)
	copy(out, s.utterances[:s.cursor])
	return out
}
