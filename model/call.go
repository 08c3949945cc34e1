package model

import "time"

// CallState tracks where a call is in its lifecycle.
type CallState int

const (
	// CallRinging means the caller is on the line waiting for the operator
	// to plug in and listen.
	CallRinging CallState = iota
	// CallAwaitingOperator means the operator has answered and the caller
	// has stated the destination; the operator must now ring it.
	CallAwaitingOperator
	// CallAwaitingConnection means the destination has been rung and the
	// callee is walking to the phone.
	CallAwaitingConnection
	// CallConnected means both parties are talking.
	CallConnected
	// CallResolved is terminal; the call succeeded or failed.
	CallResolved
)

func (s CallState) String() string {
	switch s {
	case CallRinging:
		return "RINGING"
	case CallAwaitingOperator:
		return "AWAITING_OPERATOR"
	case CallAwaitingConnection:
		return "AWAITING_CONNECTION"
	case CallConnected:
		return "CONNECTED"
	case CallResolved:
		return "RESOLVED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the final disposition of a resolved call.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "SUCCEEDED"
	case OutcomeFailed:
		return "FAILED"
	default:
		return "PENDING"
	}
}

// CallRecord is the immutable summary of a resolved call, kept for
// scoring and for the end-of-shift report.
type CallRecord struct {
	ID          string
	Source      LineID
	Destination LineID
	CreatedAt   time.Time
	ResolvedAt  time.Time
	Outcome     Outcome
	Answered    bool
	Connected   bool
	Dropped     bool

	// WaitTime is how long the caller waited between placing the call and
	// being connected. Zero for calls that never connected.
	WaitTime time.Duration

	Transcript []Utterance
}
