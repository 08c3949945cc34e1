package exchange

import "github.com/signalsfoundry/switchboard-simulator/model"

// CableEndKind identifies one of a console's two cable ends.
type CableEndKind int

const (
	// SourceEnd is the cable plugged into the calling party's line.
	SourceEnd CableEndKind = iota
	// DestinationEnd is the cable plugged into the called party's line.
	DestinationEnd
)

func (k CableEndKind) String() string {
	if k == DestinationEnd {
		return "destination"
	}
	return "source"
}

// Indicator names a console lamp or switch surfaced to the presentation layer.
type Indicator string

const (
	IndicatorSource      Indicator = "source"
	IndicatorDestination Indicator = "destination"
	IndicatorMonitor     Indicator = "monitor"
)

// Listener receives outbound notifications from the core. Implementations
// map them to visuals, audio or a wire protocol; the core never expects a
// return value and never blocks on them.
type Listener interface {
	// LightStateChanged reports a jack lamp turning on or off.
	LightStateChanged(line model.LineID, on bool)

	// SpeechRevealed reports conversation text becoming audible to the
	// operator. Text is the portion of the current utterance revealed so
	// far.
	SpeechRevealed(speaker model.Speaker, text string)

	// CallResolved reports a call reaching its terminal state.
	CallResolved(record model.CallRecord)

	// CableVisualMoved reports a held cable end hovering over a line,
	// or over nothing when line is nil.
	CableVisualMoved(consoleID string, end CableEndKind, line *model.LineID)

	// IndicatorToggled reports a console lamp or switch changing state.
	IndicatorToggled(consoleID string, indicator Indicator, on bool)

	// SecondsRemaining reports the session countdown once per tick.
	SecondsRemaining(n int)

	// SessionEnded reports the final score when the shift is over.
	SessionEnded(summary model.ScoreSummary)
}

// NopListener discards all notifications. It is the default when no
// presentation layer is attached.
type NopListener struct{}

func (NopListener) LightStateChanged(model.LineID, bool)                 {}
func (NopListener) SpeechRevealed(model.Speaker, string)                 {}
func (NopListener) CallResolved(model.CallRecord)                        {}
func (NopListener) CableVisualMoved(string, CableEndKind, *model.LineID) {}
func (NopListener) IndicatorToggled(string, Indicator, bool)             {}
func (NopListener) SecondsRemaining(int)                                 {}
func (NopListener) SessionEnded(model.ScoreSummary)                      {}

// MetricsRecorder lets the session drive observability gauges and counters
// without depending on a concrete metrics implementation.
type MetricsRecorder interface {
	CallReceived()
	CallResolved(record model.CallRecord)
	SetActiveCalls(n int)
	SetPendingEvents(n int)
	SetSecondsRemaining(n int)
}
