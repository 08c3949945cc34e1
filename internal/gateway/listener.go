package gateway

import (
	"github.com/signalsfoundry/switchboard-simulator/internal/exchange"
	"github.com/signalsfoundry/switchboard-simulator/model"
)

// The gateway doubles as the session's presentation listener: every core
// event is fanned out to the connected operator clients as JSON.
var _ exchange.Listener = (*Gateway)(nil)

func (g *Gateway) LightStateChanged(line model.LineID, on bool) {
	g.broadcast(outbound{Type: "light", Line: line.String(), On: &on})
}

func (g *Gateway) SpeechRevealed(speaker model.Speaker, text string) {
	g.broadcast(outbound{Type: "speech", Speaker: speaker.String(), Text: text})
}

func (g *Gateway) CallResolved(record model.CallRecord) {
	rec := record
	g.broadcast(outbound{Type: "call_resolved", Record: &rec})
}

func (g *Gateway) CableVisualMoved(consoleID string, end exchange.CableEndKind, line *model.LineID) {
	out := outbound{Type: "cable_moved", Console: consoleID, End: end.String()}
	if line != nil {
		out.Line = line.String()
	}
	g.broadcast(out)
}

func (g *Gateway) IndicatorToggled(consoleID string, indicator exchange.Indicator, on bool) {
	g.broadcast(outbound{Type: "indicator", Console: consoleID, Indicator: string(indicator), On: &on})
}

func (g *Gateway) SecondsRemaining(n int) {
	secs := n
	g.broadcast(outbound{Type: "seconds_remaining", Seconds: &secs})
}

func (g *Gateway) SessionEnded(summary model.ScoreSummary) {
	sum := summary
	g.broadcast(outbound{Type: "session_ended", Summary: &sum})
}
