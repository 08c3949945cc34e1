package exchange

import (
	"testing"
	"time"

	"github.com/signalsfoundry/switchboard-simulator/model"
)

// seat drags a cable end into a line's jack in one go.
func seat(con *Console, kind CableEndKind, line *Line) {
	con.Grab(kind)
	con.MoveTo(line)
	con.Release()
}

func TestConsole_GrabOnlyStowedEndOneAtATime(t *testing.T) {
	s, _, _ := newTestSession(t, testConfig())
	con := s.consoles["console-1"]

	con.Grab(SourceEnd)
	if !con.holding || con.held != SourceEnd {
		t.Fatalf("grab did not pick up the source end")
	}

	// A second grab while holding is a mis-click.
	con.Grab(DestinationEnd)
	if con.held != SourceEnd {
		t.Fatalf("second grab replaced the held end")
	}

	// Releasing over open space springs the cable back.
	con.Release()
	if con.holding || con.source.line != nil {
		t.Fatalf("release over open space left state behind")
	}

	// A seated end cannot be grabbed again.
	seat(con, SourceEnd, s.byID[srcID])
	con.Grab(SourceEnd)
	if con.holding {
		t.Fatalf("grabbed a seated cable end")
	}
}

func TestConsole_SeatingSourceAnswersCall(t *testing.T) {
	s, _, rec := newTestSession(t, testConfig())
	con := s.consoles["console-1"]
	c := placeCall(t, s, srcID, dstID, shortScript)

	con.monitoring = true
	seat(con, SourceEnd, s.byID[srcID])

	if c.State() != model.CallAwaitingOperator {
		t.Fatalf("seating the source plug did not answer, state=%v", c.State())
	}
	if con.source.line != s.byID[srcID] {
		t.Fatalf("source end not recorded as seated")
	}
	last := rec.indicators[len(rec.indicators)-1]
	if last != (indicatorEvent{"console-1", IndicatorSource, true}) {
		t.Fatalf("expected source indicator on, got %+v", last)
	}
}

func TestConsole_BusyJackSpringsBack(t *testing.T) {
	s, _, _ := newTestSession(t, testConfig())
	first := s.consoles["console-1"]
	second := s.consoles["console-2"]
	line := s.byID[srcID]

	seat(first, SourceEnd, line)
	seat(second, SourceEnd, line)

	if second.source.line != nil {
		t.Fatalf("second console seated into an occupied jack")
	}
	if !line.Patched() || first.source.line != line {
		t.Fatalf("first console's plug was displaced")
	}
}

func TestConsole_RingRequiresBothEndsSeated(t *testing.T) {
	s, _, _ := newTestSession(t, testConfig())
	con := s.consoles["console-1"]
	c := placeCall(t, s, srcID, dstID, shortScript)

	seat(con, SourceEnd, s.byID[srcID])
	con.Ring() // destination end still stowed
	if c.State() != model.CallAwaitingOperator {
		t.Fatalf("ring carried with one cable loose, state=%v", c.State())
	}

	seat(con, DestinationEnd, s.byID[dstID])
	con.Ring()
	if c.State() != model.CallAwaitingConnection {
		t.Fatalf("ring with both ends seated did not carry, state=%v", c.State())
	}
}

func TestConsole_RingEmptySourceLineIsNoop(t *testing.T) {
	s, _, _ := newTestSession(t, testConfig())
	con := s.consoles["console-1"]

	// No call anywhere; both ends seated in idle jacks.
	seat(con, SourceEnd, s.byID[srcID])
	seat(con, DestinationEnd, s.byID[dstID])
	con.Ring()
}

func TestConsole_UnplugDisconnectsLiveCall(t *testing.T) {
	s, ms, rec := newTestSession(t, testConfig())
	con := s.consoles["console-1"]
	c := placeCall(t, s, srcID, dstID, shortScript)

	seat(con, SourceEnd, s.byID[srcID])
	seat(con, DestinationEnd, s.byID[dstID])
	con.Ring()
	ms.AdvanceBy(2 * time.Second)
	if c.State() != model.CallConnected {
		t.Fatalf("setup: call not connected, state=%v", c.State())
	}

	con.Unplug(SourceEnd)

	if c.Outcome() != model.OutcomeFailed || !rec.resolved[0].Dropped {
		t.Fatalf("unplugging a live call did not drop it: outcome=%v", c.Outcome())
	}
	if con.source.line != nil || s.byID[srcID].Patched() {
		t.Fatalf("cable still recorded as seated after unplug")
	}
	last := rec.indicators[len(rec.indicators)-1]
	if last != (indicatorEvent{"console-1", IndicatorSource, false}) {
		t.Fatalf("expected source indicator off, got %+v", last)
	}

	// Unplugging again is a mis-click.
	con.Unplug(SourceEnd)
	if len(rec.resolved) != 1 {
		t.Fatalf("double unplug resolved the call twice")
	}
}

func TestConsole_ToggleMonitorReplaysGreeting(t *testing.T) {
	s, _, rec := newTestSession(t, testConfig())
	con := s.consoles["console-1"]
	c := placeCall(t, s, srcID, dstID, shortScript)

	// Answer with the listening circuit off: the call advances silently.
	seat(con, SourceEnd, s.byID[srcID])
	if c.State() != model.CallAwaitingOperator {
		t.Fatalf("setup: call not answered, state=%v", c.State())
	}
	if len(rec.speech) != 0 {
		t.Fatalf("speech surfaced with the monitor off: %v", rec.speech)
	}

	con.ToggleMonitor()

	if !con.Monitoring() {
		t.Fatalf("monitor switch did not flip")
	}
	if len(rec.speech) != 1 || rec.speech[0].text != "Hello, put me through to B1" {
		t.Fatalf("expected greeting replay after monitor on, got %v", rec.speech)
	}
	found := false
	for _, ind := range rec.indicators {
		if ind == (indicatorEvent{"console-1", IndicatorMonitor, true}) {
			found = true
		}
	}
	if !found {
		t.Fatalf("monitor indicator event missing: %+v", rec.indicators)
	}
}
