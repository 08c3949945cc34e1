package main

import (
	"strings"
	"sync"

	"github.com/signalsfoundry/switchboard-simulator/internal/exchange"
	"github.com/signalsfoundry/switchboard-simulator/model"
)

// autopilot is a minimal automatic operator for headless demo runs. It
// answers one call at a time on a single console, driven purely by the
// core's outbound events: an incoming lamp makes it plug in and listen, the
// caller's greeting tells it which line to ring.
//
// Listener callbacks run inside the session's lock, so the autopilot only
// queues actions there; Flush applies them from the tick loop.
type autopilot struct {
	session *exchange.Session
	console string

	mu      sync.Mutex
	pending []func()
	busy    bool
	armed   bool
	current model.LineID
}

// bind attaches the session the autopilot operates. Must be called before
// the session starts.
func (a *autopilot) bind(session *exchange.Session) {
	a.session = session
	a.console = session.ConsoleIDs()[0]
}

// Flush applies queued operator actions. Called after every Pump.
func (a *autopilot) Flush() {
	a.mu.Lock()
	actions := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, f := range actions {
		f()
	}
}

func (a *autopilot) queue(f func()) {
	a.mu.Lock()
	a.pending = append(a.pending, f)
	a.mu.Unlock()
}

func (a *autopilot) LightStateChanged(line model.LineID, on bool) {
	if !on {
		return
	}
	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		return
	}
	a.busy = true
	a.current = line
	armed := a.armed
	a.armed = true
	a.mu.Unlock()

	lineID := line
	a.queue(func() {
		if !armed {
			// Engage the listening circuit once, on the first call.
			a.session.ConsoleToggleMonitor(a.console)
		}
		a.session.ConsoleGrab(a.console, exchange.SourceEnd)
		a.session.ConsoleMove(a.console, &lineID)
		a.session.ConsoleRelease(a.console)
	})
}

func (a *autopilot) SpeechRevealed(speaker model.Speaker, text string) {
	if speaker != model.SpeakerCaller || !strings.HasPrefix(text, "Hello, put me through to ") {
		return
	}
	fields := strings.Fields(text)
	target, err := model.ParseLineID(fields[len(fields)-1])
	if err != nil {
		return
	}
	a.queue(func() {
		a.session.ConsoleGrab(a.console, exchange.DestinationEnd)
		a.session.ConsoleMove(a.console, &target)
		a.session.ConsoleRelease(a.console)
		a.session.ConsoleRing(a.console)
	})
}

func (a *autopilot) CallResolved(record model.CallRecord) {
	a.mu.Lock()
	if a.busy && record.Source != a.current {
		// Some other call timed out; ours is still live.
		a.mu.Unlock()
		return
	}
	a.busy = false
	a.mu.Unlock()

	a.queue(func() {
		a.session.ConsoleUnplug(a.console, exchange.SourceEnd)
		a.session.ConsoleUnplug(a.console, exchange.DestinationEnd)
	})
}

func (a *autopilot) CableVisualMoved(string, exchange.CableEndKind, *model.LineID) {}
func (a *autopilot) IndicatorToggled(string, exchange.Indicator, bool)            {}
func (a *autopilot) SecondsRemaining(int)                                         {}
func (a *autopilot) SessionEnded(model.ScoreSummary)                              {}
