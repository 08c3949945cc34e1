package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/switchboard-simulator/internal/logging"
	"github.com/signalsfoundry/switchboard-simulator/model"
)

// Call is the state machine for one telephone call: a caller on a source
// line asking to be patched through to a destination line. It is created by
// the session controller, mutated only by console actions and scheduler
// callbacks, and resolved exactly once.
//
// A call owns at most one live scheduler handle at any instant. Every
// transition that arms a timer cancels the previous one first; this is the
// invariant that keeps stale timeouts from firing after the state has moved
// on.
type Call struct {
	id      string
	session *Session

	state       model.CallState
	source      *Line
	destination *Line

	greeting string
	script   *model.Script

	createdAt   time.Time
	connectedAt time.Time
	resolvedAt  time.Time

	outcome   model.Outcome
	answered  bool
	connected bool
	dropped   bool
	complete  bool

	// monitored mirrors the answering console's monitor switch; it gates
	// whether conversation text is surfaced, never the playback itself.
	monitored bool

	// timer is the single live scheduler handle owned by this call.
	// Empty when no timer is armed.
	timer string

	// Conversation playback position.
	current      model.Utterance
	currentWords []string
	wordIdx      int
}

// newCall claims the source and destination lines, lights the caller's lamp
// and starts the caller's patience clock. The session lock is held.
func newCall(s *Session, source, destination *Line, utterances []model.Utterance) *Call {
	c := &Call{
		id:          uuid.NewString(),
		session:     s,
		state:       model.CallRinging,
		source:      source,
		destination: destination,
		greeting:    fmt.Sprintf("Hello, put me through to %s", destination.ID()),
		script:      model.NewScript(utterances),
		createdAt:   s.sched.Now(),
		outcome:     model.OutcomePending,
	}

	source.AssignCaller(c)
	destination.AssignExpected()
	s.listener.LightStateChanged(source.ID(), true)

	c.armTimer(s.cfg.OperatorPatience.Draw(s.rng), c.giveUpWaitingOperator)
	return c
}

// ID returns the call's identifier.
func (c *Call) ID() string { return c.id }

// State returns the call's current lifecycle state.
func (c *Call) State() model.CallState { return c.state }

// Outcome returns the final disposition, OutcomePending until resolved.
func (c *Call) Outcome() model.Outcome { return c.outcome }

// armTimer cancels any live timer before arming a new one, preserving the
// one-timer-per-call invariant.
func (c *Call) armTimer(d time.Duration, f func()) {
	if c.timer != "" {
		c.session.sched.Cancel(c.timer)
	}
	c.timer = c.session.sched.ScheduleAfter(d, f)
}

func (c *Call) clearTimer() {
	if c.timer != "" {
		c.session.sched.Cancel(c.timer)
		c.timer = ""
	}
}

// OperatorListening is raised when the operator plugs into the caller's
// line, and again whenever the monitor switch is toggled while the plug is
// in. It may be invoked repeatedly; only the first invocation advances the
// state, later ones replay the greeting or toggle conversation visibility.
func (c *Call) OperatorListening(isMonitoring bool) {
	if c.complete {
		return
	}

	c.monitored = isMonitoring

	switch c.state {
	case model.CallRinging:
		c.state = model.CallAwaitingOperator
		c.answered = true
		c.session.listener.LightStateChanged(c.source.ID(), false)
		c.speak(model.SpeakerCaller, c.greeting)
		// The connect clock replaces the patience clock.
		c.armTimer(c.session.cfg.ConnectPatience.Draw(c.session.rng), c.giveUpWaitingConnect)
	case model.CallAwaitingOperator:
		// Repeat invocation: replay the greeting without touching the
		// timer. Re-arming here would hand the caller extra patience.
		c.speak(model.SpeakerCaller, c.greeting)
	case model.CallAwaitingConnection, model.CallConnected:
		// Playback continues unaffected; only visibility changed.
	}
}

// DestinationRung is raised when the operator cranks the ringer with both
// cables patched. Ringing any line other than the one the caller asked for
// fails the call immediately; ringing before the call was answered is an
// out-of-order action and is ignored.
func (c *Call) DestinationRung(target *Line) {
	if c.complete || c.state != model.CallAwaitingOperator {
		return
	}

	if target != c.destination {
		c.session.log.Debug(context.Background(), "wrong destination rung",
			logging.String("call_id", c.id),
			logging.String("rung", target.ID().String()),
			logging.String("wanted", c.destination.ID().String()),
		)
		c.resolve(false)
		return
	}

	c.state = model.CallAwaitingConnection
	c.session.listener.LightStateChanged(c.destination.ID(), true)
	c.armTimer(c.session.cfg.RingDelay.Draw(c.session.rng), c.destinationPickedUp)
}

// Disconnect is the explicit failure path: the operator pulled a cable while
// the call was live. Whatever timer is pending is cancelled before the call
// resolves.
func (c *Call) Disconnect() {
	if c.complete {
		return
	}
	c.dropped = true
	c.resolve(false)
}

// giveUpWaitingOperator fires when the caller's patience runs out before the
// operator answers.
func (c *Call) giveUpWaitingOperator() {
	if c.complete || c.state != model.CallRinging {
		return
	}
	c.timer = ""
	c.resolve(false)
}

// giveUpWaitingConnect fires when the caller hangs up waiting for the
// destination to be rung.
func (c *Call) giveUpWaitingConnect() {
	if c.complete || c.state != model.CallAwaitingOperator {
		return
	}
	c.timer = ""
	c.resolve(false)
}

// destinationPickedUp fires after the ring delay: the callee answers and
// the conversation starts.
func (c *Call) destinationPickedUp() {
	if c.complete || c.state != model.CallAwaitingConnection {
		return
	}
	c.timer = ""

	c.state = model.CallConnected
	c.connected = true
	c.connectedAt = c.session.sched.Now()
	c.destination.AssignCaller(c)
	c.destination.expected = false
	c.session.listener.LightStateChanged(c.destination.ID(), false)

	c.beginNextUtterance()
}

// beginNextUtterance pulls the next scripted line and starts revealing it
// word by word. Utterances with no words are skipped; an exhausted script
// means the parties said their goodbyes and the call succeeded.
func (c *Call) beginNextUtterance() {
	for {
		utterance, ok := c.script.Next()
		if !ok {
			c.resolve(true)
			return
		}
		words := strings.Fields(utterance.Text)
		if len(words) == 0 {
			continue
		}
		c.current = utterance
		c.currentWords = words
		c.wordIdx = 0
		c.armTimer(c.session.cfg.WordReveal.Std(), c.revealWord)
		return
	}
}

// revealWord surfaces one more word of the current utterance, then either
// schedules the next word, pauses before the next speaker's turn, or winds
// the call up when the script is spent.
func (c *Call) revealWord() {
	if c.complete || c.state != model.CallConnected {
		return
	}
	c.timer = ""

	c.wordIdx++
	c.speak(c.current.Speaker, strings.Join(c.currentWords[:c.wordIdx], " "))

	if c.wordIdx < len(c.currentWords) {
		c.armTimer(c.session.cfg.WordReveal.Std(), c.revealWord)
		return
	}

	if c.script.Remaining() == 0 {
		c.resolve(true)
		return
	}
	c.armTimer(c.session.cfg.UtterancePause.Std(), func() {
		if c.complete || c.state != model.CallConnected {
			return
		}
		c.timer = ""
		c.beginNextUtterance()
	})
}

// speak surfaces conversation text when the operator's listening circuit is
// engaged.
func (c *Call) speak(speaker model.Speaker, text string) {
	if !c.monitored {
		return
	}
	c.session.listener.SpeechRevealed(speaker, text)
}

// forceComplete resolves a still-connected call as successful. The session
// controller uses it for bulk completion when the shift ends.
func (c *Call) forceComplete() {
	if c.complete || c.state != model.CallConnected {
		return
	}
	c.resolve(true)
}

// abandon fails a call that never connected, without marking it dropped.
// Used when the shift ends with the call still in progress.
func (c *Call) abandon() {
	if c.complete {
		return
	}
	c.resolve(false)
}

// resolve moves the call to its terminal state: cancels any live timer,
// releases both lines, records the outcome and hands the record to the
// session controller. Re-entry is a no-op.
func (c *Call) resolve(success bool) {
	if c.complete {
		return
	}
	c.complete = true
	c.state = model.CallResolved
	c.clearTimer()

	c.resolvedAt = c.session.sched.Now()
	if success {
		c.outcome = model.OutcomeSucceeded
	} else {
		c.outcome = model.OutcomeFailed
	}

	c.source.Release()
	c.destination.Release()
	c.session.listener.LightStateChanged(c.source.ID(), false)
	c.session.listener.LightStateChanged(c.destination.ID(), false)

	record := model.CallRecord{
		ID:          c.id,
		Source:      c.source.ID(),
		Destination: c.destination.ID(),
		CreatedAt:   c.createdAt,
		ResolvedAt:  c.resolvedAt,
		Outcome:     c.outcome,
		Answered:    c.answered,
		Connected:   c.connected,
		Dropped:     c.dropped,
		Transcript:  c.script.Consumed(),
	}
	if c.connected {
		record.WaitTime = c.connectedAt.Sub(c.createdAt)
	}

	c.session.listener.CallResolved(record)
	c.session.callResolved(c, record)
}
