package exchange

import (
	"testing"
	"time"

	"github.com/signalsfoundry/switchboard-simulator/internal/sched"
	"github.com/signalsfoundry/switchboard-simulator/model"
)

// testConfig returns a session configuration with every randomized band
// collapsed to a fixed value, so timers fire at exactly predictable session
// times.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PortsX = 4
	cfg.PortsY = 3
	cfg.Consoles = 2
	cfg.SessionDuration = Duration(600 * time.Second)
	cfg.TickInterval = Duration(time.Second)
	cfg.OperatorPatience = Band{Min: Duration(10 * time.Second), Max: Duration(10 * time.Second)}
	cfg.ConnectPatience = Band{Min: Duration(12 * time.Second), Max: Duration(12 * time.Second)}
	cfg.RingDelay = Band{Min: Duration(2 * time.Second), Max: Duration(2 * time.Second)}
	cfg.GenerationNormal = Band{Min: Duration(time.Hour), Max: Duration(time.Hour)}
	cfg.GenerationFast = Band{Min: Duration(time.Hour), Max: Duration(time.Hour)}
	cfg.FastGenerationAfter = Duration(time.Hour)
	cfg.WordReveal = Duration(time.Second)
	cfg.UtterancePause = Duration(2 * time.Second)
	cfg.Seed = 1
	return cfg
}

type lightEvent struct {
	line model.LineID
	on   bool
}

type speechEvent struct {
	speaker model.Speaker
	text    string
}

type indicatorEvent struct {
	console   string
	indicator Indicator
	on        bool
}

// recorder is a Listener that captures every outbound event for assertions.
type recorder struct {
	lights     []lightEvent
	speech     []speechEvent
	resolved   []model.CallRecord
	moves      int
	indicators []indicatorEvent
	seconds    []int
	summary    *model.ScoreSummary
}

func (r *recorder) LightStateChanged(line model.LineID, on bool) {
	r.lights = append(r.lights, lightEvent{line, on})
}

func (r *recorder) SpeechRevealed(speaker model.Speaker, text string) {
	r.speech = append(r.speech, speechEvent{speaker, text})
}

func (r *recorder) CallResolved(record model.CallRecord) {
	r.resolved = append(r.resolved, record)
}

func (r *recorder) CableVisualMoved(string, CableEndKind, *model.LineID) {
	r.moves++
}

func (r *recorder) IndicatorToggled(console string, indicator Indicator, on bool) {
	r.indicators = append(r.indicators, indicatorEvent{console, indicator, on})
}

func (r *recorder) SecondsRemaining(n int) {
	r.seconds = append(r.seconds, n)
}

func (r *recorder) SessionEnded(summary model.ScoreSummary) {
	r.summary = &summary
}

func (r *recorder) speechTexts() []string {
	out := make([]string, len(r.speech))
	for i, s := range r.speech {
		out[i] = s.text
	}
	return out
}

// newTestSession builds a session over a manual scheduler without starting
// it. Tests drive time with the returned scheduler.
func newTestSession(t *testing.T, cfg Config, opts ...Option) (*Session, *sched.ManualScheduler, *recorder) {
	t.Helper()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	ms := sched.NewManualScheduler(start)
	rec := &recorder{}
	opts = append([]Option{WithListener(rec)}, opts...)
	s, err := NewSession(cfg, ms, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, ms, rec
}

// placeCall creates a call directly on the given lines, bypassing random
// generation.
func placeCall(t *testing.T, s *Session, src, dst model.LineID, script []model.Utterance) *Call {
	t.Helper()
	source, destination := s.byID[src], s.byID[dst]
	if source == nil || destination == nil {
		t.Fatalf("no such lines %s/%s", src, dst)
	}
	c := newCall(s, source, destination, script)
	s.active[c.id] = c
	return c
}

// onlyActive returns the single live call on the board.
func onlyActive(t *testing.T, s *Session) *Call {
	t.Helper()
	if len(s.active) != 1 {
		t.Fatalf("expected exactly one active call, got %d", len(s.active))
	}
	for _, c := range s.active {
		return c
	}
	return nil
}

var shortScript = []model.Utterance{
	{Speaker: model.SpeakerCaller, Text: "Good morning Mabel"},
	{Speaker: model.SpeakerCallee, Text: "Morning dear"},
}
