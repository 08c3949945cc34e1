package exchange

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/switchboard-simulator/internal/logging"
	"github.com/signalsfoundry/switchboard-simulator/internal/sched"
	"github.com/signalsfoundry/switchboard-simulator/model"
)

const defaultHistoryCapacity = 64

// Session is one fixed-duration shift at the switchboard. It owns the lines
// and consoles, generates calls on a randomized schedule, drives the
// countdown, and computes the final score.
//
// Execution is single-threaded cooperative: scheduler callbacks run
// synchronously inside Pump, and inbound operator actions take the same
// lock, so at most one mutation is in flight at a time.
type Session struct {
	mu sync.Mutex

	id       string
	cfg      Config
	log      logging.Logger
	sched    sched.EventScheduler
	listener Listener
	metrics  MetricsRecorder
	rng      *rand.Rand

	lines    []*Line
	byID     map[model.LineID]*Line
	consoles map[string]*Console
	order    []string

	scripts   [][]model.Utterance
	scriptIdx int

	startedAt time.Time
	elapsed   time.Duration
	started   bool
	ended     bool

	// genTimer is the single pending generation handle; tickTimer drives
	// the once-per-interval countdown.
	genTimer  string
	tickTimer string

	active  map[string]*Call
	records []model.CallRecord
	history *History
	summary model.ScoreSummary
}

// Option customises a Session at construction.
type Option func(*Session)

// WithListener attaches a presentation listener.
func WithListener(l Listener) Option {
	return func(s *Session) {
		if l != nil {
			s.listener = l
		}
	}
}

// WithMetricsRecorder attaches an observability recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithScripts replaces the stock conversation pool. The pool is copied, so
// the session's shuffle never reorders the caller's slice.
func WithScripts(pool [][]model.Utterance) Option {
	return func(s *Session) {
		if len(pool) == 0 {
			return
		}
		copied := make([][]model.Utterance, len(pool))
		copy(copied, pool)
		s.scripts = copied
	}
}

// NewSession builds the board: a PortsX by PortsY grid of lines and the
// configured consoles, all idle. Call Start to open the shift.
func NewSession(cfg Config, scheduler sched.EventScheduler, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if scheduler == nil {
		return nil, fmt.Errorf("session requires a scheduler")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		log:      logging.Noop(),
		sched:    scheduler,
		listener: NopListener{},
		metrics:  nopMetrics{},
		rng:      rand.New(rand.NewSource(seed)),
		byID:     make(map[model.LineID]*Line),
		consoles: make(map[string]*Console),
		scripts:  defaultScriptPool(),
		active:   make(map[string]*Call),
	}
	for _, opt := range opts {
		opt(s)
	}

	history, err := NewHistory(defaultHistoryCapacity)
	if err != nil {
		return nil, fmt.Errorf("session history: %w", err)
	}
	s.history = history

	for col := 0; col < cfg.PortsX; col++ {
		for row := 0; row < cfg.PortsY; row++ {
			line := NewLine(model.LineID{Col: col, Row: row})
			s.lines = append(s.lines, line)
			s.byID[line.ID()] = line
		}
	}

	for i := 0; i < cfg.Consoles; i++ {
		id := fmt.Sprintf("console-%d", i+1)
		s.consoles[id] = newConsole(id, s)
		s.order = append(s.order, id)
	}

	s.rng.Shuffle(len(s.scripts), func(i, j int) {
		s.scripts[i], s.scripts[j] = s.scripts[j], s.scripts[i]
	})

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the session's configuration.
func (s *Session) Config() Config { return s.cfg }

// Start opens the shift: the first call arrives immediately, the generation
// timer is armed, and the countdown begins.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.startedAt = s.sched.Now()

	s.log.Info(context.Background(), "session started",
		logging.String("session_id", s.id),
		logging.Duration("duration", s.cfg.SessionDuration.Std()),
		logging.Int("lines", len(s.lines)),
		logging.Int("consoles", len(s.consoles)),
	)

	s.tickTimer = s.sched.ScheduleRepeat(s.cfg.TickInterval.Std(), sched.Unbounded, s.onTick)
	s.generateCall()
}

// Pump advances the simulation: it runs every due scheduler callback. The
// time controller invokes it once per tick; tests invoke it after moving a
// manual clock.
func (s *Session) Pump() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched.RunDue()
	s.metrics.SetPendingEvents(s.sched.Pending())
}

// onTick fires once per tick interval: it advances the countdown and closes
// the shift when the configured duration has elapsed.
func (s *Session) onTick() {
	if s.ended {
		return
	}
	s.elapsed += s.cfg.TickInterval.Std()

	remaining := s.cfg.SessionDuration.Std() - s.elapsed
	if remaining < 0 {
		remaining = 0
	}
	secs := int(remaining / time.Second)
	s.listener.SecondsRemaining(secs)
	s.metrics.SetSecondsRemaining(secs)

	if s.elapsed >= s.cfg.SessionDuration.Std() {
		s.endSession()
	}
}

// generateCall places a new call on the board: a source picked uniformly
// among lines with no cable in them, a destination among free lines other
// than the source. When the board is too busy the generation is skipped and
// simply re-armed.
func (s *Session) generateCall() {
	if s.ended {
		return
	}

	var sources []*Line
	for _, l := range s.lines {
		if l.Free() && !l.Patched() {
			sources = append(sources, l)
		}
	}
	if len(sources) == 0 {
		s.log.Debug(context.Background(), "no free source line, skipping call generation")
		s.armGeneration()
		return
	}
	source := sources[s.rng.Intn(len(sources))]

	var destinations []*Line
	for _, l := range s.lines {
		if l != source && l.Free() {
			destinations = append(destinations, l)
		}
	}
	if len(destinations) == 0 {
		s.log.Debug(context.Background(), "no free destination line, skipping call generation")
		s.armGeneration()
		return
	}
	destination := destinations[s.rng.Intn(len(destinations))]

	script := s.scripts[s.scriptIdx%len(s.scripts)]
	s.scriptIdx++

	call := newCall(s, source, destination, script)
	s.active[call.id] = call
	s.metrics.CallReceived()
	s.metrics.SetActiveCalls(len(s.active))

	s.log.Info(context.Background(), "call placed",
		logging.String("call_id", call.id),
		logging.String("source", source.ID().String()),
		logging.String("destination", destination.ID().String()),
	)

	s.armGeneration()
}

// armGeneration schedules the next call, cancelling any pending generation
// first so at most one generation timer is live.
func (s *Session) armGeneration() {
	if s.ended {
		return
	}
	if s.genTimer != "" {
		s.sched.Cancel(s.genTimer)
	}

	band := s.cfg.GenerationNormal
	if s.sched.Now().Sub(s.startedAt) >= s.cfg.FastGenerationAfter.Std() {
		band = s.cfg.GenerationFast
	}
	s.genTimer = s.sched.ScheduleAfter(band.Draw(s.rng), func() {
		s.genTimer = ""
		s.generateCall()
	})
}

// callResolved collects a terminal call's record and re-arms generation.
// Invoked by Call.resolve with the session lock held.
func (s *Session) callResolved(c *Call, record model.CallRecord) {
	delete(s.active, c.id)
	s.records = append(s.records, record)
	s.history.Add(record)
	s.metrics.CallResolved(record)
	s.metrics.SetActiveCalls(len(s.active))

	s.log.Info(context.Background(), "call resolved",
		logging.String("call_id", c.id),
		logging.String("outcome", record.Outcome.String()),
		logging.Duration("wait", record.WaitTime),
	)

	if !s.ended {
		s.armGeneration()
	}
}

// endSession closes the shift: still-connected calls complete successfully
// in bulk, everything else on the board fails, and the score is computed
// once.
func (s *Session) endSession() {
	if s.ended {
		return
	}
	s.ended = true

	if s.genTimer != "" {
		s.sched.Cancel(s.genTimer)
		s.genTimer = ""
	}
	if s.tickTimer != "" {
		s.sched.Cancel(s.tickTimer)
		s.tickTimer = ""
	}

	// Resolution mutates s.active; snapshot first.
	remaining := make([]*Call, 0, len(s.active))
	for _, c := range s.active {
		remaining = append(remaining, c)
	}
	for _, c := range remaining {
		if c.State() == model.CallConnected {
			c.forceComplete()
		} else {
			c.abandon()
		}
	}

	s.summary = s.computeSummary()
	s.listener.SessionEnded(s.summary)

	s.log.Info(context.Background(), "session ended",
		logging.String("session_id", s.id),
		logging.Int("points", s.summary.Points),
		logging.Int("received", s.summary.Received),
		logging.Int("answered", s.summary.Answered),
		logging.Int("connected", s.summary.Connected),
		logging.Int("dropped", s.summary.Dropped),
	)
}

// computeSummary aggregates scoring over the resolved records: each
// successful call earns up to successCap, scaled down by how long its caller
// waited relative to the allowed maximum; each failure costs failPenalty.
func (s *Session) computeSummary() model.ScoreSummary {
	maxWait := s.cfg.MaxAllowedWait.Std()

	var points float64
	summary := model.ScoreSummary{}
	for _, rec := range s.records {
		summary.Received++
		if rec.Answered {
			summary.Answered++
		}
		if rec.Connected {
			summary.Connected++
		}
		if rec.Dropped {
			summary.Dropped++
		}
		if rec.Outcome == model.OutcomeSucceeded {
			w := rec.WaitTime
			if w < 0 {
				w = 0
			}
			if w > maxWait {
				w = maxWait
			}
			points += (1 - w.Seconds()/maxWait.Seconds()) * s.cfg.SuccessCap
		} else {
			points -= s.cfg.FailPenalty
		}
	}

	summary.Points = int(math.Round(points))
	summary.Approved = summary.Points >= s.cfg.ApprovalThreshold
	return summary
}

// Ended reports whether the shift is over.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Summary returns the final score. The second return is false until the
// session has ended.
func (s *Session) Summary() (model.ScoreSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, s.ended
}

// Records returns a snapshot of all resolved call records so far.
func (s *Session) Records() []model.CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CallRecord, len(s.records))
	copy(out, s.records)
	return out
}

// RecentCalls returns the bounded history of resolved calls, oldest first.
func (s *Session) RecentCalls() []model.CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Recent()
}

// ActiveCalls reports how many calls are currently live on the board.
func (s *Session) ActiveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// LineAt returns the line with the given ID, or nil.
func (s *Session) LineAt(id model.LineID) *Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

// ConsoleIDs returns the console identifiers in creation order.
func (s *Session) ConsoleIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ---- Inbound operator actions ----
//
// The presentation/input layer addresses consoles by ID. Unknown IDs are
// ignored the same way operator mis-clicks are.

func (s *Session) ConsoleGrab(consoleID string, end CableEndKind) {
	s.withConsole(consoleID, func(c *Console) { c.Grab(end) })
}

// ConsoleMove hovers the held cable over a line, or over open space when
// line is nil.
func (s *Session) ConsoleMove(consoleID string, line *model.LineID) {
	s.withConsole(consoleID, func(c *Console) {
		if line == nil {
			c.MoveTo(nil)
			return
		}
		c.MoveTo(s.byID[*line])
	})
}

func (s *Session) ConsoleRelease(consoleID string) {
	s.withConsole(consoleID, func(c *Console) { c.Release() })
}

func (s *Session) ConsoleUnplug(consoleID string, end CableEndKind) {
	s.withConsole(consoleID, func(c *Console) { c.Unplug(end) })
}

func (s *Session) ConsoleRing(consoleID string) {
	s.withConsole(consoleID, func(c *Console) { c.Ring() })
}

func (s *Session) ConsoleToggleMonitor(consoleID string) {
	s.withConsole(consoleID, func(c *Console) { c.ToggleMonitor() })
}

func (s *Session) withConsole(consoleID string, f func(*Console)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	c, ok := s.consoles[consoleID]
	if !ok {
		s.log.Debug(context.Background(), "action on unknown console",
			logging.String("console_id", consoleID))
		return
	}
	f(c)
}

// nopMetrics is the default MetricsRecorder.
type nopMetrics struct{}

func (nopMetrics) CallReceived()                 {}
func (nopMetrics) CallResolved(model.CallRecord) {}
func (nopMetrics) SetActiveCalls(int)            {}
func (nopMetrics) SetPendingEvents(int)          {}
func (nopMetrics) SetSecondsRemaining(int)       {}
