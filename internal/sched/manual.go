package sched

import (
	"sync"
	"time"
)

// manualClock is a SessionClock whose time only moves when told to.
type manualClock struct {
	mu  sync.RWMutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *manualClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// ManualScheduler is an EventScheduler that maintains its own notion of
// session time and lets callers advance it explicitly. It exists so tests of
// calls, consoles and the session controller can drive timers
// deterministically without the real time controller.
type ManualScheduler struct {
	EventScheduler
	clock *manualClock
}

// NewManualScheduler creates a manual scheduler starting at the given time.
func NewManualScheduler(start time.Time) *ManualScheduler {
	clock := &manualClock{now: start}
	return &ManualScheduler{
		EventScheduler: NewEventScheduler(clock),
		clock:          clock,
	}
}

// AdvanceTo sets the session time to t and executes all due events.
// Time is kept monotonic (does not go backwards).
func (s *ManualScheduler) AdvanceTo(t time.Time) {
	if t.Before(s.clock.Now()) {
		return
	}
	s.clock.set(t)
	s.RunDue()
}

// AdvanceBy moves the session time forward by d and executes all due events.
func (s *ManualScheduler) AdvanceBy(d time.Duration) {
	s.AdvanceTo(s.clock.Now().Add(d))
}
