package sched

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/switchboard-simulator/timectrl"
)

// Unbounded makes a repeating event re-arm until it is cancelled.
const Unbounded = -1

// EventScheduler schedules callbacks to run at specific session times based
// on a SessionClock. Calls, consoles and the session controller use it for
// every delay, timeout and repeating tick in the simulation.
//
// The session loop:
// - Advances session time using the time controller.
// - Calls RunDue() after each time advance.
//
// Stateful entities (a call owning its timeout, the controller owning its
// generation timer) hold the returned ID and are the only party permitted to
// cancel or re-arm it.
type EventScheduler interface {
	// Schedule registers a callback f to run at session time 'at'.
	// It returns an opaque event ID that can be used to cancel the event.
	Schedule(at time.Time, f func()) (id string)

	// ScheduleAfter registers a callback to run d after the current
	// session time.
	ScheduleAfter(d time.Duration, f func()) (id string)

	// ScheduleRepeat registers a callback to fire every 'every', count
	// times (Unbounded for no limit). The event keeps its ID across
	// re-arms, so Cancel stops future firings at any point.
	ScheduleRepeat(every time.Duration, count int, f func()) (id string)

	// Cancel attempts to cancel a previously scheduled event. It is a
	// no-op if the ID is unknown or the event already ran. A cancelled
	// event never fires, even if it was already due in the current
	// RunDue batch.
	Cancel(id string)

	// Now returns the current session time, delegated to the underlying clock.
	Now() time.Time

	// RunDue executes all events whose scheduled time is <= Now(), in due
	// order with FIFO ordering for equal due times. It is safe to call
	// multiple times; already-run events must not run again.
	RunDue()

	// Pending reports how many live (not cancelled, not yet fired)
	// events are queued.
	Pending() int
}

// scheduledEvent represents a single scheduled callback.
type scheduledEvent struct {
	id        string
	when      time.Time
	f         func()
	every     time.Duration // > 0 for repeating events
	remaining int           // firings left; Unbounded for no limit
	cancelled bool
}

// eventScheduler is a concrete implementation of EventScheduler that uses a
// SessionClock to determine current session time and stores events ordered
// by scheduled time.
type eventScheduler struct {
	clock timectrl.SessionClock

	mu      sync.Mutex
	counter uint64
	events  []*scheduledEvent // ordered by 'when' (earliest first)
	index   map[string]*scheduledEvent
}

// NewEventScheduler creates a new event scheduler backed by the given clock.
// Callers pass either the real TimeController or a manual clock in tests.
func NewEventScheduler(clock timectrl.SessionClock) EventScheduler {
	return &eventScheduler{
		clock: clock,
		index: make(map[string]*scheduledEvent),
	}
}

// Schedule registers a callback to run at the specified session time.
func (s *eventScheduler) Schedule(at time.Time, f func()) (id string) {
	return s.add(at, f, 0, 1)
}

// ScheduleAfter registers a callback to run after the given delay.
func (s *eventScheduler) ScheduleAfter(d time.Duration, f func()) (id string) {
	return s.add(s.clock.Now().Add(d), f, 0, 1)
}

// ScheduleRepeat registers a repeating callback.
func (s *eventScheduler) ScheduleRepeat(every time.Duration, count int, f func()) (id string) {
	if count == 0 {
		count = Unbounded
	}
	return s.add(s.clock.Now().Add(every), f, every, count)
}

func (s *eventScheduler) add(at time.Time, f func(), every time.Duration, remaining int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	id := fmt.Sprintf("ev-%d", s.counter)

	ev := &scheduledEvent{
		id:        id,
		when:      at,
		f:         f,
		every:     every,
		remaining: remaining,
	}

	s.addEventLocked(ev)
	s.index[id] = ev

	return id
}

// addEventLocked inserts an event into the events slice maintaining time
// order. Events with equal due times keep insertion order, so ties fire
// FIFO. Caller must hold s.mu.
func (s *eventScheduler) addEventLocked(ev *scheduledEvent) {
	// First event strictly after ev.when; equal times stay ahead of ev.
	idx := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].when.After(ev.when)
	})

	s.events = append(s.events, nil)
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = ev
}

// Cancel attempts to cancel a previously scheduled event.
func (s *eventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.index[id]
	if !ok {
		return
	}

	ev.cancelled = true
	delete(s.index, id)
	// Actual removal from s.events is lazy; RunDue skips cancelled events.
}

// Now returns the current session time from the underlying clock.
func (s *eventScheduler) Now() time.Time {
	return s.clock.Now()
}

// Pending reports the number of live queued events.
func (s *eventScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// popDueLocked removes and returns the earliest non-cancelled due event.
// Returns nil if no events are due. Caller must hold s.mu.
func (s *eventScheduler) popDueLocked() *scheduledEvent {
	now := s.clock.Now()
	for len(s.events) > 0 {
		ev := s.events[0]
		if ev.cancelled {
			s.events = s.events[1:]
			continue
		}
		if !ev.when.After(now) {
			s.events = s.events[1:]
			return ev
		}
		// Events are ordered by time, so if this one is in the future,
		// all later ones are too.
		break
	}
	return nil
}

// RunDue executes all events whose scheduled time is <= Now().
// It is safe to call multiple times; already-run events will not run again.
// Repeating events re-arm under their original ID before the callback runs,
// so a callback cancelling its own event stops future firings.
func (s *eventScheduler) RunDue() {
	for {
		s.mu.Lock()
		ev := s.popDueLocked()
		if ev == nil {
			s.mu.Unlock()
			return
		}

		if ev.every > 0 && (ev.remaining == Unbounded || ev.remaining > 1) {
			next := &scheduledEvent{
				id:        ev.id,
				when:      ev.when.Add(ev.every),
				f:         ev.f,
				every:     ev.every,
				remaining: ev.remaining,
			}
			if next.remaining != Unbounded {
				next.remaining--
			}
			s.addEventLocked(next)
			s.index[ev.id] = next
		} else {
			delete(s.index, ev.id)
		}
		s.mu.Unlock()

		// Execute the callback OUTSIDE the lock to avoid deadlocks and
		// allow callbacks to schedule or cancel other events.
		if ev.f != nil {
			ev.f()
		}
	}
}
