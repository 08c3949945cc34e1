package timectrl

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimeController_AcceleratedRunsWithoutSleeping(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, Accelerated)

	var ticks atomic.Int64
	var last atomic.Value
	tc.AddListener(func(now time.Time) {
		ticks.Add(1)
		last.Store(now)
	})

	began := time.Now()
	done := tc.Start(5 * time.Second)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("accelerated run did not finish")
	}

	if got := ticks.Load(); got != 5 {
		t.Fatalf("tick count = %d, want 5", got)
	}
	wantEnd := start.Add(5 * time.Second)
	if got := last.Load().(time.Time); !got.Equal(wantEnd) {
		t.Fatalf("last tick at %v, want %v", got, wantEnd)
	}
	if !tc.Now().Equal(wantEnd) {
		t.Fatalf("Now() = %v, want %v", tc.Now(), wantEnd)
	}
	// Five simulated seconds must not take five real ones.
	if real := time.Since(began); real > time.Second {
		t.Fatalf("accelerated run took %v of wall time", real)
	}
}

func TestTimeController_RealTimePacesTicks(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 10*time.Millisecond, RealTime)

	var ticks atomic.Int64
	tc.AddListener(func(time.Time) { ticks.Add(1) })

	began := time.Now()
	done := tc.Start(50 * time.Millisecond)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("real-time run did not finish")
	}

	if got := ticks.Load(); got != 5 {
		t.Fatalf("tick count = %d, want 5", got)
	}
	if real := time.Since(began); real < 40*time.Millisecond {
		t.Fatalf("real-time run finished in %v, expected pacing", real)
	}
}

func TestTimeController_NowBeforeStart(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, Accelerated)
	if !tc.Now().Equal(start) {
		t.Fatalf("Now() before Start = %v, want %v", tc.Now(), start)
	}
}
