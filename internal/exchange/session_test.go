package exchange

import (
	"testing"
	"time"

	"github.com/signalsfoundry/switchboard-simulator/model"
)

func TestSession_StartPlacesFirstCallImmediately(t *testing.T) {
	s, ms, rec := newTestSession(t, testConfig())
	s.Start()

	if got := s.ActiveCalls(); got != 1 {
		t.Fatalf("active calls after start = %d, want 1", got)
	}
	if len(rec.lights) != 1 || !rec.lights[0].on {
		t.Fatalf("expected one lamp-on event, got %v", rec.lights)
	}
	// Countdown tick, generation timer and the call's patience clock.
	if got := ms.Pending(); got != 3 {
		t.Fatalf("pending events after start = %d, want 3", got)
	}

	// Start is idempotent.
	s.Start()
	if got := s.ActiveCalls(); got != 1 {
		t.Fatalf("second Start generated another call, active=%d", got)
	}
}

func TestSession_SecondsRemainingCountdown(t *testing.T) {
	s, ms, rec := newTestSession(t, testConfig())
	s.Start()

	ms.AdvanceBy(3 * time.Second)

	want := []int{599, 598, 597}
	if len(rec.seconds) != len(want) {
		t.Fatalf("countdown events = %v, want %v", rec.seconds, want)
	}
	for i := range want {
		if rec.seconds[i] != want[i] {
			t.Fatalf("countdown[%d] = %d, want %d", i, rec.seconds[i], want[i])
		}
	}
}

func TestSession_GenerationSkipsWhenBoardBusy(t *testing.T) {
	cfg := testConfig()
	cfg.PortsX = 1
	cfg.PortsY = 2
	cfg.Consoles = 1
	cfg.OperatorPatience = Band{Min: Duration(time.Hour), Max: Duration(time.Hour)}
	cfg.GenerationNormal = Band{Min: Duration(5 * time.Second), Max: Duration(5 * time.Second)}
	s, ms, _ := newTestSession(t, cfg)
	s.Start()

	// The first call claims the only source and reserves the only other
	// line; every generation attempt after that finds no room.
	ms.AdvanceBy(30 * time.Second)

	if got := s.ActiveCalls(); got != 1 {
		t.Fatalf("generation found room on a full board, active=%d", got)
	}
	if s.genTimer == "" {
		t.Fatalf("generation was not re-armed after skipping")
	}
}

func TestSession_FastGenerationAfterThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.OperatorPatience = Band{Min: Duration(time.Hour), Max: Duration(time.Hour)}
	cfg.GenerationNormal = Band{Min: Duration(40 * time.Second), Max: Duration(40 * time.Second)}
	cfg.GenerationFast = Band{Min: Duration(5 * time.Second), Max: Duration(5 * time.Second)}
	cfg.FastGenerationAfter = Duration(60 * time.Second)
	s, ms, _ := newTestSession(t, cfg)
	s.Start()

	// t=40: second call, re-armed on the normal band (due t=80). t=80 is
	// past the threshold, so the third re-arm uses the fast band.
	ms.AdvanceBy(80 * time.Second)
	if got := s.ActiveCalls(); got != 3 {
		t.Fatalf("active calls at t=80 = %d, want 3", got)
	}
	ms.AdvanceBy(5 * time.Second)
	if got := s.ActiveCalls(); got != 4 {
		t.Fatalf("fast band not in effect, active at t=85 = %d, want 4", got)
	}
}

func TestSession_SuccessfulCallEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.SessionDuration = Duration(120 * time.Second)
	cfg.ApprovalThreshold = 5
	s, ms, rec := newTestSession(t, cfg)
	s.Start()

	call := onlyActive(t, s)
	src, dst := call.source.ID(), call.destination.ID()
	console := s.ConsoleIDs()[0]

	ms.AdvanceBy(3 * time.Second)

	// Answer, then patch and ring the requested destination.
	s.ConsoleGrab(console, SourceEnd)
	s.ConsoleMove(console, &src)
	s.ConsoleRelease(console)
	s.ConsoleGrab(console, DestinationEnd)
	s.ConsoleMove(console, &dst)
	s.ConsoleRelease(console)
	s.ConsoleRing(console)

	ms.AdvanceBy(2 * time.Second) // callee picks up at t=5

	if call.State() != model.CallConnected {
		t.Fatalf("call not connected, state=%v", call.State())
	}

	// Let the conversation play out, then run the shift to its end.
	ms.AdvanceBy(55 * time.Second)
	if call.Outcome() != model.OutcomeSucceeded {
		t.Fatalf("conversation did not complete, outcome=%v", call.Outcome())
	}
	ms.AdvanceTo(ms.Now().Add(time.Hour)) // well past the 120s duration

	if !s.Ended() {
		t.Fatalf("session did not end")
	}
	summary, ok := s.Summary()
	if !ok {
		t.Fatalf("Summary reported not-ended after SessionEnded")
	}
	if rec.summary == nil || *rec.summary != summary {
		t.Fatalf("listener summary %+v != session summary %+v", rec.summary, summary)
	}

	want := model.ScoreSummary{
		Points:    8, // round((1 - 5/30) * 10), one call, 5s wait
		Received:  1,
		Answered:  1,
		Connected: 1,
		Dropped:   0,
		Approved:  true,
	}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
}

func TestSession_EndCompletesConnectedAbandonsWaiting(t *testing.T) {
	cfg := testConfig()
	cfg.SessionDuration = Duration(30 * time.Second)
	cfg.OperatorPatience = Band{Min: Duration(time.Hour), Max: Duration(time.Hour)}
	cfg.GenerationNormal = Band{Min: Duration(25 * time.Second), Max: Duration(25 * time.Second)}
	// One long utterance so the first call is still talking at the bell.
	long := []model.Utterance{{Speaker: model.SpeakerCaller, Text: longText(100)}}
	s, ms, _ := newTestSession(t, cfg, WithScripts([][]model.Utterance{long}))
	s.Start()

	call := onlyActive(t, s)
	src, dst := call.source.ID(), call.destination.ID()
	console := s.ConsoleIDs()[0]

	s.ConsoleGrab(console, SourceEnd)
	s.ConsoleMove(console, &src)
	s.ConsoleRelease(console)
	s.ConsoleGrab(console, DestinationEnd)
	s.ConsoleMove(console, &dst)
	s.ConsoleRelease(console)
	s.ConsoleRing(console)
	ms.AdvanceBy(2 * time.Second) // connected at t=2

	// t=25: a second call arrives and is never touched.
	ms.AdvanceBy(28 * time.Second)

	if !s.Ended() {
		t.Fatalf("session did not end at its duration")
	}
	records := s.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records at end of shift, got %d", len(records))
	}

	var connectedRec, waitingRec model.CallRecord
	for _, rec := range records {
		if rec.Connected {
			connectedRec = rec
		} else {
			waitingRec = rec
		}
	}
	if connectedRec.Outcome != model.OutcomeSucceeded {
		t.Fatalf("still-connected call not completed successfully: %+v", connectedRec)
	}
	if waitingRec.Outcome != model.OutcomeFailed || waitingRec.Answered || waitingRec.Dropped {
		t.Fatalf("waiting call not abandoned cleanly: %+v", waitingRec)
	}

	summary, _ := s.Summary()
	// round((1 - 2/30)*10 - 2) = round(7.333)
	if summary.Points != 7 {
		t.Fatalf("points = %d, want 7", summary.Points)
	}
	if summary.Received != 2 || summary.Connected != 1 || summary.Answered != 1 {
		t.Fatalf("summary counts wrong: %+v", summary)
	}

	// No timers survive the end of the shift.
	if got := ms.Pending(); got != 0 {
		t.Fatalf("pending events after session end = %d, want 0", got)
	}
}

func TestSession_ComputeSummaryScoring(t *testing.T) {
	cfg := testConfig()
	cfg.ApprovalThreshold = 13
	s, _, _ := newTestSession(t, cfg)

	s.records = []model.CallRecord{
		{Outcome: model.OutcomeSucceeded, Answered: true, Connected: true, WaitTime: 0},
		{Outcome: model.OutcomeSucceeded, Answered: true, Connected: true, WaitTime: 15 * time.Second},
		{Outcome: model.OutcomeSucceeded, Answered: true, Connected: true, WaitTime: 45 * time.Second}, // clamped
		{Outcome: model.OutcomeFailed, Answered: true, Dropped: true},
	}

	summary := s.computeSummary()

	// 10 + 5 + 0 - 2
	if summary.Points != 13 {
		t.Fatalf("points = %d, want 13", summary.Points)
	}
	if !summary.Approved {
		t.Fatalf("score at the threshold should be approved")
	}
	if summary.Received != 4 || summary.Answered != 4 || summary.Connected != 3 || summary.Dropped != 1 {
		t.Fatalf("summary counts wrong: %+v", summary)
	}
}

func TestSession_WithScriptsCopiesPool(t *testing.T) {
	pool := make([][]model.Utterance, 8)
	for i := range pool {
		pool[i] = []model.Utterance{{Speaker: model.SpeakerCaller, Text: longText(i + 1)}}
	}
	snapshot := make([][]model.Utterance, len(pool))
	copy(snapshot, pool)

	s, _, _ := newTestSession(t, testConfig(), WithScripts(pool))

	// The session shuffles its own copy; the caller's slice stays put.
	for i := range pool {
		if pool[i][0].Text != snapshot[i][0].Text {
			t.Fatalf("pool[%d] reordered under the caller", i)
		}
	}
	s.scripts[0] = nil
	if pool[0] == nil {
		t.Fatalf("session shares backing storage with the caller's pool")
	}
}

func TestSession_ActionsIgnoredAfterEnd(t *testing.T) {
	cfg := testConfig()
	cfg.SessionDuration = Duration(2 * time.Second)
	s, ms, rec := newTestSession(t, cfg)
	s.Start()
	ms.AdvanceBy(5 * time.Second)
	if !s.Ended() {
		t.Fatalf("session did not end")
	}

	before := rec.moves
	s.ConsoleGrab("console-1", SourceEnd)
	s.ConsoleToggleMonitor("console-1")

	if rec.moves != before || len(rec.indicators) != 0 {
		t.Fatalf("console actions carried after the session ended")
	}
}

func TestSession_UnknownConsoleIgnored(t *testing.T) {
	s, _, rec := newTestSession(t, testConfig())
	s.Start()

	s.ConsoleGrab("console-99", SourceEnd)
	s.ConsoleRing("console-99")

	if rec.moves != 0 {
		t.Fatalf("unknown console produced cable events")
	}
}

func TestSession_RecordsAndHistory(t *testing.T) {
	s, ms, _ := newTestSession(t, testConfig())

	placeCall(t, s, srcID, dstID, shortScript)
	ms.AdvanceBy(10 * time.Second) // caller gives up

	placeCall(t, s, offID, model.LineID{Col: 3, Row: 0}, shortScript)
	ms.AdvanceBy(10 * time.Second)

	records := s.Records()
	recent := s.RecentCalls()
	if len(records) != 2 || len(recent) != 2 {
		t.Fatalf("records=%d recent=%d, want 2 each", len(records), len(recent))
	}
	if recent[0].Source != srcID || recent[1].Source != offID {
		t.Fatalf("history not ordered oldest first: %v, %v", recent[0].Source, recent[1].Source)
	}
}

// longText builds an n-word utterance.
func longText(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += " "
		}
		out += "word"
	}
	return out
}
