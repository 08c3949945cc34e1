package model

import "testing"

func TestScript_ConsumesFrontToBack(t *testing.T) {
	utterances := []Utterance{
		{Speaker: SpeakerCaller, Text: "first"},
		{Speaker: SpeakerCallee, Text: "second"},
	}
	s := NewScript(utterances)

	if s.Len() != 2 || s.Remaining() != 2 {
		t.Fatalf("fresh script Len=%d Remaining=%d", s.Len(), s.Remaining())
	}

	u, ok := s.Peek()
	if !ok || u.Text != "first" {
		t.Fatalf("Peek = %+v, %v", u, ok)
	}
	if s.Remaining() != 2 {
		t.Fatalf("Peek consumed the cursor")
	}

	u, ok = s.Next()
	if !ok || u.Text != "first" {
		t.Fatalf("first Next = %+v, %v", u, ok)
	}
	u, ok = s.Next()
	if !ok || u.Text != "second" {
		t.Fatalf("second Next = %+v, %v", u, ok)
	}
	if _, ok := s.Next(); ok {
		t.Fatalf("exhausted script still produced an utterance")
	}
	if s.Remaining() != 0 {
		t.Fatalf("Remaining after exhaustion = %d", s.Remaining())
	}

	consumed := s.Consumed()
	if len(consumed) != 2 || consumed[0].Text != "first" || consumed[1].Text != "second" {
		t.Fatalf("Consumed = %+v", consumed)
	}
}

func TestScript_CopiesInput(t *testing.T) {
	utterances := []Utterance{{Speaker: SpeakerCaller, Text: "original"}}
	s := NewScript(utterances)

	utterances[0].Text = "mutated"

	u, _ := s.Peek()
	if u.Text != "original" {
		t.Fatalf("script shares backing storage with caller: %q", u.Text)
	}
}

func TestScript_EmptyIsExhausted(t *testing.T) {
	s := NewScript(nil)
	if s.Len() != 0 || s.Remaining() != 0 {
		t.Fatalf("empty script Len=%d Remaining=%d", s.Len(), s.Remaining())
	}
	if _, ok := s.Peek(); ok {
		t.Fatalf("empty script Peek returned an utterance")
	}
}
