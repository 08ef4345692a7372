package callslot

import (
	"errors"
	"testing"
	"time"
)

func TestCompleteValueWakesAwait(t *testing.T) {
	s := New(1, []byte("req"))
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.CompleteValue([]byte("resp"))
	}()

	out := s.Await()
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if string(out.Value) != "resp" {
		t.Fatalf("unexpected value: %q", out.Value)
	}
}

func TestCompleteErrorWakesAwait(t *testing.T) {
	s := New(2, nil)
	want := errors.New("connection closed")
	s.CompleteError(want)

	out := s.Await()
	if out.Err != want {
		t.Fatalf("unexpected error: %v", out.Err)
	}
}

func TestCompletionIsIdempotent(t *testing.T) {
	s := New(3, nil)
	s.CompleteValue([]byte("first"))
	s.CompleteValue([]byte("second"))
	s.CompleteError(errors.New("third"))

	out := s.Await()
	if string(out.Value) != "first" || out.Err != nil {
		t.Fatalf("expected first completion to win, got value=%q err=%v", out.Value, out.Err)
	}
}

func TestAwaitBlocksUntilTerminal(t *testing.T) {
	s := New(4, nil)
	resultCh := make(chan Outcome, 1)
	go func() {
		resultCh <- s.Await()
	}()

	select {
	case <-resultCh:
		t.Fatalf("Await returned before completion")
	case <-time.After(20 * time.Millisecond):
	}

	s.CompleteValue([]byte("ok"))

	select {
	case out := <-resultCh:
		if string(out.Value) != "ok" {
			t.Fatalf("unexpected value: %q", out.Value)
		}
	case <-time.After(time.Second):
		t.Fatalf("Await did not return after completion")
	}
}
