// Package callslot provides the rendezvous cell between a caller blocked in
// Call and the connection's reader goroutine that eventually completes it.
package callslot

import "sync"

// Completable is implemented by anything a connection's pending map can
// hold: an ordinary Slot awaited by a single caller, or a parallel fan-out
// call that routes its completion into a shared coordinator instead.
type Completable interface {
	CompleteValue(payload []byte)
	CompleteError(err error)
}

// Outcome is the terminal state of a Slot once Await returns: Err is
// non-nil for a failed call; otherwise Value holds the response payload
// (nil for an empty payload).
type Outcome struct {
	Value []byte
	Err   error
}

// Slot is a single-use, single-waiter completable cell. It is created
// pending, mutated exactly once to a terminal outcome, and discarded once
// the caller returns from Await.
type Slot struct {
	ID      int32
	Payload []byte

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

// New creates a pending Slot for call id carrying the given request
// payload (kept around only for diagnostics; the request frame itself is
// written separately, by Connection.Send after the slot is registered).
func New(id int32, payload []byte) *Slot {
	return &Slot{
		ID:      id,
		Payload: payload,
		done:    make(chan struct{}),
	}
}

// CompleteValue sets the terminal outcome to a successful value and wakes
// the waiter. A second call (to CompleteValue or CompleteError) is a no-op.
func (s *Slot) CompleteValue(payload []byte) {
	s.once.Do(func() {
		s.outcome = Outcome{Value: payload}
		close(s.done)
	})
}

// CompleteError sets the terminal outcome to an error and wakes the
// waiter. A second call (to CompleteValue or CompleteError) is a no-op.
func (s *Slot) CompleteError(err error) {
	s.once.Do(func() {
		s.outcome = Outcome{Err: err}
		close(s.done)
	})
}

// Await blocks until the slot reaches a terminal outcome and returns it.
// Per the client's cancellation model, Await is not itself cancellable: a
// caller is released only when its connection completes the slot, whether
// with a value or with the connection's close cause.
func (s *Slot) Await() Outcome {
	<-s.done
	return s.outcome
}
