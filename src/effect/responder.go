package effect

import "go.uber.org/atomic"

// Responder answers a single request. Respond never blocks and only the first
// answer is delivered.
type Responder[T any] struct {
	ch   chan T
	used *atomic.Bool
}

// NewResponder returns a responder and the channel its answer arrives on.
func NewResponder[T any]() (Responder[T], <-chan T) {
	ch := make(chan T, 1)
	return Responder[T]{ch: ch, used: atomic.NewBool(false)}, ch
}

// Respond delivers v. It reports false if the responder was already used or
// was never initialised.
func (r Responder[T]) Respond(v T) bool {
	if r.ch == nil || !r.used.CompareAndSwap(false, true) {
		return false
	}
	r.ch <- v
	return true
}

// IsZero reports whether r was created without NewResponder.
func (r Responder[T]) IsZero() bool {
	return r.ch == nil
}
