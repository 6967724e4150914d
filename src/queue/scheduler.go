// Package queue implements the reactor's event queue: one FIFO per Kind,
// served by weighted round-robin.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/deque"
)

type slot struct {
	kind   Kind
	weight int
	events deque.Deque
}

// Scheduler is a multi-queue that never blocks on Push. Pop serves each kind up
// to its weight before moving to the next non-empty kind. Events of one kind
// are always returned in the order they were pushed.
type Scheduler[Ev any] struct {
	mu     sync.Mutex
	slots  []*slot
	byKind map[Kind]*slot
	active int
	served int
	total  int

	// the 1-element buffer covers the window between a consumer finding the
	// queue empty and starting to wait on the channel.
	notify chan struct{}
}

// NewScheduler creates a Scheduler. Kinds missing from weights are not
// accepted by Push.
func NewScheduler[Ev any](weights map[Kind]int) *Scheduler[Ev] {
	s := &Scheduler[Ev]{
		byKind: make(map[Kind]*slot),
		notify: make(chan struct{}, 1),
	}
	for _, k := range Kinds {
		w, ok := weights[k]
		if !ok {
			continue
		}
		if w <= 0 {
			panic(fmt.Sprintf("queue weight for %s must be positive, got %d", k, w))
		}
		sl := &slot{kind: k, weight: w}
		s.slots = append(s.slots, sl)
		s.byKind[k] = sl
	}
	return s
}

// Push appends ev to the queue of the given kind.
func (s *Scheduler[Ev]) Push(ev Ev, kind Kind) {
	s.mu.Lock()
	sl, ok := s.byKind[kind]
	if !ok {
		s.mu.Unlock()
		panic(fmt.Sprintf("no queue for kind %s", kind))
	}
	sl.events.PushBack(ev)
	s.total++
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// TryPop returns the next event without waiting. ok is false if every queue is
// empty.
func (s *Scheduler[Ev]) TryPop() (ev Ev, kind Kind, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total == 0 {
		return ev, kind, false
	}

	for {
		sl := s.slots[s.active]
		if s.served < sl.weight && sl.events.Len() > 0 {
			s.served++
			s.total--
			return sl.events.PopFront().(Ev), sl.kind, true
		}
		s.active = (s.active + 1) % len(s.slots)
		s.served = 0
	}
}

// Pop returns the next event, waiting until one is pushed or ctx is done.
func (s *Scheduler[Ev]) Pop(ctx context.Context) (Ev, Kind, error) {
	for {
		if ev, kind, ok := s.TryPop(); ok {
			return ev, kind, nil
		}
		select {
		case <-s.notify:
		case <-ctx.Done():
			var zero Ev
			return zero, 0, ctx.Err()
		}
	}
}

// Len is the total number of queued events.
func (s *Scheduler[Ev]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Lens reports the number of queued events per kind.
func (s *Scheduler[Ev]) Lens() map[Kind]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[Kind]int, len(s.slots))
	for _, sl := range s.slots {
		res[sl.kind] = sl.events.Len()
	}
	return res
}
