// Package testutil helps testing a single component outside of a reactor.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/queue"
	"github.com/stretchr/testify/require"
)

// Queue captures what a component under test schedules for other
// components.
type Queue[REv any] struct {
	*queue.Scheduler[REv]
	Handle  effect.EventQueueHandle[REv]
	Builder effect.Builder
	Fatal   chan error
}

// NewQueue returns a queue whose builder schedules into an in-memory scheduler.
func NewQueue[REv any]() *Queue[REv] {
	q := &Queue[REv]{
		Scheduler: queue.NewScheduler[REv](queue.DefaultWeights),
		Fatal:     make(chan error, 16),
	}
	q.Handle = effect.NewEventQueueHandle(q.Scheduler, func(err error) {
		q.Fatal <- err
	})
	q.Builder = effect.NewBuilder(q.Handle)
	return q
}

// Next waits for the next scheduled event.
func (q *Queue[REv]) Next(t testing.TB) REv {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, _, err := q.Pop(ctx)
	require.NoError(t, err, "no event scheduled")
	return ev
}

// RunEffects runs effs sequentially and collects their events.
func RunEffects[Ev any](t testing.TB, effs effect.Effects[Ev]) []Ev {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out []Ev
	for _, eff := range effs {
		out = append(out, eff(ctx)...)
	}
	return out
}

// Go runs effs concurrently, the way a runner would, and delivers their
// events on the returned channel, which is closed once all effects returned.
func Go[Ev any](effs effect.Effects[Ev]) <-chan Ev {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	out := make(chan Ev, 64)
	done := make(chan struct{}, len(effs))
	for _, eff := range effs {
		eff := eff
		go func() {
			for _, ev := range eff(ctx) {
				out <- ev
			}
			done <- struct{}{}
		}()
	}
	go func() {
		for range effs {
			<-done
		}
		cancel()
		close(out)
	}()
	return out
}

// Answer waits for the value delivered to a responder.
func Answer[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("no answer")
	}
	var zero T
	return zero
}
