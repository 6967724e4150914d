package effect

import (
	"context"
	"fmt"
	"time"

	"github.com/shivlim/casper-node/src/queue"
)

// EventQueueHandle is the only way events enter a reactor's queue.
type EventQueueHandle[REv any] struct {
	scheduler *queue.Scheduler[REv]
	onFatal   func(error)
}

// NewEventQueueHandle wraps scheduler. onFatal is called by Builder.Fatal.
func NewEventQueueHandle[REv any](scheduler *queue.Scheduler[REv], onFatal func(error)) EventQueueHandle[REv] {
	return EventQueueHandle[REv]{
		scheduler: scheduler,
		onFatal:   onFatal,
	}
}

// Schedule pushes ev onto the queue of the given kind.
func (h EventQueueHandle[REv]) Schedule(ev REv, kind queue.Kind) {
	h.scheduler.Push(ev, kind)
}

// Len is the total number of queued events.
func (h EventQueueHandle[REv]) Len() int {
	return h.scheduler.Len()
}

func (h EventQueueHandle[REv]) scheduleAny(ev interface{}, kind queue.Kind) {
	typed, ok := ev.(REv)
	if !ok {
		var want REv
		panic(fmt.Sprintf("event of type %T scheduled on a queue of %T", ev, want))
	}
	h.Schedule(typed, kind)
}

func (h EventQueueHandle[REv]) fatal(err error) {
	if h.onFatal != nil {
		h.onFatal(err)
	}
}

type eventQueue interface {
	scheduleAny(ev interface{}, kind queue.Kind)
	fatal(err error)
}

// Builder creates the futures components compose into effects. It is not
// generic so that components without requests can be hosted by any reactor.
type Builder struct {
	q eventQueue
}

// NewBuilder returns a Builder pushing onto the queue behind h.
func NewBuilder[REv any](h EventQueueHandle[REv]) Builder {
	return Builder{q: h}
}

// Immediately resolves straight away. Use it to turn a plain event into an
// effect.
func (b Builder) Immediately() Future[struct{}] {
	return Ready(struct{}{})
}

// SetTimeout resolves with d once d has elapsed.
func (b Builder) SetTimeout(d time.Duration) Future[time.Duration] {
	return func(ctx context.Context) (time.Duration, bool) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return d, true
		case <-ctx.Done():
			return 0, false
		}
	}
}

// Fatal escalates err to the runner, which stops the reactor and returns err.
// The future never resolves.
func (b Builder) Fatal(err error) Future[struct{}] {
	return func(ctx context.Context) (struct{}, bool) {
		b.q.fatal(err)
		return struct{}{}, false
	}
}

// Schedule pushes ev onto the reactor queue when the future runs.
func Schedule[REv any](b Builder, ev REv, kind queue.Kind) Future[struct{}] {
	return func(ctx context.Context) (struct{}, bool) {
		b.q.scheduleAny(ev, kind)
		return struct{}{}, true
	}
}

// Announce publishes an announcement that has already been embedded into the
// reactor event type.
func Announce[REv any](b Builder, ev REv, kind queue.Kind) Future[struct{}] {
	return Schedule(b, ev, kind)
}

// MakeRequest schedules the request built around a fresh responder and waits
// for the answer.
func MakeRequest[REv, T any](b Builder, build func(Responder[T]) REv, kind queue.Kind) Future[T] {
	return func(ctx context.Context) (T, bool) {
		responder, answer := NewResponder[T]()
		b.q.scheduleAny(build(responder), kind)
		select {
		case v := <-answer:
			return v, true
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}
