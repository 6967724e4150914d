package effect

import (
	"context"
)

// Effect is deferred work producing events once it completes. It must return
// promptly once ctx is done.
type Effect[Ev any] func(ctx context.Context) []Ev

// Effects is the ordered, independent collection of effects returned by a
// single HandleEvent call.
type Effects[Ev any] []Effect[Ev]

// Future is a value that becomes available later. ok is false when the value
// will never arrive, usually because ctx was cancelled.
type Future[T any] func(ctx context.Context) (v T, ok bool)

// None is the empty collection.
func None[Ev any]() Effects[Ev] {
	return nil
}

// Event turns f into a single effect whose result is mapped into exactly one
// event.
func Event[Ev, T any](f Future[T], into func(T) Ev) Effects[Ev] {
	return Effects[Ev]{func(ctx context.Context) []Ev {
		v, ok := f(ctx)
		if !ok {
			return nil
		}
		return []Ev{into(v)}
	}}
}

// Events is like Event but lets the continuation produce any number of
// events.
func Events[Ev, T any](f Future[T], into func(T) []Ev) Effects[Ev] {
	return Effects[Ev]{func(ctx context.Context) []Ev {
		v, ok := f(ctx)
		if !ok {
			return nil
		}
		return into(v)
	}}
}

// Ignore runs f for its side effects only.
func Ignore[Ev, T any](f Future[T]) Effects[Ev] {
	return Effects[Ev]{func(ctx context.Context) []Ev {
		f(ctx)
		return nil
	}}
}

// Merge concatenates effect collections in order.
func Merge[Ev any](effs ...Effects[Ev]) Effects[Ev] {
	var n int
	for _, e := range effs {
		n += len(e)
	}
	if n == 0 {
		return nil
	}
	out := make(Effects[Ev], 0, n)
	for _, e := range effs {
		out = append(out, e...)
	}
	return out
}

// Ready is a future that is already resolved.
func Ready[T any](v T) Future[T] {
	return func(context.Context) (T, bool) {
		return v, true
	}
}

// Then chains g after f.
func Then[T, U any](f Future[T], g func(T) Future[U]) Future[U] {
	return func(ctx context.Context) (U, bool) {
		v, ok := f(ctx)
		if !ok {
			var zero U
			return zero, false
		}
		return g(v)(ctx)
	}
}

// Map transforms the value of f.
func Map[T, U any](f Future[T], m func(T) U) Future[U] {
	return func(ctx context.Context) (U, bool) {
		v, ok := f(ctx)
		if !ok {
			var zero U
			return zero, false
		}
		return m(v), true
	}
}

// Run wraps blocking work, typically I/O against a component's own resources,
// as a future. work runs on the effect's goroutine, never on the dispatch
// loop.
func Run[T any](work func(ctx context.Context) T) Future[T] {
	return func(ctx context.Context) (T, bool) {
		return work(ctx), true
	}
}
