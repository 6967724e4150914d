// Package reactor runs components together in one process.
//
// A reactor owns one instance of every component it hosts and a single event
// type covering all of them. The Runner pops one event at a time from the
// reactor's queue, dispatches it, and runs the resulting effects
// concurrently, pushing whatever events they produce back onto the queue.
package reactor

import (
	"context"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
)

// Reactor routes events of type Ev to its components.
type Reactor[Ev any] interface {
	// DispatchEvent forwards ev to the component that owns it and wraps the
	// resulting effects back into Ev. An event with no owner is a programming
	// error and panics.
	DispatchEvent(eb effect.Builder, rng rng.NodeRng, ev Ev) effect.Effects[Ev]

	// IsStopped reports whether the reactor is done and the runner should
	// return.
	IsStopped() bool
}

// Constructor builds a reactor together with the effects it wants run before
// the first event is dispatched.
type Constructor[Ev any, R Reactor[Ev]] func(eq effect.EventQueueHandle[Ev], rng rng.NodeRng) (R, effect.Effects[Ev], error)

// WrapEffects lifts effects of a component's event type into the reactor's
// event type.
func WrapEffects[Ev, REv any](wrap func(Ev) REv, effs effect.Effects[Ev]) effect.Effects[REv] {
	if len(effs) == 0 {
		return nil
	}
	out := make(effect.Effects[REv], len(effs))
	for i, eff := range effs {
		eff := eff
		out[i] = func(ctx context.Context) []REv {
			evs := eff(ctx)
			if len(evs) == 0 {
				return nil
			}
			wrapped := make([]REv, len(evs))
			for j, ev := range evs {
				wrapped[j] = wrap(ev)
			}
			return wrapped
		}
	}
	return out
}
