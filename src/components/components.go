// Package components defines the contract every part of a reactor follows.
//
// Components are self-contained: each owns its state, reacts to events of its
// own type and never references another component. All interaction between
// components goes through the reactor as requests and announcements.
package components

import (
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
)

// Component handles events of type Ev.
//
// HandleEvent must not block: any I/O, waiting or work for another component
// is returned as effects, which the reactor runs and feeds back as new
// events. Invalid events are logged and dropped rather than returned as
// errors. Conditions the node cannot recover from are escalated with
// Builder.Fatal.
type Component[Ev any] interface {
	HandleEvent(eb effect.Builder, rng rng.NodeRng, ev Ev) effect.Effects[Ev]
}
