package deployacceptor

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Event is handled by the deploy acceptor.
type Event interface {
	fmt.Stringer
	deployAcceptorEvent()
}

// Accept asks for a deploy to be checked. Responder is set for deploys coming
// from an API client.
type Accept struct {
	Deploy    *types.Deploy
	Source    effect.Source
	Responder effect.Responder[error]
}

// Stored follows a valid deploy being written to storage.
type Stored struct {
	Deploy    *types.Deploy
	Source    effect.Source
	Responder effect.Responder[error]
	IsNew     bool
}

func (Accept) deployAcceptorEvent() {}
func (Stored) deployAcceptorEvent() {}

func (e Accept) String() string {
	return fmt.Sprintf("accept deploy %s from %s", e.Deploy.Hash, e.Source)
}
func (e Stored) String() string {
	return fmt.Sprintf("stored deploy %s (new: %v)", e.Deploy.Hash, e.IsNew)
}
