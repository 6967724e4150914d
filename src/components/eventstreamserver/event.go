package eventstreamserver

import (
	"fmt"

	"github.com/shivlim/casper-node/src/types"
)

// Event is published on the event stream.
type Event interface {
	fmt.Stringer
	eventStreamServerEvent()
}

// BlockAdded ...
type BlockAdded struct {
	Block *types.Block
}

// DeployAccepted ...
type DeployAccepted struct {
	Deploy *types.Deploy
}

// Stopped follows the HTTP server returning.
type Stopped struct {
	Err error
}

func (BlockAdded) eventStreamServerEvent()     {}
func (DeployAccepted) eventStreamServerEvent() {}
func (Stopped) eventStreamServerEvent()        {}

func (e BlockAdded) String() string     { return fmt.Sprintf("block added: %s", e.Block) }
func (e DeployAccepted) String() string { return fmt.Sprintf("deploy accepted: %s", e.Deploy.Hash) }
func (e Stopped) String() string {
	if e.Err != nil {
		return fmt.Sprintf("event stream server stopped: %v", e.Err)
	}
	return "event stream server stopped"
}
