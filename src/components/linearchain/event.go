package linearchain

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Event is handled by the linear chain.
type Event interface {
	fmt.Stringer
	linearChainEvent()
}

// BlockExecuted carries a block ready to be appended.
type BlockExecuted struct {
	Block   *types.Block
	Results []types.ExecutionResult
}

// Stored follows a block being written to storage.
type Stored struct {
	Block *types.Block
	IsNew bool
}

// Request ...
type Request struct {
	Request effect.LinearChainRequest
}

func (BlockExecuted) linearChainEvent() {}
func (Stored) linearChainEvent()        {}
func (Request) linearChainEvent()       {}

func (e BlockExecuted) String() string { return fmt.Sprintf("executed %s", e.Block) }
func (e Stored) String() string        { return fmt.Sprintf("stored %s", e.Block) }
func (e Request) String() string       { return e.Request.String() }
