package blockproposer

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Event is handled by the block proposer.
type Event interface {
	fmt.Stringer
	blockProposerEvent()
}

// Request asks for deploys to put in a proposal.
type Request struct {
	Request effect.BlockProposerRequest
}

// Accepted adds a deploy to the buffer.
type Accepted struct {
	Deploy *types.Deploy
}

// Finalized removes the block's deploys from the buffer.
type Finalized struct {
	Block *types.FinalizedBlock
}

func (Request) blockProposerEvent()   {}
func (Accepted) blockProposerEvent()  {}
func (Finalized) blockProposerEvent() {}

func (e Request) String() string   { return e.Request.String() }
func (e Accepted) String() string  { return fmt.Sprintf("accepted deploy %s", e.Deploy.Hash) }
func (e Finalized) String() string { return fmt.Sprintf("finalized block at height %d", e.Block.Height) }
