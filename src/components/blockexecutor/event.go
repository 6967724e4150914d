package blockexecutor

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Event is handled by the block executor.
type Event interface {
	fmt.Stringer
	blockExecutorEvent()
}

// Finalized queues a block for execution.
type Finalized struct {
	Block *types.FinalizedBlock
}

// DeploysFetched carries the deploys of the block at the head of the queue.
type DeploysFetched struct {
	Block   *types.FinalizedBlock
	Deploys []*types.Deploy
}

// Executed carries the contract runtime's result for Block.
type Executed struct {
	Block  *types.FinalizedBlock
	Result effect.ExecuteResult
}

func (Finalized) blockExecutorEvent()      {}
func (DeploysFetched) blockExecutorEvent() {}
func (Executed) blockExecutorEvent()       {}

func (e Finalized) String() string {
	return fmt.Sprintf("finalized block at height %d", e.Block.Height)
}
func (e DeploysFetched) String() string {
	return fmt.Sprintf("fetched deploys of block at height %d", e.Block.Height)
}
func (e Executed) String() string {
	return fmt.Sprintf("executed block at height %d", e.Block.Height)
}
