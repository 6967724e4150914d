package chainspecloader

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Event is handled by the chainspec loader.
type Event interface {
	fmt.Stringer
	chainspecLoaderEvent()
}

// PutToStorage follows the chainspec being stored.
type PutToStorage struct{}

// CommitGenesisResult carries the contract runtime's answer.
type CommitGenesisResult struct {
	Result effect.GenesisResult
}

// BlockAdded lets the loader track upgrade activation points.
type BlockAdded struct {
	Block *types.Block
}

func (PutToStorage) chainspecLoaderEvent()        {}
func (CommitGenesisResult) chainspecLoaderEvent() {}
func (BlockAdded) chainspecLoaderEvent()          {}

func (PutToStorage) String() string { return "put chainspec to storage" }
func (e CommitGenesisResult) String() string {
	if e.Result.Err != nil {
		return fmt.Sprintf("commit genesis failed: %v", e.Result.Err)
	}
	return fmt.Sprintf("genesis committed, state root %s", e.Result.StateRoot)
}
func (e BlockAdded) String() string { return fmt.Sprintf("block added: %s", e.Block) }
