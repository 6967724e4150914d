// Package blockexecutor turns finalized blocks into executed blocks, one at a
// time and in height order, each on top of its parent's state root.
package blockexecutor

import (
	"fmt"

	"github.com/gammazero/deque"
	"github.com/pkg/errors"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/sirupsen/logrus"
)

// Embedder is what the hosting reactor must provide.
type Embedder[REv any] interface {
	effect.StorageRequestEmbedder[REv]
	effect.ContractRuntimeRequestEmbedder[REv]
	effect.BlockExecutorAnnouncementEmbedder[REv]
}

// BlockExecutor executes finalized blocks one at a time, in height order.
type BlockExecutor[REv any] struct {
	chainspec *chainspec.Chainspec
	emb       Embedder[REv]

	parentHash types.BlockHash
	stateRoot  types.Digest
	nextHeight uint64

	pending   deque.Deque
	executing bool

	logger *logrus.Entry
}

// New continues from tip, or from genesis if tip is nil.
func New[REv any](c *chainspec.Chainspec, genesisStateRoot types.Digest, tip *types.Block, emb Embedder[REv], logger *logrus.Entry) *BlockExecutor[REv] {
	e := &BlockExecutor[REv]{
		chainspec: c,
		emb:       emb,
		stateRoot: genesisStateRoot,
		logger:    logger.WithField("component", "block_executor"),
	}
	if tip != nil {
		e.parentHash = tip.Hash
		e.stateRoot = tip.Header.StateRootHash
		e.nextHeight = tip.Header.Height + 1
	}
	return e
}

// HandleEvent queues finalized blocks and drives their execution.
func (e *BlockExecutor[REv]) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case Finalized:
		e.pending.PushBack(ev.Block)
		if e.executing {
			return nil
		}
		return e.next(eb)
	case DeploysFetched:
		for i, d := range ev.Deploys {
			if d == nil {
				return e.fatal(eb, errors.Errorf("deploy %s of finalized block at height %d is unknown", ev.Block.Deploys[i], ev.Block.Height))
			}
		}
		block := ev.Block
		return effect.Event(effect.ExecuteDeploys[REv](eb, e.emb, e.stateRoot, ev.Deploys), func(r effect.ExecuteResult) Event {
			return Executed{Block: block, Result: r}
		})
	case Executed:
		if ev.Result.Err != nil {
			return e.fatal(eb, errors.Wrapf(ev.Result.Err, "executing block at height %d", ev.Block.Height))
		}
		version := e.chainspec.ProtocolVersionAt(ev.Block.Height)
		block, err := types.NewBlock(e.parentHash, ev.Result.StateRoot, ev.Block, version.String())
		if err != nil {
			return e.fatal(eb, err)
		}
		e.parentHash = block.Hash
		e.stateRoot = block.Header.StateRootHash
		e.nextHeight = block.Header.Height + 1
		e.executing = false

		e.logger.WithFields(logrus.Fields{
			"height":     block.Header.Height,
			"hash":       block.Hash,
			"state_root": block.Header.StateRootHash,
			"deploys":    len(block.Header.DeployHashes),
		}).Info("block executed")

		return effect.Merge(
			effect.Ignore[Event](effect.AnnounceBlockExecuted[REv](eb, e.emb, block, ev.Result.Results)),
			e.next(eb),
		)
	default:
		panic(fmt.Sprintf("unhandled block executor event %T", ev))
	}
}

// next starts executing the oldest queued block, skipping the ones already
// executed.
func (e *BlockExecutor[REv]) next(eb effect.Builder) effect.Effects[Event] {
	for e.pending.Len() > 0 {
		fb := e.pending.PopFront().(*types.FinalizedBlock)
		switch {
		case fb.Height < e.nextHeight:
			e.logger.WithField("height", fb.Height).Debug("block already executed")
			continue
		case fb.Height > e.nextHeight:
			return e.fatal(eb, errors.Errorf("finalized block at height %d, expected %d", fb.Height, e.nextHeight))
		}
		e.executing = true
		return effect.Event(effect.GetDeploysFromStorage[REv](eb, e.emb, fb.Deploys), func(ds []*types.Deploy) Event {
			return DeploysFetched{Block: fb, Deploys: ds}
		})
	}
	return nil
}

func (e *BlockExecutor[REv]) fatal(eb effect.Builder, err error) effect.Effects[Event] {
	e.logger.WithError(err).Error("block execution failed")
	return effect.Ignore[Event](eb.Fatal(err))
}

// NextHeight is the height of the next block to execute.
func (e *BlockExecutor[REv]) NextHeight() uint64 {
	return e.nextHeight
}
