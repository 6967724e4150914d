// Package linearchain keeps the chain of executed blocks.
package linearchain

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/sirupsen/logrus"
)

// Embedder is what the hosting reactor must provide.
type Embedder[REv any] interface {
	effect.StorageRequestEmbedder[REv]
	effect.LinearChainAnnouncementEmbedder[REv]
}

// LinearChain stores executed blocks and tracks the tip.
type LinearChain[REv any] struct {
	emb    Embedder[REv]
	tip    *types.Block
	logger *logrus.Entry
}

// New continues the chain ending at tip, which is nil on a fresh chain.
func New[REv any](tip *types.Block, emb Embedder[REv], logger *logrus.Entry) *LinearChain[REv] {
	return &LinearChain[REv]{
		emb:    emb,
		tip:    tip,
		logger: logger.WithField("component", "linear_chain"),
	}
}

// HandleEvent appends executed blocks and answers tip requests.
func (c *LinearChain[REv]) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case BlockExecuted:
		block := ev.Block
		for _, r := range ev.Results {
			if !r.Success() {
				c.logger.WithFields(logrus.Fields{
					"deploy": r.DeployHash,
					"height": block.Header.Height,
				}).Info("deploy execution failed: ", r.Error)
			}
		}
		return effect.Event(effect.PutBlockToStorage[REv](eb, c.emb, block), func(isNew bool) Event {
			return Stored{Block: block, IsNew: isNew}
		})
	case Stored:
		if c.tip != nil && ev.Block.Header.Height <= c.tip.Header.Height {
			c.logger.WithField("height", ev.Block.Header.Height).Debug("block below tip")
			return nil
		}
		c.tip = ev.Block
		c.logger.WithFields(logrus.Fields{
			"height": ev.Block.Header.Height,
			"hash":   ev.Block.Hash,
		}).Info("linear chain block added")
		return effect.Ignore[Event](effect.AnnounceBlockAdded[REv](eb, c.emb, ev.Block))
	case Request:
		switch req := ev.Request.(type) {
		case effect.GetTipRequest:
			req.Responder.Respond(c.tip)
		default:
			panic(fmt.Sprintf("unhandled linear chain request %T", req))
		}
		return nil
	default:
		panic(fmt.Sprintf("unhandled linear chain event %T", ev))
	}
}

// Tip is the highest block added, nil on a fresh chain.
func (c *LinearChain[REv]) Tip() *types.Block {
	return c.tip
}
