// Package blockvalidator checks proposed blocks against the deploys this node
// knows about.
package blockvalidator

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/sirupsen/logrus"
)

// Config ...
type Config struct {
	// Deploys of a proposal may still be in flight through gossip. Missing
	// deploys are fetched again after RetryDelay, at most MaxRetries times.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		RetryDelay: 500 * time.Millisecond,
		MaxRetries: 4,
	}
}

// Embedder is what the hosting reactor must provide.
type Embedder[REv any] interface {
	effect.StorageRequestEmbedder[REv]
}

// BlockValidator checks that proposed blocks only reference known deploys.
type BlockValidator[REv any] struct {
	conf       Config
	maxDeploys int
	emb        Embedder[REv]
	logger     *logrus.Entry
}

// New returns a validator rejecting blocks of more than maxDeploys deploys.
func New[REv any](conf Config, maxDeploys int, emb Embedder[REv], logger *logrus.Entry) *BlockValidator[REv] {
	return &BlockValidator[REv]{
		conf:       conf,
		maxDeploys: maxDeploys,
		emb:        emb,
		logger:     logger.WithField("component", "block_validator"),
	}
}

// HandleEvent answers block validation requests.
func (v *BlockValidator[REv]) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case Request:
		if err := v.checkShape(ev.Request.Block); err != nil {
			v.reject(ev.Request, err)
			return nil
		}
		return v.fetch(eb, ev.Request, 0)
	case Retry:
		return v.fetch(eb, ev.Request, ev.Attempt)
	case DeploysFetched:
		missing, err := checkDeploys(ev.Request.Block, ev.Deploys)
		if err != nil {
			v.reject(ev.Request, err)
			return nil
		}
		if missing == 0 {
			ev.Request.Responder.Respond(true)
			return nil
		}
		if ev.Attempt >= v.conf.MaxRetries {
			v.reject(ev.Request, fmt.Errorf("%d deploys unknown", missing))
			return nil
		}
		req, next := ev.Request, ev.Attempt+1
		return effect.Event(eb.SetTimeout(v.conf.RetryDelay), func(time.Duration) Event {
			return Retry{Request: req, Attempt: next}
		})
	default:
		panic(fmt.Sprintf("unhandled block validator event %T", ev))
	}
}

func (v *BlockValidator[REv]) fetch(eb effect.Builder, req effect.BlockValidationRequest, attempt int) effect.Effects[Event] {
	return effect.Event(effect.GetDeploysFromStorage[REv](eb, v.emb, req.Block.Deploys), func(ds []*types.Deploy) Event {
		return DeploysFetched{Request: req, Attempt: attempt, Deploys: ds}
	})
}

func (v *BlockValidator[REv]) reject(req effect.BlockValidationRequest, err error) {
	v.logger.WithError(err).WithFields(logrus.Fields{
		"height": req.Block.Height,
		"sender": req.Sender,
	}).Info("invalid block")
	req.Responder.Respond(false)
}

func (v *BlockValidator[REv]) checkShape(fb *types.FinalizedBlock) error {
	if v.maxDeploys > 0 && len(fb.Deploys) > v.maxDeploys {
		return errors.Errorf("%d deploys exceed the limit of %d", len(fb.Deploys), v.maxDeploys)
	}
	seen := make(map[types.DeployHash]bool, len(fb.Deploys))
	for _, h := range fb.Deploys {
		if seen[h] {
			return errors.Errorf("deploy %s included twice", h)
		}
		seen[h] = true
	}
	return nil
}

// checkDeploys returns how many of the block's deploys are unknown, or an
// error if a known one may not be included at the block's timestamp.
func checkDeploys(fb *types.FinalizedBlock, deploys []*types.Deploy) (int, error) {
	missing := 0
	for _, d := range deploys {
		if d == nil {
			missing++
			continue
		}
		if d.Header.Timestamp > fb.Timestamp {
			return 0, errors.Errorf("deploy %s is newer than the block", d.Hash)
		}
		if d.Expired(fb.Timestamp) {
			return 0, errors.Errorf("deploy %s expired before the block", d.Hash)
		}
	}
	return missing, nil
}
