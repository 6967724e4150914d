// Package chainspecloader loads the chainspec, stores it and commits genesis.
//
// In the initializer, the loader is the component whose completion ends the
// phase. The validator hosts a loader built from the already loaded
// chainspec, which announces upgrades as their activation points are reached.
package chainspecloader

import (
	"fmt"

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
}

// ChainspecLoader stores the chainspec, commits genesis and watches for upgrades.
type ChainspecLoader[REv any] struct {
	chainspec *chainspec.Chainspec
	emb       Embedder[REv]
	upgrades  effect.ChainspecLoaderAnnouncementEmbedder[REv]

	completed        bool
	genesisStateRoot *types.Digest
	failure          error

	logger *logrus.Entry
}

// New loads the chainspec at path and returns the effects storing it and
// committing genesis.
func New[REv any](path string, emb Embedder[REv], eb effect.Builder, logger *logrus.Entry) (*ChainspecLoader[REv], effect.Effects[Event], error) {
	c, err := chainspec.Load(path)
	if err != nil {
		return nil, nil, err
	}
	l, effs := NewWithChainspec(c, emb, eb, logger)
	return l, effs, nil
}

// NewWithChainspec skips reading the chainspec from disk.
func NewWithChainspec[REv any](c *chainspec.Chainspec, emb Embedder[REv], eb effect.Builder, logger *logrus.Entry) (*ChainspecLoader[REv], effect.Effects[Event]) {
	l := &ChainspecLoader[REv]{
		chainspec: c,
		emb:       emb,
		logger:    logger.WithField("component", "chainspec_loader"),
	}
	l.logger.WithFields(logrus.Fields{
		"name":             c.Genesis.Name,
		"protocol_version": c.Genesis.ProtocolVersion.String(),
		"accounts":         len(c.Genesis.Accounts),
	}).Info("chainspec loaded")

	return l, effect.Event(effect.PutChainspecToStorage[REv](eb, emb, c), func(struct{}) Event {
		return PutToStorage{}
	})
}

// NewCompleted hosts an already loaded chainspec whose genesis is committed.
// Such a loader only watches for upgrades.
func NewCompleted[REv any](
	c *chainspec.Chainspec,
	genesisStateRoot types.Digest,
	upgrades effect.ChainspecLoaderAnnouncementEmbedder[REv],
	logger *logrus.Entry,
) *ChainspecLoader[REv] {
	root := genesisStateRoot
	return &ChainspecLoader[REv]{
		chainspec:        c,
		upgrades:         upgrades,
		completed:        true,
		genesisStateRoot: &root,
		logger:           logger.WithField("component", "chainspec_loader"),
	}
}

// HandleEvent drives genesis and upgrade activation.
func (l *ChainspecLoader[REv]) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case PutToStorage:
		l.logger.Debug("chainspec stored, committing genesis")
		return effect.Event(effect.CommitGenesis[REv](eb, l.emb, l.chainspec), func(r effect.GenesisResult) Event {
			return CommitGenesisResult{Result: r}
		})
	case CommitGenesisResult:
		l.completed = true
		if ev.Result.Err != nil {
			l.failure = ev.Result.Err
			l.logger.WithError(ev.Result.Err).Error("failed to commit genesis")
			return nil
		}
		root := ev.Result.StateRoot
		l.genesisStateRoot = &root
		l.logger.WithField("state_root", root).Info("genesis state root committed")
		return nil
	case BlockAdded:
		u, ok := l.chainspec.UpgradeAt(ev.Block.Header.Height)
		if !ok || l.upgrades == nil {
			return nil
		}
		l.logger.WithFields(logrus.Fields{
			"height":           u.ActivationPoint,
			"protocol_version": u.ProtocolVersion.String(),
		}).Info("upgrade activated")
		return effect.Ignore[Event](effect.AnnounceUpgradeActivated[REv](eb, l.upgrades, u))
	default:
		panic(fmt.Sprintf("unhandled chainspec loader event %T", ev))
	}
}

// IsStopped reports whether genesis was committed or failed.
func (l *ChainspecLoader[REv]) IsStopped() bool {
	return l.completed
}

// StoppedSuccessfully reports whether the loader completed and committed
// genesis.
func (l *ChainspecLoader[REv]) StoppedSuccessfully() bool {
	return l.completed && l.genesisStateRoot != nil
}

// Failure is the reason the loader stopped unsuccessfully.
func (l *ChainspecLoader[REv]) Failure() error {
	return l.failure
}

// Chainspec returns the loaded chainspec.
func (l *ChainspecLoader[REv]) Chainspec() *chainspec.Chainspec {
	return l.chainspec
}

// GenesisStateRoot is nil until genesis is committed.
func (l *ChainspecLoader[REv]) GenesisStateRoot() *types.Digest {
	return l.genesisStateRoot
}
