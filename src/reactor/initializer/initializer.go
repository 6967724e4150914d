// Package initializer is the first of the node's two reactors.
//
// It loads the chainspec, opens storage and the contract runtime, creates the
// node's network identity and commits genesis. Once the chainspec loader is
// done the reactor stops, and the components it built are handed over to the
// validator reactor as they are.
package initializer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/chainspecloader"
	"github.com/shivlim/casper-node/src/components/contractruntime"
	"github.com/shivlim/casper-node/src/components/smallnetwork"
	"github.com/shivlim/casper-node/src/components/storage"
	"github.com/shivlim/casper-node/src/config"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/reactor"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/sirupsen/logrus"
)

// Reactor commits genesis before handing its components over to the validator.
type Reactor struct {
	config          common.WithDir[*config.Config]
	chainspecLoader *chainspecloader.ChainspecLoader[Event]
	storage         *storage.Storage
	contractRuntime *contractruntime.ContractRuntime
	identity        smallnetwork.Identity
	key             *ecdsa.PrivateKey

	handedOver bool
	logger     *logrus.Entry
}

// Handoff is what a successfully stopped initializer passes on to the
// validator reactor.
type Handoff struct {
	Config           common.WithDir[*config.Config]
	Chainspec        *chainspec.Chainspec
	GenesisStateRoot types.Digest
	Storage          *storage.Storage
	ContractRuntime  *contractruntime.ContractRuntime
	Identity         smallnetwork.Identity

	// Key is the validator's secret key, nil for a node that only follows.
	Key *ecdsa.PrivateKey
}

// New reads the chainspec named in conf and builds the reactor.
func New(
	conf common.WithDir[*config.Config],
	registry prometheus.Registerer,
	eq effect.EventQueueHandle[Event],
	_ rng.NodeRng,
) (*Reactor, effect.Effects[Event], error) {
	logger := conf.Value.Logger().WithField("reactor", "initializer")
	eb := effect.NewBuilder(eq)

	path := conf.Resolve(conf.Value.Node.ChainspecConfigPath)
	loader, effs, err := chainspecloader.New[Event](path, embedder{}, eb, logger)
	if err != nil {
		return nil, nil, &Error{Kind: Chainspec, Cause: err}
	}
	return newWithLoader(conf, loader, effs, registry, logger)
}

// NewWithChainspec builds the reactor around an already loaded chainspec.
func NewWithChainspec(
	conf common.WithDir[*config.Config],
	c *chainspec.Chainspec,
	registry prometheus.Registerer,
	eq effect.EventQueueHandle[Event],
	_ rng.NodeRng,
) (*Reactor, effect.Effects[Event], error) {
	logger := conf.Value.Logger().WithField("reactor", "initializer")
	loader, effs := chainspecloader.NewWithChainspec[Event](c, embedder{}, effect.NewBuilder(eq), logger)
	return newWithLoader(conf, loader, effs, registry, logger)
}

// Constructor adapts New for reactor.NewRunner.
func Constructor(conf common.WithDir[*config.Config], registry prometheus.Registerer) reactor.Constructor[Event, *Reactor] {
	return func(eq effect.EventQueueHandle[Event], rng rng.NodeRng) (*Reactor, effect.Effects[Event], error) {
		return New(conf, registry, eq, rng)
	}
}

func newWithLoader(
	conf common.WithDir[*config.Config],
	loader *chainspecloader.ChainspecLoader[Event],
	loaderEffects effect.Effects[chainspecloader.Event],
	registry prometheus.Registerer,
	logger *logrus.Entry,
) (*Reactor, effect.Effects[Event], error) {
	r := &Reactor{
		config:          conf,
		chainspecLoader: loader,
		logger:          logger,
	}

	st, err := storage.New(common.WithDirFor(conf, conf.Value.Storage), logger)
	if err != nil {
		return nil, nil, &Error{Kind: Storage, Cause: err}
	}
	r.storage = st

	cr, err := contractruntime.New(common.WithDirFor(conf, conf.Value.ContractRuntime), st.Path(), registry, logger)
	if err != nil {
		r.Close()
		if contractruntime.IsError(err, contractruntime.Metrics) {
			return nil, nil, &Error{Kind: Metrics, Cause: err}
		}
		return nil, nil, &Error{Kind: ContractRuntime, Cause: err}
	}
	r.contractRuntime = cr

	if r.identity, err = smallnetwork.NewIdentity(); err != nil {
		r.Close()
		return nil, nil, &Error{Kind: SmallNetworkIdentity, Cause: err}
	}

	if p := conf.Value.Node.SecretKeyPath; p != "" {
		key, err := keys.NewSimpleKeyfile(conf.Resolve(p)).ReadKey()
		if err != nil {
			r.Close()
			return nil, nil, &Error{Kind: Config, Cause: errors.Wrap(err, "reading secret key")}
		}
		r.key = key
	}

	logger.WithField("node_id", r.identity.ID).Info("initializer constructed")
	return r, reactor.WrapEffects(fromChainspecLoader, loaderEffects), nil
}

// DispatchEvent routes ev to the component it belongs to.
func (r *Reactor) DispatchEvent(eb effect.Builder, rng rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case ChainspecLoaderEvent:
		return reactor.WrapEffects(fromChainspecLoader, r.chainspecLoader.HandleEvent(eb, rng, ev.Event))
	case StorageEvent:
		return reactor.WrapEffects(embedder{}.FromStorageRequest, r.storage.HandleEvent(eb, rng, ev.Request))
	case ContractRuntimeEvent:
		return reactor.WrapEffects(embedder{}.FromContractRuntimeRequest, r.contractRuntime.HandleEvent(eb, rng, ev.Request))
	default:
		panic(fmt.Sprintf("unhandled initializer event %T", ev))
	}
}

// IsStopped is true once the chainspec loader completed, successfully or
// not.
func (r *Reactor) IsStopped() bool {
	return r.chainspecLoader.IsStopped()
}

// StoppedSuccessfully reports whether genesis was committed.
func (r *Reactor) StoppedSuccessfully() bool {
	return r.chainspecLoader.StoppedSuccessfully()
}

// Handoff gives up ownership of the built components. It fails unless the
// reactor stopped successfully, in which case Close no longer closes
// anything.
func (r *Reactor) Handoff() (Handoff, error) {
	if !r.StoppedSuccessfully() {
		cause := r.chainspecLoader.Failure()
		if cause == nil {
			cause = errors.New("initializer has not stopped")
		}
		return Handoff{}, &Error{Kind: Genesis, Cause: cause}
	}
	r.handedOver = true
	return Handoff{
		Config:           r.config,
		Chainspec:        r.chainspecLoader.Chainspec(),
		GenesisStateRoot: *r.chainspecLoader.GenesisStateRoot(),
		Storage:          r.storage,
		ContractRuntime:  r.contractRuntime,
		Identity:         r.identity,
		Key:              r.key,
	}, nil
}

// Close releases the handed over storage and contract runtime. It is for a
// receiver that fails before taking ownership of them.
func (h Handoff) Close() error {
	var result error
	if h.ContractRuntime != nil {
		if err := h.ContractRuntime.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if h.Storage != nil {
		if err := h.Storage.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Close releases storage and the contract runtime unless they were handed
// over.
func (r *Reactor) Close() error {
	if r.handedOver {
		return nil
	}
	var result error
	if r.contractRuntime != nil {
		if err := r.contractRuntime.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		r.contractRuntime = nil
	}
	if r.storage != nil {
		if err := r.storage.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		r.storage = nil
	}
	return result
}
