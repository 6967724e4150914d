// Package validator is the node's second and final reactor.
//
// It takes over storage, the contract runtime and the node identity from a
// stopped initializer, adds networking, consensus, deploy handling and the
// API servers, and runs until the process shuts down.
package validator

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/apiserver"
	"github.com/shivlim/casper-node/src/components/blockexecutor"
	"github.com/shivlim/casper-node/src/components/blockproposer"
	"github.com/shivlim/casper-node/src/components/blockvalidator"
	"github.com/shivlim/casper-node/src/components/chainspecloader"
	"github.com/shivlim/casper-node/src/components/consensus"
	"github.com/shivlim/casper-node/src/components/contractruntime"
	"github.com/shivlim/casper-node/src/components/deployacceptor"
	"github.com/shivlim/casper-node/src/components/eventstreamserver"
	"github.com/shivlim/casper-node/src/components/gossiper"
	"github.com/shivlim/casper-node/src/components/linearchain"
	"github.com/shivlim/casper-node/src/components/restserver"
	"github.com/shivlim/casper-node/src/components/rpcserver"
	"github.com/shivlim/casper-node/src/components/smallnetwork"
	"github.com/shivlim/casper-node/src/components/storage"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/reactor"
	"github.com/shivlim/casper-node/src/reactor/initializer"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/shivlim/casper-node/src/version"
	"github.com/sirupsen/logrus"
)

// Reactor hosts every component of a running validator.
type Reactor struct {
	chainspec *chainspec.Chainspec

	storage         *storage.Storage
	contractRuntime *contractruntime.ContractRuntime
	chainspecLoader *chainspecloader.ChainspecLoader[Event]
	network         *smallnetwork.SmallNetwork[Event]
	consensus       *consensus.Consensus[Event]
	blockProposer   *blockproposer.BlockProposer
	blockValidator  *blockvalidator.BlockValidator[Event]
	blockExecutor   *blockexecutor.BlockExecutor[Event]
	linearChain     *linearchain.LinearChain[Event]
	deployAcceptor  *deployacceptor.DeployAcceptor[Event]
	gossiper        *gossiper.Gossiper[Event]

	// API servers are nil when disabled.
	restServer        *restserver.RestServer[Event]
	rpcServer         *rpcserver.RpcServer[Event]
	eventStreamServer *eventstreamserver.EventStreamServer

	logger *logrus.Entry
}

// New takes over the initializer's components and builds the rest. The
// gatherer, if not nil, is exposed on the REST server's /metrics route.
func New(
	h initializer.Handoff,
	registry prometheus.Registerer,
	gatherer prometheus.Gatherer,
	eq effect.EventQueueHandle[Event],
	_ rng.NodeRng,
) (*Reactor, effect.Effects[Event], error) {
	conf := h.Config.Value
	logger := conf.Logger().WithField("reactor", "validator")
	eb := effect.NewBuilder(eq)
	emb := embedder{}

	r := &Reactor{
		chainspec:       h.Chainspec,
		storage:         h.Storage,
		contractRuntime: h.ContractRuntime,
		logger:          logger,
	}
	fail := func(kind ErrorKind, err error) (*Reactor, effect.Effects[Event], error) {
		if cerr := r.Close(); cerr != nil {
			logger.WithError(cerr).Warn("failed to close components")
		}
		return nil, nil, &Error{Kind: kind, Cause: err}
	}

	// A restarted node continues from its highest stored block.
	tip, err := h.Storage.GetHighestBlock()
	if err != nil {
		return fail(Storage, err)
	}
	if tip != nil {
		logger.WithField("height", tip.Header.Height).Info("continuing from stored block")
	}

	var effs effect.Effects[Event]

	network, netEffs, err := smallnetwork.New[Event](
		common.WithDirFor(h.Config, conf.Network),
		h.Identity,
		h.Chainspec.Genesis.Name,
		emb,
		registry,
		logger,
	)
	if err != nil {
		var nerr *smallnetwork.Error
		if errors.As(err, &nerr) && nerr.Kind == smallnetwork.Metrics {
			return fail(Metrics, err)
		}
		return fail(SmallNetwork, err)
	}
	r.network = network
	effs = append(effs, reactor.WrapEffects(fromNetwork, netEffs)...)

	cs, csEffs, err := consensus.New[Event](conf.Consensus, h.Chainspec, h.Key, tip, emb, eb, registry, logger)
	if err != nil {
		var cerr *consensus.Error
		if errors.As(err, &cerr) && cerr.Kind == consensus.Metrics {
			return fail(Metrics, err)
		}
		return fail(Consensus, err)
	}
	r.consensus = cs
	effs = append(effs, reactor.WrapEffects(fromConsensus, csEffs)...)

	r.gossiper, err = gossiper.New[Event](conf.Gossip, emb, logger)
	if err != nil {
		return fail(Config, err)
	}
	r.chainspecLoader = chainspecloader.NewCompleted[Event](h.Chainspec, h.GenesisStateRoot, emb, logger)
	r.blockProposer = blockproposer.New(conf.BlockProposer, logger)
	r.blockValidator = blockvalidator.New[Event](conf.BlockValidator, h.Chainspec.Deploys.BlockMaxDeployCount, emb, logger)
	r.blockExecutor = blockexecutor.New[Event](h.Chainspec, h.GenesisStateRoot, tip, emb, logger)
	r.linearChain = linearchain.New[Event](tip, emb, logger)
	r.deployAcceptor = deployacceptor.New[Event](conf.DeployAcceptor, h.Chainspec, emb, logger)

	info := apiserver.NodeInfo{
		ChainName:        h.Chainspec.Genesis.Name,
		ProtocolVersion:  h.Chainspec.Genesis.ProtocolVersion.String(),
		OurID:            h.Identity.ID,
		GenesisStateRoot: h.GenesisStateRoot,
	}

	if conf.RestServer.Enable {
		rest, restEffs, err := restserver.New[Event](conf.RestServer, info, emb, eb, gatherer, logger)
		if err != nil {
			return fail(APIServer, err)
		}
		r.restServer = rest
		effs = append(effs, reactor.WrapEffects(fromRestServer, restEffs)...)
	}

	if conf.RpcServer.Enable {
		rpc, rpcEffs, err := rpcserver.New[Event](conf.RpcServer, info, emb, eb, logger)
		if err != nil {
			return fail(APIServer, err)
		}
		r.rpcServer = rpc
		effs = append(effs, reactor.WrapEffects(fromRpcServer, rpcEffs)...)
	}

	if conf.EventStreamServer.Enable {
		sse, sseEffs, err := eventstreamserver.New(conf.EventStreamServer, version.APIVersion.String(), logger)
		if err != nil {
			return fail(APIServer, err)
		}
		r.eventStreamServer = sse
		effs = append(effs, reactor.WrapEffects(fromEventStreamServer, sseEffs)...)
	}

	logger.WithFields(logrus.Fields{
		"node_id": h.Identity.ID,
		"address": network.Address(),
	}).Info("validator constructed")
	return r, effs, nil
}

// Constructor adapts New for reactor.NewRunner.
func Constructor(h initializer.Handoff, registry prometheus.Registerer, gatherer prometheus.Gatherer) reactor.Constructor[Event, *Reactor] {
	return func(eq effect.EventQueueHandle[Event], rng rng.NodeRng) (*Reactor, effect.Effects[Event], error) {
		return New(h, registry, gatherer, eq, rng)
	}
}

// NewRunner builds a runner around a validator constructed from h. The
// validator owns h from then on: if the runner fails before the validator is
// constructed, h is closed here.
func NewRunner(h initializer.Handoff, conf reactor.RunnerConfig, gatherer prometheus.Gatherer) (*reactor.Runner[Event, *Reactor], error) {
	constructed := false
	ctor := Constructor(h, conf.Registry, gatherer)
	runner, err := reactor.NewRunner(conf, func(eq effect.EventQueueHandle[Event], rng rng.NodeRng) (*Reactor, effect.Effects[Event], error) {
		constructed = true
		return ctor(eq, rng)
	})
	if err != nil && !constructed {
		if cerr := h.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}
	return runner, err
}

// DispatchEvent routes ev to the component it belongs to.
func (r *Reactor) DispatchEvent(eb effect.Builder, rng rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case NetworkEvent:
		return reactor.WrapEffects(fromNetwork, r.network.HandleEvent(eb, rng, ev.Event))
	case ConsensusEvent:
		return r.dispatchConsensus(eb, rng, ev.Event)
	case BlockProposerEvent:
		return r.dispatchBlockProposer(eb, rng, ev.Event)
	case BlockValidatorEvent:
		return reactor.WrapEffects(fromBlockValidator, r.blockValidator.HandleEvent(eb, rng, ev.Event))
	case BlockExecutorEvent:
		return r.dispatchBlockExecutor(eb, rng, ev.Event)
	case LinearChainEvent:
		return r.dispatchLinearChain(eb, rng, ev.Event)
	case DeployAcceptorEvent:
		return r.dispatchDeployAcceptor(eb, rng, ev.Event)
	case GossiperEvent:
		return r.dispatchGossiper(eb, rng, ev.Event)
	case ChainspecLoaderEvent:
		return r.dispatchChainspecLoader(eb, rng, ev.Event)
	case StorageEvent:
		return reactor.WrapEffects(embedder{}.FromStorageRequest, r.storage.HandleEvent(eb, rng, ev.Request))
	case ContractRuntimeEvent:
		return reactor.WrapEffects(embedder{}.FromContractRuntimeRequest, r.contractRuntime.HandleEvent(eb, rng, ev.Request))
	case RestServerEvent:
		if r.restServer == nil {
			panic(fmt.Sprintf("rest server event %s with rest server disabled", ev.Event))
		}
		return reactor.WrapEffects(fromRestServer, r.restServer.HandleEvent(eb, rng, ev.Event))
	case RpcServerEvent:
		if r.rpcServer == nil {
			panic(fmt.Sprintf("rpc server event %s with rpc server disabled", ev.Event))
		}
		return reactor.WrapEffects(fromRpcServer, r.rpcServer.HandleEvent(eb, rng, ev.Event))
	case EventStreamServerEvent:
		return r.dispatchEventStreamServer(eb, rng, ev.Event)

	case NetworkAnnouncement:
		return r.handleNetworkAnnouncement(eb, rng, ev.Announcement)
	case ConsensusAnnouncement:
		fb := ev.Announcement.Finalized
		return effect.Merge(
			r.dispatchBlockProposer(eb, rng, blockproposer.Finalized{Block: fb}),
			r.dispatchBlockExecutor(eb, rng, blockexecutor.Finalized{Block: fb}),
		)
	case BlockExecutorAnnouncement:
		a := ev.Announcement
		return r.dispatchLinearChain(eb, rng, linearchain.BlockExecuted{Block: a.Block, Results: a.Results})
	case LinearChainAnnouncement:
		block := ev.Announcement.BlockAdded
		return effect.Merge(
			r.dispatchConsensus(eb, rng, consensus.BlockAdded{Block: block}),
			r.dispatchChainspecLoader(eb, rng, chainspecloader.BlockAdded{Block: block}),
			r.dispatchEventStreamServer(eb, rng, eventstreamserver.BlockAdded{Block: block}),
		)
	case DeployAcceptorAnnouncement:
		return r.handleDeployAcceptorAnnouncement(eb, rng, ev.Announcement)
	case GossiperAnnouncement:
		a := ev.Announcement
		return r.dispatchDeployAcceptor(eb, rng, deployacceptor.Accept{
			Deploy: a.NewDeploy,
			Source: effect.PeerSource(a.Sender),
		})
	case APIServerAnnouncement:
		a := ev.Announcement
		return r.dispatchDeployAcceptor(eb, rng, deployacceptor.Accept{
			Deploy:    a.DeployReceived,
			Responder: a.Responder,
		})
	case ChainspecLoaderAnnouncement:
		u := ev.Announcement.UpgradeActivated
		r.logger.WithFields(logrus.Fields{
			"height":           u.ActivationPoint,
			"protocol_version": u.ProtocolVersion.String(),
		}).Info("protocol upgrade activated")
		return nil
	default:
		panic(fmt.Sprintf("unhandled validator event %T", ev))
	}
}

// IsStopped is always false: the validator runs until shut down.
func (r *Reactor) IsStopped() bool {
	return false
}

func (r *Reactor) handleNetworkAnnouncement(eb effect.Builder, rng rng.NodeRng, a effect.NetworkAnnouncement) effect.Effects[Event] {
	switch a := a.(type) {
	case effect.MessageReceived:
		switch a.Payload.Kind {
		case types.ConsensusMessage:
			return r.dispatchConsensus(eb, rng, consensus.MessageReceived{Sender: a.Sender, Payload: a.Payload.Consensus})
		case types.DeployGossipMessage:
			if a.Payload.Deploy == nil {
				r.logger.WithField("sender", a.Sender).Info("dropping deploy gossip without deploy")
				return nil
			}
			return r.dispatchGossiper(eb, rng, gossiper.DeployReceived{Sender: a.Sender, Deploy: a.Payload.Deploy})
		default:
			r.logger.WithFields(logrus.Fields{
				"sender": a.Sender,
				"kind":   a.Payload.Kind,
			}).Info("dropping message of unknown kind")
			return nil
		}
	case effect.NewPeer:
		r.logger.WithField("peer", a.ID).Debug("new peer")
		return nil
	default:
		panic(fmt.Sprintf("unhandled network announcement %T", a))
	}
}

func (r *Reactor) handleDeployAcceptorAnnouncement(eb effect.Builder, rng rng.NodeRng, a effect.DeployAcceptorAnnouncement) effect.Effects[Event] {
	switch a := a.(type) {
	case effect.AcceptedDeploy:
		return effect.Merge(
			r.dispatchGossiper(eb, rng, gossiper.DeployAccepted{Deploy: a.Deploy, Source: a.Source}),
			r.dispatchBlockProposer(eb, rng, blockproposer.Accepted{Deploy: a.Deploy}),
			r.dispatchEventStreamServer(eb, rng, eventstreamserver.DeployAccepted{Deploy: a.Deploy}),
		)
	case effect.InvalidDeploy:
		r.logger.WithError(a.Err).WithFields(logrus.Fields{
			"deploy": a.Deploy.Hash,
			"source": a.Source,
		}).Info("invalid deploy")
		return nil
	default:
		panic(fmt.Sprintf("unhandled deploy acceptor announcement %T", a))
	}
}

func (r *Reactor) dispatchConsensus(eb effect.Builder, rng rng.NodeRng, ev consensus.Event) effect.Effects[Event] {
	return reactor.WrapEffects(fromConsensus, r.consensus.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchBlockProposer(eb effect.Builder, rng rng.NodeRng, ev blockproposer.Event) effect.Effects[Event] {
	return reactor.WrapEffects(fromBlockProposer, r.blockProposer.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchBlockExecutor(eb effect.Builder, rng rng.NodeRng, ev blockexecutor.Event) effect.Effects[Event] {
	return reactor.WrapEffects(fromBlockExecutor, r.blockExecutor.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchLinearChain(eb effect.Builder, rng rng.NodeRng, ev linearchain.Event) effect.Effects[Event] {
	return reactor.WrapEffects(fromLinearChain, r.linearChain.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchDeployAcceptor(eb effect.Builder, rng rng.NodeRng, ev deployacceptor.Event) effect.Effects[Event] {
	return reactor.WrapEffects(fromDeployAcceptor, r.deployAcceptor.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchGossiper(eb effect.Builder, rng rng.NodeRng, ev gossiper.Event) effect.Effects[Event] {
	return reactor.WrapEffects(fromGossiper, r.gossiper.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchChainspecLoader(eb effect.Builder, rng rng.NodeRng, ev chainspecloader.Event) effect.Effects[Event] {
	return reactor.WrapEffects(fromChainspecLoader, r.chainspecLoader.HandleEvent(eb, rng, ev))
}

// dispatchEventStreamServer drops events when the server is disabled, since
// they are fanned out from announcements rather than requested by it.
func (r *Reactor) dispatchEventStreamServer(eb effect.Builder, rng rng.NodeRng, ev eventstreamserver.Event) effect.Effects[Event] {
	if r.eventStreamServer == nil {
		return nil
	}
	return reactor.WrapEffects(fromEventStreamServer, r.eventStreamServer.HandleEvent(eb, rng, ev))
}

// Address is where peers reach the node.
func (r *Reactor) Address() string {
	return r.network.Address()
}

// RestAddress is empty when the REST server is disabled.
func (r *Reactor) RestAddress() string {
	if r.restServer == nil {
		return ""
	}
	return r.restServer.Address()
}

// RpcAddress is empty when the RPC server is disabled.
func (r *Reactor) RpcAddress() string {
	if r.rpcServer == nil {
		return ""
	}
	return r.rpcServer.Address()
}

// EventStreamAddress is empty when the event stream server is disabled.
func (r *Reactor) EventStreamAddress() string {
	if r.eventStreamServer == nil {
		return ""
	}
	return r.eventStreamServer.Address()
}

// Storage gives read access to the chain, mostly for tests and tooling.
func (r *Reactor) Storage() *storage.Storage {
	return r.storage
}

// Close stops the servers and the network, then closes the contract runtime
// and storage. The runner driving the reactor must be shut down first.
func (r *Reactor) Close() error {
	var result error
	closers := []func() error{}
	if r.eventStreamServer != nil {
		closers = append(closers, r.eventStreamServer.Close)
	}
	if r.rpcServer != nil {
		closers = append(closers, r.rpcServer.Close)
	}
	if r.restServer != nil {
		closers = append(closers, r.restServer.Close)
	}
	if r.network != nil {
		closers = append(closers, r.network.Close)
	}
	if r.contractRuntime != nil {
		closers = append(closers, r.contractRuntime.Close)
	}
	if r.storage != nil {
		closers = append(closers, r.storage.Close)
	}
	for _, c := range closers {
		if err := c(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	r.eventStreamServer, r.rpcServer, r.restServer, r.network = nil, nil, nil, nil
	r.contractRuntime, r.storage = nil, nil
	return result
}
