package validator

import (
	"fmt"

	"github.com/shivlim/casper-node/src/components/blockexecutor"
	"github.com/shivlim/casper-node/src/components/blockproposer"
	"github.com/shivlim/casper-node/src/components/blockvalidator"
	"github.com/shivlim/casper-node/src/components/chainspecloader"
	"github.com/shivlim/casper-node/src/components/consensus"
	"github.com/shivlim/casper-node/src/components/deployacceptor"
	"github.com/shivlim/casper-node/src/components/eventstreamserver"
	"github.com/shivlim/casper-node/src/components/gossiper"
	"github.com/shivlim/casper-node/src/components/linearchain"
	"github.com/shivlim/casper-node/src/components/restserver"
	"github.com/shivlim/casper-node/src/components/rpcserver"
	"github.com/shivlim/casper-node/src/components/smallnetwork"
	"github.com/shivlim/casper-node/src/effect"
)

// Event is the validator's top level event: one variant per hosted
// component, plus the announcements the reactor fans out.
//
// Requests have no variants of their own. The embedder wraps each request
// straight into the event of the component serving it.
type Event interface {
	fmt.Stringer
	validatorEvent()
}

// Component events.
type (
	NetworkEvent           struct{ Event smallnetwork.Event }
	ConsensusEvent         struct{ Event consensus.Event }
	BlockProposerEvent     struct{ Event blockproposer.Event }
	BlockValidatorEvent    struct{ Event blockvalidator.Event }
	BlockExecutorEvent     struct{ Event blockexecutor.Event }
	LinearChainEvent       struct{ Event linearchain.Event }
	DeployAcceptorEvent    struct{ Event deployacceptor.Event }
	GossiperEvent          struct{ Event gossiper.Event }
	ChainspecLoaderEvent   struct{ Event chainspecloader.Event }
	StorageEvent           struct{ Request effect.StorageRequest }
	ContractRuntimeEvent   struct{ Request effect.ContractRuntimeRequest }
	RestServerEvent        struct{ Event restserver.Event }
	RpcServerEvent         struct{ Event rpcserver.Event }
	EventStreamServerEvent struct{ Event eventstreamserver.Event }
)

// Announcements.
type (
	NetworkAnnouncement         struct{ Announcement effect.NetworkAnnouncement }
	ConsensusAnnouncement       struct{ Announcement effect.ConsensusAnnouncement }
	BlockExecutorAnnouncement   struct{ Announcement effect.BlockExecutorAnnouncement }
	LinearChainAnnouncement     struct{ Announcement effect.LinearChainAnnouncement }
	DeployAcceptorAnnouncement  struct{ Announcement effect.DeployAcceptorAnnouncement }
	GossiperAnnouncement        struct{ Announcement effect.GossiperAnnouncement }
	APIServerAnnouncement       struct{ Announcement effect.APIServerAnnouncement }
	ChainspecLoaderAnnouncement struct{ Announcement effect.ChainspecLoaderAnnouncement }
)

func (NetworkEvent) validatorEvent()           {}
func (ConsensusEvent) validatorEvent()         {}
func (BlockProposerEvent) validatorEvent()     {}
func (BlockValidatorEvent) validatorEvent()    {}
func (BlockExecutorEvent) validatorEvent()     {}
func (LinearChainEvent) validatorEvent()       {}
func (DeployAcceptorEvent) validatorEvent()    {}
func (GossiperEvent) validatorEvent()          {}
func (ChainspecLoaderEvent) validatorEvent()   {}
func (StorageEvent) validatorEvent()           {}
func (ContractRuntimeEvent) validatorEvent()   {}
func (RestServerEvent) validatorEvent()        {}
func (RpcServerEvent) validatorEvent()         {}
func (EventStreamServerEvent) validatorEvent() {}

func (NetworkAnnouncement) validatorEvent()         {}
func (ConsensusAnnouncement) validatorEvent()       {}
func (BlockExecutorAnnouncement) validatorEvent()   {}
func (LinearChainAnnouncement) validatorEvent()     {}
func (DeployAcceptorAnnouncement) validatorEvent()  {}
func (GossiperAnnouncement) validatorEvent()        {}
func (APIServerAnnouncement) validatorEvent()       {}
func (ChainspecLoaderAnnouncement) validatorEvent() {}

func (e NetworkEvent) String() string           { return fmt.Sprintf("network: %s", e.Event) }
func (e ConsensusEvent) String() string         { return fmt.Sprintf("consensus: %s", e.Event) }
func (e BlockProposerEvent) String() string     { return fmt.Sprintf("block proposer: %s", e.Event) }
func (e BlockValidatorEvent) String() string    { return fmt.Sprintf("block validator: %s", e.Event) }
func (e BlockExecutorEvent) String() string     { return fmt.Sprintf("block executor: %s", e.Event) }
func (e LinearChainEvent) String() string       { return fmt.Sprintf("linear chain: %s", e.Event) }
func (e DeployAcceptorEvent) String() string    { return fmt.Sprintf("deploy acceptor: %s", e.Event) }
func (e GossiperEvent) String() string          { return fmt.Sprintf("gossiper: %s", e.Event) }
func (e ChainspecLoaderEvent) String() string   { return fmt.Sprintf("chainspec loader: %s", e.Event) }
func (e StorageEvent) String() string           { return fmt.Sprintf("storage: %s", e.Request) }
func (e ContractRuntimeEvent) String() string   { return fmt.Sprintf("contract runtime: %s", e.Request) }
func (e RestServerEvent) String() string        { return fmt.Sprintf("rest server: %s", e.Event) }
func (e RpcServerEvent) String() string         { return fmt.Sprintf("rpc server: %s", e.Event) }
func (e EventStreamServerEvent) String() string { return fmt.Sprintf("event stream server: %s", e.Event) }

func (e NetworkAnnouncement) String() string { return fmt.Sprintf("network announcement: %s", e.Announcement) }
func (e ConsensusAnnouncement) String() string {
	return fmt.Sprintf("consensus announcement: %s", e.Announcement)
}
func (e BlockExecutorAnnouncement) String() string {
	return fmt.Sprintf("block executor announcement: %s", e.Announcement)
}
func (e LinearChainAnnouncement) String() string {
	return fmt.Sprintf("linear chain announcement: %s", e.Announcement)
}
func (e DeployAcceptorAnnouncement) String() string {
	return fmt.Sprintf("deploy acceptor announcement: %s", e.Announcement)
}
func (e GossiperAnnouncement) String() string {
	return fmt.Sprintf("gossiper announcement: %s", e.Announcement)
}
func (e APIServerAnnouncement) String() string {
	return fmt.Sprintf("api server announcement: %s", e.Announcement)
}
func (e ChainspecLoaderAnnouncement) String() string {
	return fmt.Sprintf("chainspec loader announcement: %s", e.Announcement)
}

// embedder turns the requests and announcements of hosted components into
// validator events.
type embedder struct{}

func (embedder) FromStorageRequest(r effect.StorageRequest) Event {
	return StorageEvent{Request: r}
}

func (embedder) FromContractRuntimeRequest(r effect.ContractRuntimeRequest) Event {
	return ContractRuntimeEvent{Request: r}
}

func (embedder) FromNetworkRequest(r effect.NetworkRequest) Event {
	return NetworkEvent{Event: smallnetwork.NetworkRequest{Request: r}}
}

func (embedder) FromNetworkInfoRequest(r effect.NetworkInfoRequest) Event {
	return NetworkEvent{Event: smallnetwork.NetworkInfoRequest{Request: r}}
}

func (embedder) FromBlockProposerRequest(r effect.BlockProposerRequest) Event {
	return BlockProposerEvent{Event: blockproposer.Request{Request: r}}
}

func (embedder) FromBlockValidationRequest(r effect.BlockValidationRequest) Event {
	return BlockValidatorEvent{Event: blockvalidator.Request{Request: r}}
}

func (embedder) FromLinearChainRequest(r effect.LinearChainRequest) Event {
	return LinearChainEvent{Event: linearchain.Request{Request: r}}
}

func (embedder) FromRestRequest(r effect.RestRequest) Event {
	return RestServerEvent{Event: restserver.Request{RestRequest: r}}
}

func (embedder) FromRpcRequest(r effect.RpcRequest) Event {
	return RpcServerEvent{Event: rpcserver.Request{RpcRequest: r}}
}

func (embedder) FromNetworkAnnouncement(a effect.NetworkAnnouncement) Event {
	return NetworkAnnouncement{Announcement: a}
}

func (embedder) FromConsensusAnnouncement(a effect.ConsensusAnnouncement) Event {
	return ConsensusAnnouncement{Announcement: a}
}

func (embedder) FromBlockExecutorAnnouncement(a effect.BlockExecutorAnnouncement) Event {
	return BlockExecutorAnnouncement{Announcement: a}
}

func (embedder) FromLinearChainAnnouncement(a effect.LinearChainAnnouncement) Event {
	return LinearChainAnnouncement{Announcement: a}
}

func (embedder) FromDeployAcceptorAnnouncement(a effect.DeployAcceptorAnnouncement) Event {
	return DeployAcceptorAnnouncement{Announcement: a}
}

func (embedder) FromGossiperAnnouncement(a effect.GossiperAnnouncement) Event {
	return GossiperAnnouncement{Announcement: a}
}

func (embedder) FromAPIServerAnnouncement(a effect.APIServerAnnouncement) Event {
	return APIServerAnnouncement{Announcement: a}
}

func (embedder) FromChainspecLoaderAnnouncement(a effect.ChainspecLoaderAnnouncement) Event {
	return ChainspecLoaderAnnouncement{Announcement: a}
}

func fromNetwork(ev smallnetwork.Event) Event            { return NetworkEvent{Event: ev} }
func fromConsensus(ev consensus.Event) Event             { return ConsensusEvent{Event: ev} }
func fromBlockProposer(ev blockproposer.Event) Event     { return BlockProposerEvent{Event: ev} }
func fromBlockValidator(ev blockvalidator.Event) Event   { return BlockValidatorEvent{Event: ev} }
func fromBlockExecutor(ev blockexecutor.Event) Event     { return BlockExecutorEvent{Event: ev} }
func fromLinearChain(ev linearchain.Event) Event         { return LinearChainEvent{Event: ev} }
func fromDeployAcceptor(ev deployacceptor.Event) Event   { return DeployAcceptorEvent{Event: ev} }
func fromGossiper(ev gossiper.Event) Event               { return GossiperEvent{Event: ev} }
func fromChainspecLoader(ev chainspecloader.Event) Event { return ChainspecLoaderEvent{Event: ev} }
func fromRestServer(ev restserver.Event) Event           { return RestServerEvent{Event: ev} }
func fromRpcServer(ev rpcserver.Event) Event             { return RpcServerEvent{Event: ev} }
func fromEventStreamServer(ev eventstreamserver.Event) Event {
	return EventStreamServerEvent{Event: ev}
}
