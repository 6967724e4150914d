package effect

import (
	"fmt"

	"github.com/shivlim/casper-node/src/queue"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
)

// ChainspecLoaderAnnouncement is made by the chainspec loader when an upgrade point activates.
type ChainspecLoaderAnnouncement struct {
	// UpgradeActivated is the upgrade that took effect at its activation
	// point.
	UpgradeActivated chainspec.UpgradePoint
}

// String describes the announcement.
func (a ChainspecLoaderAnnouncement) String() string {
	return fmt.Sprintf("upgrade to %s activated at height %d", &a.UpgradeActivated.ProtocolVersion, a.UpgradeActivated.ActivationPoint)
}

// ChainspecLoaderAnnouncementEmbedder wraps chainspec loader announcements into reactor events.
type ChainspecLoaderAnnouncementEmbedder[REv any] interface {
	FromChainspecLoaderAnnouncement(ChainspecLoaderAnnouncement) REv
}

// AnnounceUpgradeActivated announces that the upgrade u is now active.
func AnnounceUpgradeActivated[REv any](b Builder, emb ChainspecLoaderAnnouncementEmbedder[REv], u chainspec.UpgradePoint) Future[struct{}] {
	return Announce(b, emb.FromChainspecLoaderAnnouncement(ChainspecLoaderAnnouncement{UpgradeActivated: u}), queue.Regular)
}

// NetworkAnnouncement is made by the network component.
type NetworkAnnouncement interface {
	fmt.Stringer
	networkAnnouncement()
}

// MessageReceived carries a message received from a connected peer.
type MessageReceived struct {
	Sender  types.NodeID
	Payload types.Message
}

// NewPeer is announced when a connection to a peer completes its handshake.
type NewPeer struct {
	ID types.NodeID
}

func (MessageReceived) networkAnnouncement() {}
func (NewPeer) networkAnnouncement()         {}

func (a MessageReceived) String() string { return fmt.Sprintf("received %s from %s", a.Payload, a.Sender) }
func (a NewPeer) String() string         { return fmt.Sprintf("new peer %s", a.ID) }

// NetworkAnnouncementEmbedder wraps network announcements into reactor events.
type NetworkAnnouncementEmbedder[REv any] interface {
	FromNetworkAnnouncement(NetworkAnnouncement) REv
}

// AnnounceMessageReceived announces a payload received from sender.
func AnnounceMessageReceived[REv any](b Builder, emb NetworkAnnouncementEmbedder[REv], sender types.NodeID, payload types.Message) Future[struct{}] {
	return Announce(b, emb.FromNetworkAnnouncement(MessageReceived{Sender: sender, Payload: payload}), queue.NetworkIncoming)
}

// AnnounceNewPeer announces a freshly connected peer.
func AnnounceNewPeer[REv any](b Builder, emb NetworkAnnouncementEmbedder[REv], id types.NodeID) Future[struct{}] {
	return Announce(b, emb.FromNetworkAnnouncement(NewPeer{ID: id}), queue.NetworkIncoming)
}

// APIServerAnnouncement is made when a client submits a deploy through an API server.
type APIServerAnnouncement struct {
	// DeployReceived came from a client.
	DeployReceived *types.Deploy
	// Responder, if set, is answered with the acceptance outcome.
	Responder Responder[error]
}

// String describes the announcement.
func (a APIServerAnnouncement) String() string {
	return fmt.Sprintf("deploy %s received from client", a.DeployReceived.Hash)
}

// APIServerAnnouncementEmbedder wraps API server announcements into reactor events.
type APIServerAnnouncementEmbedder[REv any] interface {
	FromAPIServerAnnouncement(APIServerAnnouncement) REv
}

// AnnounceDeployReceived hands a client deploy to the reactor. The outcome of acceptance is sent to responder.
func AnnounceDeployReceived[REv any](b Builder, emb APIServerAnnouncementEmbedder[REv], d *types.Deploy, responder Responder[error]) Future[struct{}] {
	return Announce(b, emb.FromAPIServerAnnouncement(APIServerAnnouncement{DeployReceived: d, Responder: responder}), queue.API)
}

// Source tells where a deploy came from. The zero value is a client.
type Source struct {
	Peer *types.NodeID
}

// IsClient reports whether the deploy came from an API client rather than a peer.
func (s Source) IsClient() bool {
	return s.Peer == nil
}

// PeerSource returns the source for a deploy gossiped by peer id.
func PeerSource(id types.NodeID) Source {
	return Source{Peer: &id}
}

// String describes the announcement.
func (s Source) String() string {
	if s.Peer == nil {
		return "client"
	}
	return s.Peer.String()
}

// DeployAcceptorAnnouncement is made by the deploy acceptor once a deploy is checked.
type DeployAcceptorAnnouncement interface {
	fmt.Stringer
	deployAcceptorAnnouncement()
}

// AcceptedDeploy is announced once per deploy, the first time it is stored.
type AcceptedDeploy struct {
	Deploy *types.Deploy
	Source Source
}

// InvalidDeploy announces a deploy that failed acceptance.
type InvalidDeploy struct {
	Deploy *types.Deploy
	Source Source
	Err    error
}

func (AcceptedDeploy) deployAcceptorAnnouncement() {}
func (InvalidDeploy) deployAcceptorAnnouncement()  {}

func (a AcceptedDeploy) String() string {
	return fmt.Sprintf("accepted deploy %s from %s", a.Deploy.Hash, a.Source)
}
func (a InvalidDeploy) String() string {
	return fmt.Sprintf("invalid deploy %s from %s: %v", a.Deploy.Hash, a.Source, a.Err)
}

// DeployAcceptorAnnouncementEmbedder wraps deploy acceptor announcements into reactor events.
type DeployAcceptorAnnouncementEmbedder[REv any] interface {
	FromDeployAcceptorAnnouncement(DeployAcceptorAnnouncement) REv
}

// AnnounceDeployAccepted announces a new, valid deploy.
func AnnounceDeployAccepted[REv any](b Builder, emb DeployAcceptorAnnouncementEmbedder[REv], d *types.Deploy, source Source) Future[struct{}] {
	return Announce(b, emb.FromDeployAcceptorAnnouncement(AcceptedDeploy{Deploy: d, Source: source}), queue.Regular)
}

// AnnounceInvalidDeploy announces a deploy rejected with err.
func AnnounceInvalidDeploy[REv any](b Builder, emb DeployAcceptorAnnouncementEmbedder[REv], d *types.Deploy, source Source, err error) Future[struct{}] {
	return Announce(b, emb.FromDeployAcceptorAnnouncement(InvalidDeploy{Deploy: d, Source: source, Err: err}), queue.Regular)
}

// ConsensusAnnouncement carries a block finalized by consensus.
type ConsensusAnnouncement struct {
	Finalized *types.FinalizedBlock
}

// String describes the announcement.
func (a ConsensusAnnouncement) String() string {
	return fmt.Sprintf("finalized block at height %d with %d deploys", a.Finalized.Height, len(a.Finalized.Deploys))
}

// ConsensusAnnouncementEmbedder wraps consensus announcements into reactor events.
type ConsensusAnnouncementEmbedder[REv any] interface {
	FromConsensusAnnouncement(ConsensusAnnouncement) REv
}

// AnnounceFinalized announces a finalized block.
func AnnounceFinalized[REv any](b Builder, emb ConsensusAnnouncementEmbedder[REv], fb *types.FinalizedBlock) Future[struct{}] {
	return Announce(b, emb.FromConsensusAnnouncement(ConsensusAnnouncement{Finalized: fb}), queue.Regular)
}

// BlockExecutorAnnouncement carries an executed block together with its deploy results.
type BlockExecutorAnnouncement struct {
	Block   *types.Block
	Results []types.ExecutionResult
}

// String describes the announcement.
func (a BlockExecutorAnnouncement) String() string {
	return fmt.Sprintf("executed %s", a.Block)
}

// BlockExecutorAnnouncementEmbedder wraps block executor announcements into reactor events.
type BlockExecutorAnnouncementEmbedder[REv any] interface {
	FromBlockExecutorAnnouncement(BlockExecutorAnnouncement) REv
}

// AnnounceBlockExecuted announces that block was executed.
func AnnounceBlockExecuted[REv any](b Builder, emb BlockExecutorAnnouncementEmbedder[REv], block *types.Block, results []types.ExecutionResult) Future[struct{}] {
	return Announce(b, emb.FromBlockExecutorAnnouncement(BlockExecutorAnnouncement{Block: block, Results: results}), queue.Regular)
}

// LinearChainAnnouncement carries a block appended to the linear chain.
type LinearChainAnnouncement struct {
	BlockAdded *types.Block
}

// String describes the announcement.
func (a LinearChainAnnouncement) String() string {
	return fmt.Sprintf("added %s", a.BlockAdded)
}

// LinearChainAnnouncementEmbedder wraps linear chain announcements into reactor events.
type LinearChainAnnouncementEmbedder[REv any] interface {
	FromLinearChainAnnouncement(LinearChainAnnouncement) REv
}

// AnnounceBlockAdded announces a block stored as the new tip.
func AnnounceBlockAdded[REv any](b Builder, emb LinearChainAnnouncementEmbedder[REv], block *types.Block) Future[struct{}] {
	return Announce(b, emb.FromLinearChainAnnouncement(LinearChainAnnouncement{BlockAdded: block}), queue.Regular)
}

// GossiperAnnouncement is made for every deploy a peer gossiped to us that we
// had not seen before.
type GossiperAnnouncement struct {
	NewDeploy *types.Deploy
	Sender    types.NodeID
}

func (a GossiperAnnouncement) String() string {
	return fmt.Sprintf("deploy %s gossiped by %s", a.NewDeploy.Hash, a.Sender)
}

// GossiperAnnouncementEmbedder wraps gossiper announcements into reactor events.
type GossiperAnnouncementEmbedder[REv any] interface {
	FromGossiperAnnouncement(GossiperAnnouncement) REv
}

// AnnounceGossipedDeploy announces a deploy gossiped to us by sender.
func AnnounceGossipedDeploy[REv any](b Builder, emb GossiperAnnouncementEmbedder[REv], d *types.Deploy, sender types.NodeID) Future[struct{}] {
	return Announce(b, emb.FromGossiperAnnouncement(GossiperAnnouncement{NewDeploy: d, Sender: sender}), queue.NetworkIncoming)
}
