package effect

import (
	"fmt"

	"github.com/shivlim/casper-node/src/queue"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
)

// StorageRequest is answered by the storage component.
type StorageRequest interface {
	fmt.Stringer
	storageRequest()
}

// PutBlockRequest answers true if the block was not stored before.
type PutBlockRequest struct {
	Block     *types.Block
	Responder Responder[bool]
}

// GetBlockRequest answers nil if the block is unknown.
type GetBlockRequest struct {
	Hash      types.BlockHash
	Responder Responder[*types.Block]
}

// GetBlockAtHeightRequest answers nil if no block is stored at Height.
type GetBlockAtHeightRequest struct {
	Height    uint64
	Responder Responder[*types.Block]
}

// GetHighestBlockRequest answers nil on an empty chain.
type GetHighestBlockRequest struct {
	Responder Responder[*types.Block]
}

// PutDeployRequest answers true if the deploy was not stored before.
type PutDeployRequest struct {
	Deploy    *types.Deploy
	Responder Responder[bool]
}

// GetDeploysRequest answers one entry per hash, nil where unknown.
type GetDeploysRequest struct {
	Hashes    []types.DeployHash
	Responder Responder[[]*types.Deploy]
}

// PutChainspecRequest stores a chainspec under its protocol version.
type PutChainspecRequest struct {
	Chainspec *chainspec.Chainspec
	Responder Responder[struct{}]
}

// GetChainspecRequest answers nil if no chainspec is stored for Version.
type GetChainspecRequest struct {
	Version   string
	Responder Responder[*chainspec.Chainspec]
}

func (PutBlockRequest) storageRequest()         {}
func (GetBlockRequest) storageRequest()         {}
func (GetBlockAtHeightRequest) storageRequest() {}
func (GetHighestBlockRequest) storageRequest()  {}
func (PutDeployRequest) storageRequest()        {}
func (GetDeploysRequest) storageRequest()       {}
func (PutChainspecRequest) storageRequest()     {}
func (GetChainspecRequest) storageRequest()     {}

func (r PutBlockRequest) String() string { return fmt.Sprintf("put %s", r.Block) }
func (r GetBlockRequest) String() string { return fmt.Sprintf("get block %s", r.Hash) }
func (r GetBlockAtHeightRequest) String() string {
	return fmt.Sprintf("get block at height %d", r.Height)
}
func (GetHighestBlockRequest) String() string { return "get highest block" }
func (r PutDeployRequest) String() string     { return fmt.Sprintf("put deploy %s", r.Deploy.Hash) }
func (r GetDeploysRequest) String() string    { return fmt.Sprintf("get %d deploys", len(r.Hashes)) }
func (r PutChainspecRequest) String() string {
	return fmt.Sprintf("put chainspec %s", r.Chainspec.Genesis.ProtocolVersion)
}
func (r GetChainspecRequest) String() string { return fmt.Sprintf("get chainspec %s", r.Version) }

// StorageRequestEmbedder wraps storage requests into the reactor event type.
type StorageRequestEmbedder[REv any] interface {
	FromStorageRequest(StorageRequest) REv
}

// PutBlockToStorage stores block. The future yields false if it was already stored.
func PutBlockToStorage[REv any](b Builder, emb StorageRequestEmbedder[REv], block *types.Block) Future[bool] {
	return MakeRequest(b, func(r Responder[bool]) REv {
		return emb.FromStorageRequest(PutBlockRequest{Block: block, Responder: r})
	}, queue.Regular)
}

// GetBlockFromStorage loads a block by hash, nil when unknown.
func GetBlockFromStorage[REv any](b Builder, emb StorageRequestEmbedder[REv], hash types.BlockHash) Future[*types.Block] {
	return MakeRequest(b, func(r Responder[*types.Block]) REv {
		return emb.FromStorageRequest(GetBlockRequest{Hash: hash, Responder: r})
	}, queue.Regular)
}

// GetBlockAtHeightFromStorage loads the block at height, nil when unknown.
func GetBlockAtHeightFromStorage[REv any](b Builder, emb StorageRequestEmbedder[REv], height uint64) Future[*types.Block] {
	return MakeRequest(b, func(r Responder[*types.Block]) REv {
		return emb.FromStorageRequest(GetBlockAtHeightRequest{Height: height, Responder: r})
	}, queue.Regular)
}

// GetHighestBlockFromStorage loads the highest stored block, nil on an empty chain.
func GetHighestBlockFromStorage[REv any](b Builder, emb StorageRequestEmbedder[REv]) Future[*types.Block] {
	return MakeRequest(b, func(r Responder[*types.Block]) REv {
		return emb.FromStorageRequest(GetHighestBlockRequest{Responder: r})
	}, queue.Regular)
}

// PutDeployToStorage stores d. The future yields false if it was already stored.
func PutDeployToStorage[REv any](b Builder, emb StorageRequestEmbedder[REv], d *types.Deploy) Future[bool] {
	return MakeRequest(b, func(r Responder[bool]) REv {
		return emb.FromStorageRequest(PutDeployRequest{Deploy: d, Responder: r})
	}, queue.Regular)
}

// GetDeploysFromStorage loads deploys by hash, with nil entries for unknown ones.
func GetDeploysFromStorage[REv any](b Builder, emb StorageRequestEmbedder[REv], hashes []types.DeployHash) Future[[]*types.Deploy] {
	return MakeRequest(b, func(r Responder[[]*types.Deploy]) REv {
		return emb.FromStorageRequest(GetDeploysRequest{Hashes: hashes, Responder: r})
	}, queue.Regular)
}

// PutChainspecToStorage stores c.
func PutChainspecToStorage[REv any](b Builder, emb StorageRequestEmbedder[REv], c *chainspec.Chainspec) Future[struct{}] {
	return MakeRequest(b, func(r Responder[struct{}]) REv {
		return emb.FromStorageRequest(PutChainspecRequest{Chainspec: c, Responder: r})
	}, queue.Regular)
}

// GetChainspecFromStorage loads the chainspec of version, nil when unknown.
func GetChainspecFromStorage[REv any](b Builder, emb StorageRequestEmbedder[REv], version string) Future[*chainspec.Chainspec] {
	return MakeRequest(b, func(r Responder[*chainspec.Chainspec]) REv {
		return emb.FromStorageRequest(GetChainspecRequest{Version: version, Responder: r})
	}, queue.Regular)
}

// ContractRuntimeRequest is answered by the contract runtime.
type ContractRuntimeRequest interface {
	fmt.Stringer
	contractRuntimeRequest()
}

// GenesisResult is the outcome of committing genesis.
type GenesisResult struct {
	StateRoot types.Digest
	Err       error
}

// ExecuteResult is the outcome of executing the deploys of one block.
type ExecuteResult struct {
	StateRoot types.Digest
	Results   []types.ExecutionResult
	Err       error
}

// BalanceResult answers a balance query. Found is false for unknown accounts.
type BalanceResult struct {
	Balance types.Motes
	Found   bool
	Err     error
}

// CommitGenesisRequest writes the genesis accounts into empty global state.
type CommitGenesisRequest struct {
	Chainspec *chainspec.Chainspec
	Responder Responder[GenesisResult]
}

// ExecuteRequest applies Deploys in order on top of ParentStateRoot.
type ExecuteRequest struct {
	ParentStateRoot types.Digest
	Deploys         []*types.Deploy
	Responder       Responder[ExecuteResult]
}

// GetBalanceRequest reads an account balance under StateRoot.
type GetBalanceRequest struct {
	StateRoot types.Digest
	Account   types.AccountHash
	Responder Responder[BalanceResult]
}

func (CommitGenesisRequest) contractRuntimeRequest() {}
func (ExecuteRequest) contractRuntimeRequest()       {}
func (GetBalanceRequest) contractRuntimeRequest()    {}

func (r CommitGenesisRequest) String() string {
	return fmt.Sprintf("commit genesis %s", r.Chainspec.Genesis.Name)
}
func (r ExecuteRequest) String() string {
	return fmt.Sprintf("execute %d deploys on %s", len(r.Deploys), r.ParentStateRoot)
}
func (r GetBalanceRequest) String() string { return fmt.Sprintf("get balance of %s", r.Account) }

// ContractRuntimeRequestEmbedder wraps contract runtime requests into reactor events.
type ContractRuntimeRequestEmbedder[REv any] interface {
	FromContractRuntimeRequest(ContractRuntimeRequest) REv
}

// CommitGenesis writes the genesis accounts of c into global state.
func CommitGenesis[REv any](b Builder, emb ContractRuntimeRequestEmbedder[REv], c *chainspec.Chainspec) Future[GenesisResult] {
	return MakeRequest(b, func(r Responder[GenesisResult]) REv {
		return emb.FromContractRuntimeRequest(CommitGenesisRequest{Chainspec: c, Responder: r})
	}, queue.Regular)
}

// ExecuteDeploys executes deploys on top of the state at root.
func ExecuteDeploys[REv any](b Builder, emb ContractRuntimeRequestEmbedder[REv], root types.Digest, deploys []*types.Deploy) Future[ExecuteResult] {
	return MakeRequest(b, func(r Responder[ExecuteResult]) REv {
		return emb.FromContractRuntimeRequest(ExecuteRequest{ParentStateRoot: root, Deploys: deploys, Responder: r})
	}, queue.Regular)
}

// GetBalance reads the balance of account in the state at root.
func GetBalance[REv any](b Builder, emb ContractRuntimeRequestEmbedder[REv], root types.Digest, account types.AccountHash) Future[BalanceResult] {
	return MakeRequest(b, func(r Responder[BalanceResult]) REv {
		return emb.FromContractRuntimeRequest(GetBalanceRequest{StateRoot: root, Account: account, Responder: r})
	}, queue.Regular)
}

// NetworkRequest is answered by the network component.
type NetworkRequest interface {
	fmt.Stringer
	networkRequest()
}

// SendMessageRequest sends Payload to a single peer. The answer only means
// the message was handed to the connection.
type SendMessageRequest struct {
	Dest      types.NodeID
	Payload   types.Message
	Responder Responder[struct{}]
}

// BroadcastRequest sends Payload to every connected peer.
type BroadcastRequest struct {
	Payload   types.Message
	Responder Responder[struct{}]
}

// GossipRequest sends Payload to up to Count random peers not in Exclude and
// answers the peers chosen.
type GossipRequest struct {
	Payload   types.Message
	Count     int
	Exclude   []types.NodeID
	Responder Responder[[]types.NodeID]
}

func (SendMessageRequest) networkRequest() {}
func (BroadcastRequest) networkRequest()   {}
func (GossipRequest) networkRequest()      {}

func (r SendMessageRequest) String() string { return fmt.Sprintf("send %s to %s", r.Payload, r.Dest) }
func (r BroadcastRequest) String() string   { return fmt.Sprintf("broadcast %s", r.Payload) }
func (r GossipRequest) String() string {
	return fmt.Sprintf("gossip %s to %d peers", r.Payload, r.Count)
}

// NetworkRequestEmbedder wraps network requests into reactor events.
type NetworkRequestEmbedder[REv any] interface {
	FromNetworkRequest(NetworkRequest) REv
}

// SendMessage sends payload to a single peer.
func SendMessage[REv any](b Builder, emb NetworkRequestEmbedder[REv], dest types.NodeID, payload types.Message) Future[struct{}] {
	return MakeRequest(b, func(r Responder[struct{}]) REv {
		return emb.FromNetworkRequest(SendMessageRequest{Dest: dest, Payload: payload, Responder: r})
	}, queue.Network)
}

// Broadcast sends payload to every connected peer.
func Broadcast[REv any](b Builder, emb NetworkRequestEmbedder[REv], payload types.Message) Future[struct{}] {
	return MakeRequest(b, func(r Responder[struct{}]) REv {
		return emb.FromNetworkRequest(BroadcastRequest{Payload: payload, Responder: r})
	}, queue.Network)
}

// Gossip sends payload to up to count random peers outside exclude, and yields the peers reached.
func Gossip[REv any](b Builder, emb NetworkRequestEmbedder[REv], payload types.Message, count int, exclude []types.NodeID) Future[[]types.NodeID] {
	return MakeRequest(b, func(r Responder[[]types.NodeID]) REv {
		return emb.FromNetworkRequest(GossipRequest{Payload: payload, Count: count, Exclude: exclude, Responder: r})
	}, queue.Network)
}

// NetworkInfoRequest asks the network component about its peers.
type NetworkInfoRequest interface {
	fmt.Stringer
	networkInfoRequest()
}

// GetPeersRequest answers the connected peers and their addresses.
type GetPeersRequest struct {
	Responder Responder[map[types.NodeID]string]
}

func (GetPeersRequest) networkInfoRequest() {}

func (GetPeersRequest) String() string { return "get peers" }

// NetworkInfoRequestEmbedder wraps network info requests into reactor events.
type NetworkInfoRequestEmbedder[REv any] interface {
	FromNetworkInfoRequest(NetworkInfoRequest) REv
}

// NetworkPeers yields the connected peers keyed by node id.
func NetworkPeers[REv any](b Builder, emb NetworkInfoRequestEmbedder[REv]) Future[map[types.NodeID]string] {
	return MakeRequest(b, func(r Responder[map[types.NodeID]string]) REv {
		return emb.FromNetworkInfoRequest(GetPeersRequest{Responder: r})
	}, queue.API)
}

// BlockProposerRequest asks for deploys to include in the next proposal.
type BlockProposerRequest struct {
	// Max is the largest number of deploys to answer.
	Max         int
	CurrentTime types.Timestamp
	Responder   Responder[[]types.DeployHash]
}

// String describes the request.
func (r BlockProposerRequest) String() string {
	return fmt.Sprintf("list up to %d deploys for inclusion", r.Max)
}

// BlockProposerRequestEmbedder wraps block proposer requests into reactor events.
type BlockProposerRequestEmbedder[REv any] interface {
	FromBlockProposerRequest(BlockProposerRequest) REv
}

// RequestProposableDeploys yields up to max deploys still valid at now.
func RequestProposableDeploys[REv any](b Builder, emb BlockProposerRequestEmbedder[REv], max int, now types.Timestamp) Future[[]types.DeployHash] {
	return MakeRequest(b, func(r Responder[[]types.DeployHash]) REv {
		return emb.FromBlockProposerRequest(BlockProposerRequest{Max: max, CurrentTime: now, Responder: r})
	}, queue.Regular)
}

// BlockValidationRequest asks whether every deploy of Block is known and
// valid. Sender is the peer the block came from.
type BlockValidationRequest struct {
	Block     *types.FinalizedBlock
	Sender    types.NodeID
	Responder Responder[bool]
}

// String describes the request.
func (r BlockValidationRequest) String() string {
	return fmt.Sprintf("validate block at height %d from %s", r.Block.Height, r.Sender)
}

// BlockValidationRequestEmbedder wraps block validation requests into reactor events.
type BlockValidationRequestEmbedder[REv any] interface {
	FromBlockValidationRequest(BlockValidationRequest) REv
}

// ValidateBlock checks that every deploy of block is known, fetching from sender if needed.
func ValidateBlock[REv any](b Builder, emb BlockValidationRequestEmbedder[REv], sender types.NodeID, block *types.FinalizedBlock) Future[bool] {
	return MakeRequest(b, func(r Responder[bool]) REv {
		return emb.FromBlockValidationRequest(BlockValidationRequest{Block: block, Sender: sender, Responder: r})
	}, queue.Regular)
}

// LinearChainRequest is served by the linear chain.
type LinearChainRequest interface {
	fmt.Stringer
	linearChainRequest()
}

// GetTipRequest answers the most recently added block, nil before the first.
type GetTipRequest struct {
	Responder Responder[*types.Block]
}

func (GetTipRequest) linearChainRequest() {}

func (GetTipRequest) String() string { return "get tip" }

// LinearChainRequestEmbedder wraps linear chain requests into reactor events.
type LinearChainRequestEmbedder[REv any] interface {
	FromLinearChainRequest(LinearChainRequest) REv
}

// GetTip yields the current tip of the linear chain.
func GetTip[REv any](b Builder, emb LinearChainRequestEmbedder[REv]) Future[*types.Block] {
	return MakeRequest(b, func(r Responder[*types.Block]) REv {
		return emb.FromLinearChainRequest(GetTipRequest{Responder: r})
	}, queue.Regular)
}
