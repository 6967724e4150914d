package effect

import (
	"fmt"

	"github.com/shivlim/casper-node/src/queue"
	"github.com/shivlim/casper-node/src/types"
)

// StatusFeed is what the API servers report about the node.
type StatusFeed struct {
	ChainName       string
	ProtocolVersion string
	OurID           types.NodeID
	LastAddedBlock  *types.Block
	Peers           map[types.NodeID]string
}

// APIRequest is a query coming from an API server's clients.
type APIRequest interface {
	fmt.Stringer
	apiRequest()
}

// GetStatusRequest asks for the node status served on /status and info_get_status.
type GetStatusRequest struct {
	Responder Responder[StatusFeed]
}

// GetAPIBlockRequest looks a block up by hash, by height, or answers the tip
// when neither is set.
type GetAPIBlockRequest struct {
	Hash      *types.BlockHash
	Height    *uint64
	Responder Responder[*types.Block]
}

// GetAPIPeersRequest asks for the connected peers and their addresses.
type GetAPIPeersRequest struct {
	Responder Responder[map[types.NodeID]string]
}

// GetAPIBalanceRequest reads a balance under the tip's state root.
type GetAPIBalanceRequest struct {
	Account   types.AccountHash
	Responder Responder[BalanceResult]
}

func (GetStatusRequest) apiRequest()     {}
func (GetAPIBlockRequest) apiRequest()   {}
func (GetAPIPeersRequest) apiRequest()   {}
func (GetAPIBalanceRequest) apiRequest() {}

func (GetStatusRequest) String() string { return "get status" }
func (r GetAPIBlockRequest) String() string {
	switch {
	case r.Hash != nil:
		return fmt.Sprintf("get block %s", r.Hash)
	case r.Height != nil:
		return fmt.Sprintf("get block at height %d", *r.Height)
	default:
		return "get latest block"
	}
}
func (GetAPIPeersRequest) String() string     { return "get peers" }
func (r GetAPIBalanceRequest) String() string { return fmt.Sprintf("get balance of %s", r.Account) }

// RestRequest is an API request issued by the REST server.
type RestRequest struct {
	APIRequest
}

// RpcRequest is an API request issued by the JSON-RPC server.
type RpcRequest struct {
	APIRequest
}

// RestRequestEmbedder wraps REST server requests into reactor events.
type RestRequestEmbedder[REv any] interface {
	FromRestRequest(RestRequest) REv
}

// RpcRequestEmbedder wraps RPC server requests into reactor events.
type RpcRequestEmbedder[REv any] interface {
	FromRpcRequest(RpcRequest) REv
}

// MakeAPIRequest issues req, built around a responder, through wrap on the API
// queue.
func MakeAPIRequest[REv, T any](b Builder, build func(Responder[T]) APIRequest, wrap func(APIRequest) REv) Future[T] {
	return MakeRequest(b, func(r Responder[T]) REv {
		return wrap(build(r))
	}, queue.API)
}
