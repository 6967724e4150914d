package testutil

import (
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// APIEvent is the event type of a reactor hosting only an API server.
type APIEvent struct {
	Rest         effect.RestRequest
	Rpc          effect.RpcRequest
	Announcement *effect.APIServerAnnouncement

	Storage     effect.StorageRequest
	Runtime     effect.ContractRuntimeRequest
	NetworkInfo effect.NetworkInfoRequest
	LinearChain effect.LinearChainRequest
}

// APIEmbedder ...
type APIEmbedder struct{}

func (APIEmbedder) FromRestRequest(r effect.RestRequest) APIEvent { return APIEvent{Rest: r} }
func (APIEmbedder) FromRpcRequest(r effect.RpcRequest) APIEvent   { return APIEvent{Rpc: r} }
func (APIEmbedder) FromAPIServerAnnouncement(a effect.APIServerAnnouncement) APIEvent {
	return APIEvent{Announcement: &a}
}
func (APIEmbedder) FromStorageRequest(r effect.StorageRequest) APIEvent {
	return APIEvent{Storage: r}
}
func (APIEmbedder) FromContractRuntimeRequest(r effect.ContractRuntimeRequest) APIEvent {
	return APIEvent{Runtime: r}
}
func (APIEmbedder) FromNetworkInfoRequest(r effect.NetworkInfoRequest) APIEvent {
	return APIEvent{NetworkInfo: r}
}
func (APIEmbedder) FromLinearChainRequest(r effect.LinearChainRequest) APIEvent {
	return APIEvent{LinearChain: r}
}

// APIBackend stands in for the components answering API queries. Its fields
// must not change once it answers.
type APIBackend struct {
	Tip      *types.Block
	Peers    map[types.NodeID]string
	Balances map[types.AccountHash]types.Motes
}

// Answer responds to ev if it is a request for one of the stood-in
// components, and reports whether it was.
func (b *APIBackend) Answer(ev APIEvent) bool {
	switch {
	case ev.LinearChain != nil:
		ev.LinearChain.(effect.GetTipRequest).Responder.Respond(b.Tip)
	case ev.NetworkInfo != nil:
		ev.NetworkInfo.(effect.GetPeersRequest).Responder.Respond(b.Peers)
	case ev.Runtime != nil:
		req := ev.Runtime.(effect.GetBalanceRequest)
		balance, ok := b.Balances[req.Account]
		req.Responder.Respond(effect.BalanceResult{Balance: balance, Found: ok})
	case ev.Storage != nil:
		switch req := ev.Storage.(type) {
		case effect.GetBlockAtHeightRequest:
			req.Responder.Respond(b.blockIf(func(tip *types.Block) bool { return tip.Header.Height == req.Height }))
		case effect.GetBlockRequest:
			req.Responder.Respond(b.blockIf(func(tip *types.Block) bool { return tip.Hash == req.Hash }))
		default:
			return false
		}
	default:
		return false
	}
	return true
}

func (b *APIBackend) blockIf(match func(*types.Block) bool) *types.Block {
	if b.Tip != nil && match(b.Tip) {
		return b.Tip
	}
	return nil
}
