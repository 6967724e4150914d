// Package apiserver answers the queries shared by the REST and JSON-RPC
// servers, and holds the JSON shapes both of them serve.
package apiserver

import (
	"context"
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Embedder is what answering API requests takes from the hosting reactor.
type Embedder[REv any] interface {
	effect.StorageRequestEmbedder[REv]
	effect.ContractRuntimeRequestEmbedder[REv]
	effect.NetworkInfoRequestEmbedder[REv]
	effect.LinearChainRequestEmbedder[REv]
}

// NodeInfo is the static part of the node's status.
type NodeInfo struct {
	ChainName        string
	ProtocolVersion  string
	OurID            types.NodeID
	GenesisStateRoot types.Digest
}

// Answer returns the effect answering req. The effect produces no event of
// its own.
func Answer[REv, Ev any](eb effect.Builder, emb Embedder[REv], info NodeInfo, req effect.APIRequest) effect.Effects[Ev] {
	var eff effect.Effect[Ev]
	switch req := req.(type) {
	case effect.GetStatusRequest:
		eff = func(ctx context.Context) []Ev {
			tip, ok := effect.GetTip[REv](eb, emb)(ctx)
			if !ok {
				return nil
			}
			peers, ok := effect.NetworkPeers[REv](eb, emb)(ctx)
			if !ok {
				return nil
			}
			req.Responder.Respond(effect.StatusFeed{
				ChainName:       info.ChainName,
				ProtocolVersion: info.ProtocolVersion,
				OurID:           info.OurID,
				LastAddedBlock:  tip,
				Peers:           peers,
			})
			return nil
		}
	case effect.GetAPIBlockRequest:
		var f effect.Future[*types.Block]
		switch {
		case req.Hash != nil:
			f = effect.GetBlockFromStorage[REv](eb, emb, *req.Hash)
		case req.Height != nil:
			f = effect.GetBlockAtHeightFromStorage[REv](eb, emb, *req.Height)
		default:
			f = effect.GetTip[REv](eb, emb)
		}
		eff = func(ctx context.Context) []Ev {
			if b, ok := f(ctx); ok {
				req.Responder.Respond(b)
			}
			return nil
		}
	case effect.GetAPIPeersRequest:
		eff = func(ctx context.Context) []Ev {
			if peers, ok := effect.NetworkPeers[REv](eb, emb)(ctx); ok {
				req.Responder.Respond(peers)
			}
			return nil
		}
	case effect.GetAPIBalanceRequest:
		eff = func(ctx context.Context) []Ev {
			tip, ok := effect.GetTip[REv](eb, emb)(ctx)
			if !ok {
				return nil
			}
			root := info.GenesisStateRoot
			if tip != nil {
				root = tip.Header.StateRootHash
			}
			if res, ok := effect.GetBalance[REv](eb, emb, root, req.Account)(ctx); ok {
				req.Responder.Respond(res)
			}
			return nil
		}
	default:
		panic(fmt.Sprintf("unhandled api request %T", req))
	}
	return effect.Effects[Ev]{eff}
}
