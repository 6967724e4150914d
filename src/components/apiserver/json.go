package apiserver

import (
	"sort"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Block ...
type Block struct {
	Hash            types.BlockHash    `json:"hash"`
	ParentHash      types.BlockHash    `json:"parent_hash"`
	StateRootHash   types.Digest       `json:"state_root_hash"`
	Height          uint64             `json:"height"`
	Round           uint64             `json:"round"`
	Timestamp       types.Timestamp    `json:"timestamp"`
	Proposer        types.AccountHash  `json:"proposer"`
	DeployHashes    []types.DeployHash `json:"deploy_hashes"`
	ProtocolVersion string             `json:"protocol_version"`
}

// NewBlock returns nil for a nil block.
func NewBlock(b *types.Block) *Block {
	if b == nil {
		return nil
	}
	deploys := b.Header.DeployHashes
	if deploys == nil {
		deploys = []types.DeployHash{}
	}
	return &Block{
		Hash:            b.Hash,
		ParentHash:      b.Header.ParentHash,
		StateRootHash:   b.Header.StateRootHash,
		Height:          b.Header.Height,
		Round:           b.Header.Round,
		Timestamp:       b.Header.Timestamp,
		Proposer:        b.Header.Proposer,
		DeployHashes:    deploys,
		ProtocolVersion: b.Header.ProtocolVersion,
	}
}

// Peer ...
type Peer struct {
	NodeID  types.NodeID `json:"node_id"`
	Address string       `json:"address"`
}

// NewPeers lists peers ordered by node id.
func NewPeers(peers map[types.NodeID]string) []Peer {
	out := make([]Peer, 0, len(peers))
	for id, addr := range peers {
		out = append(out, Peer{NodeID: id, Address: addr})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NodeID.Hex() < out[j].NodeID.Hex()
	})
	return out
}

// Status is the JSON form of the node status.
type Status struct {
	ChainName       string       `json:"chain_name"`
	ProtocolVersion string       `json:"protocol_version"`
	OurID           types.NodeID `json:"our_id"`
	LastAddedBlock  *Block       `json:"last_added_block"`
	Peers           []Peer       `json:"peers"`
}

// NewStatus converts a status feed for the API.
func NewStatus(s effect.StatusFeed) Status {
	return Status{
		ChainName:       s.ChainName,
		ProtocolVersion: s.ProtocolVersion,
		OurID:           s.OurID,
		LastAddedBlock:  NewBlock(s.LastAddedBlock),
		Peers:           NewPeers(s.Peers),
	}
}

// Balance ...
type Balance struct {
	Account types.AccountHash `json:"account"`
	Balance types.Motes       `json:"balance"`
}
