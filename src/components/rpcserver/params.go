package rpcserver

import (
	"github.com/shivlim/casper-node/src/components/apiserver"
	"github.com/shivlim/casper-node/src/types"
)

// PutDeployParams ...
type PutDeployParams struct {
	Deploy *types.Deploy `json:"deploy" validate:"required"`
}

// PutDeployResult ...
type PutDeployResult struct {
	DeployHash types.DeployHash `json:"deploy_hash"`
}

// GetBlockParams selects a block by hash or by height. With neither set the
// latest block is returned.
type GetBlockParams struct {
	Hash   string  `json:"block_hash" validate:"omitempty,hexadecimal,len=64"`
	Height *uint64 `json:"height"`
}

// GetBlockResult ...
type GetBlockResult struct {
	Block *apiserver.Block `json:"block"`
}

// GetPeersResult ...
type GetPeersResult struct {
	Peers []apiserver.Peer `json:"peers"`
}

// GetBalanceParams ...
type GetBalanceParams struct {
	Account string `json:"account_hash" validate:"required,hexadecimal,len=64"`
}
