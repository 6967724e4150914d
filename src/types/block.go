package types

import (
	"fmt"
)

// FinalizedBlock is the outcome of consensus: an ordered set of deploys at a
// given height, not yet executed.
type FinalizedBlock struct {
	Round     uint64
	Height    uint64
	Timestamp Timestamp
	Deploys   []DeployHash
	Proposer  AccountHash
}

// Hash identifies fb; it is what a proposer signs.
func (fb *FinalizedBlock) Hash() (Digest, error) {
	data, err := Marshal(fb)
	if err != nil {
		return Digest{}, err
	}
	return Hash(data), nil
}

// BlockHeader is the hashed part of a block.
type BlockHeader struct {
	ParentHash      BlockHash
	StateRootHash   Digest
	DeployHashes    []DeployHash
	Timestamp       Timestamp
	Height          uint64
	Round           uint64
	Proposer        AccountHash
	ProtocolVersion string
}

// Block is an executed, finalized block.
type Block struct {
	Hash   BlockHash
	Header BlockHeader
}

// NewBlock builds the block that results from executing fb on top of the
// block with parentHash.
func NewBlock(parentHash BlockHash, stateRoot Digest, fb *FinalizedBlock, protocolVersion string) (*Block, error) {
	b := &Block{
		Header: BlockHeader{
			ParentHash:      parentHash,
			StateRootHash:   stateRoot,
			DeployHashes:    fb.Deploys,
			Timestamp:       fb.Timestamp,
			Height:          fb.Height,
			Round:           fb.Round,
			Proposer:        fb.Proposer,
			ProtocolVersion: protocolVersion,
		},
	}
	h, err := b.Header.Hash()
	if err != nil {
		return nil, err
	}
	b.Hash = h
	return b, nil
}

// Hash ...
func (h BlockHeader) Hash() (BlockHash, error) {
	data, err := Marshal(h)
	if err != nil {
		return BlockHash{}, err
	}
	return Hash(data), nil
}

// Verify checks that the block hash matches its header.
func (b *Block) Verify() error {
	h, err := b.Header.Hash()
	if err != nil {
		return err
	}
	if h != b.Hash {
		return fmt.Errorf("block hash mismatch: got %s, computed %s", b.Hash, h)
	}
	return nil
}

// String ...
func (b *Block) String() string {
	return fmt.Sprintf("Block{height: %d, hash: %s, deploys: %d}", b.Header.Height, b.Hash, len(b.Header.DeployHashes))
}

// ExecutionResult is the outcome of one deploy. Error is empty on success.
type ExecutionResult struct {
	DeployHash DeployHash
	Error      string
}

// Success ...
func (r ExecutionResult) Success() bool {
	return r.Error == ""
}
