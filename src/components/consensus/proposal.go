package consensus

import (
	"crypto/ecdsa"

	"github.com/pkg/errors"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/types"
)

// Proposal is a round leader's signed block.
type Proposal struct {
	Block     types.FinalizedBlock
	PublicKey []byte
	Signature []byte
}

// NewProposal signs fb, whose Proposer must be key's account.
func NewProposal(key *ecdsa.PrivateKey, fb types.FinalizedBlock) (*Proposal, error) {
	hash, err := fb.Hash()
	if err != nil {
		return nil, err
	}
	sig, err := keys.Sign(key, hash[:])
	if err != nil {
		return nil, errors.Wrap(err, "signing proposal")
	}
	return &Proposal{
		Block:     fb,
		PublicKey: keys.FromPublicKey(&key.PublicKey),
		Signature: sig,
	}, nil
}

// Verify checks that the proposal was signed by the block's proposer.
func (p *Proposal) Verify() error {
	pub, err := keys.ToPublicKey(p.PublicKey)
	if err != nil {
		return err
	}
	if types.AccountHash(keys.AccountHash(pub)) != p.Block.Proposer {
		return errors.New("proposal not signed by its proposer")
	}
	hash, err := p.Block.Hash()
	if err != nil {
		return err
	}
	return keys.Verify(pub, hash[:], p.Signature)
}

// Message wraps p for the network.
func (p *Proposal) Message() (types.Message, error) {
	data, err := types.MarshalMsgpack(p)
	if err != nil {
		return types.Message{}, err
	}
	return types.NewConsensusMessage(data), nil
}

// DecodeProposal parses a proposal received from the network.
func DecodeProposal(payload []byte) (*Proposal, error) {
	var p Proposal
	if err := types.UnmarshalMsgpack(payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
