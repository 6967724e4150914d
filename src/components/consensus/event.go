package consensus

import (
	"fmt"

	"github.com/shivlim/casper-node/src/types"
)

// Event is handled by the consensus component.
type Event interface {
	fmt.Stringer
	consensusEvent()
}

// Tick fires at the start of each round.
type Tick struct{}

// DeploysForProposal is the block proposer's answer for a round we lead.
type DeploysForProposal struct {
	Round     uint64
	Timestamp types.Timestamp
	Deploys   []types.DeployHash
}

// MessageReceived is a consensus message from a peer.
type MessageReceived struct {
	Sender  types.NodeID
	Payload []byte
}

// Validated carries the block validator's verdict on a proposal.
type Validated struct {
	Sender   types.NodeID
	Proposal *Proposal
	Valid    bool
}

// BlockAdded keeps consensus in step with the linear chain.
type BlockAdded struct {
	Block *types.Block
}

func (Tick) consensusEvent()               {}
func (DeploysForProposal) consensusEvent() {}
func (MessageReceived) consensusEvent()    {}
func (Validated) consensusEvent()          {}
func (BlockAdded) consensusEvent()         {}

func (Tick) String() string { return "tick" }
func (e DeploysForProposal) String() string {
	return fmt.Sprintf("%d deploys for round %d", len(e.Deploys), e.Round)
}
func (e MessageReceived) String() string {
	return fmt.Sprintf("consensus message from %s", e.Sender)
}
func (e Validated) String() string {
	return fmt.Sprintf("proposal for round %d from %s valid: %v", e.Proposal.Block.Round, e.Sender, e.Valid)
}
func (e BlockAdded) String() string { return fmt.Sprintf("block added: %s", e.Block) }
