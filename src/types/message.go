package types

import "fmt"

// MessageKind tells apart the payloads carried between nodes.
type MessageKind uint8

const (
	// ConsensusMessage carries an opaque consensus payload.
	ConsensusMessage MessageKind = iota
	// DeployGossipMessage carries a deploy being gossiped.
	DeployGossipMessage
)

// String ...
func (k MessageKind) String() string {
	switch k {
	case ConsensusMessage:
		return "Consensus"
	case DeployGossipMessage:
		return "DeployGossip"
	default:
		return fmt.Sprintf("MessageKind(%d)", uint8(k))
	}
}

// Message is the unit exchanged between peers.
type Message struct {
	Kind      MessageKind
	Consensus []byte  `codec:",omitempty"`
	Deploy    *Deploy `codec:",omitempty"`
}

// NewConsensusMessage ...
func NewConsensusMessage(payload []byte) Message {
	return Message{Kind: ConsensusMessage, Consensus: payload}
}

// NewDeployGossipMessage ...
func NewDeployGossipMessage(d *Deploy) Message {
	return Message{Kind: DeployGossipMessage, Deploy: d}
}

// String ...
func (m Message) String() string {
	switch m.Kind {
	case DeployGossipMessage:
		if m.Deploy != nil {
			return fmt.Sprintf("DeployGossip(%s)", m.Deploy.Hash)
		}
	case ConsensusMessage:
		return fmt.Sprintf("Consensus(%d bytes)", len(m.Consensus))
	}
	return m.Kind.String()
}
