package gossiper

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Event is handled by the gossiper.
type Event interface {
	fmt.Stringer
	gossiperEvent()
}

// DeployAccepted is a deploy that entered the node, either from a client or
// from a peer.
type DeployAccepted struct {
	Deploy *types.Deploy
	Source effect.Source
}

// DeployReceived is a deploy a peer gossiped to us.
type DeployReceived struct {
	Sender types.NodeID
	Deploy *types.Deploy
}

// Gossiped reports which peers a deploy was sent to.
type Gossiped struct {
	Hash  types.DeployHash
	Peers []types.NodeID
}

func (DeployAccepted) gossiperEvent() {}
func (DeployReceived) gossiperEvent() {}
func (Gossiped) gossiperEvent()       {}

func (e DeployAccepted) String() string {
	return fmt.Sprintf("deploy %s accepted from %s", e.Deploy.Hash, e.Source)
}
func (e DeployReceived) String() string {
	return fmt.Sprintf("deploy %s received from %s", e.Deploy.Hash, e.Sender)
}
func (e Gossiped) String() string {
	return fmt.Sprintf("gossiped %s to %d peers", e.Hash, len(e.Peers))
}
