package queue

// Kind classifies an event for scheduling purposes.
type Kind int

const (
	// Control events steer the node itself (shutdown, phase changes).
	Control Kind = iota
	// NetworkIncoming are messages freshly read off the wire.
	NetworkIncoming
	// Network are events produced by the networking component.
	Network
	// Regular is everything else, including effect completions.
	Regular
	// API are requests arriving through the public API servers.
	API
)

// String ...
func (k Kind) String() string {
	switch k {
	case Control:
		return "Control"
	case NetworkIncoming:
		return "NetworkIncoming"
	case Network:
		return "Network"
	case Regular:
		return "Regular"
	case API:
		return "API"
	default:
		return "Unknown"
	}
}

// Kinds lists every queue kind in the order the scheduler visits them.
var Kinds = []Kind{Control, NetworkIncoming, Network, Regular, API}

// DefaultWeights is the number of events each kind may serve per round-robin
// turn before the scheduler moves on.
var DefaultWeights = map[Kind]int{
	Control:         16,
	NetworkIncoming: 4,
	Network:         4,
	Regular:         8,
	API:             2,
}
