package types

import (
	"crypto/ecdsa"

	"github.com/shivlim/casper-node/src/crypto/keys"
)

// NodeID identifies a node on the network: the digest of its network public
// key.
type NodeID Digest

// NodeIDFromPublicKey derives a NodeID.
func NodeIDFromPublicKey(pub *ecdsa.PublicKey) NodeID {
	return NodeID(keys.AccountHash(pub))
}

// String returns a short form, enough to tell peers apart in logs.
func (id NodeID) String() string {
	return "NodeId(" + Digest(id).Hex()[:10] + ")"
}

// Hex returns the full hex form.
func (id NodeID) Hex() string {
	return Digest(id).Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (id NodeID) MarshalText() ([]byte, error) {
	return Digest(id).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NodeID) UnmarshalText(text []byte) error {
	return (*Digest)(id).UnmarshalText(text)
}
