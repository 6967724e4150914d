package smallnetwork

import (
	"crypto/ecdsa"

	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/types"
)

// Identity is the key a node proves possession of during handshakes.
type Identity struct {
	Key *ecdsa.PrivateKey
	ID  types.NodeID
}

// NewIdentity generates a fresh identity.
func NewIdentity() (Identity, error) {
	key, err := keys.GenerateECDSAKey()
	if err != nil {
		return Identity{}, &IdentityError{Cause: err}
	}
	return IdentityFromKey(key), nil
}

// IdentityFromKey derives the node identity of an existing key.
func IdentityFromKey(key *ecdsa.PrivateKey) Identity {
	return Identity{
		Key: key,
		ID:  types.NodeIDFromPublicKey(&key.PublicKey),
	}
}
