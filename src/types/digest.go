package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shivlim/casper-node/src/crypto/keys"
)

// DigestLength is the size of every hash used by the node.
const DigestLength = 32

// AccountHashLength is the size of an account hash.
const AccountHashLength = DigestLength

// Digest is a Blake2b-256 hash.
type Digest [DigestLength]byte

// Hash digests the concatenation of data.
func Hash(data ...[]byte) Digest {
	return Digest(keys.Blake2b256(data...))
}

// ParseDigest decodes a hex digest. A 0x prefix is tolerated.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return d, err
	}
	if len(b) != DigestLength {
		return d, fmt.Errorf("digest length %d, want %d", len(b), DigestLength)
	}
	copy(d[:], b)
	return d, nil
}

// Hex ...
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String ...
func (d Digest) String() string {
	return d.Hex()
}

// IsZero reports whether d is the all-zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AccountHash identifies an account in global state.
type AccountHash = Digest

// DeployHash identifies a deploy.
type DeployHash = Digest

// BlockHash identifies a block.
type BlockHash = Digest
