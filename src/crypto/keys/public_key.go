package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec"
)

// FromPublicKey returns the 33-byte compressed form of pub.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return (*btcec.PublicKey)(pub).SerializeCompressed()
}

// ToPublicKey parses a compressed or uncompressed secp256k1 point.
func ToPublicKey(pub []byte) (*ecdsa.PublicKey, error) {
	pk, err := btcec.ParsePubKey(pub, btcec.S256())
	if err != nil {
		return nil, err
	}
	return pk.ToECDSA(), nil
}

// PublicKeyHex returns the hexadecimal form of the compressed public key.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(FromPublicKey(pub))
}

// ParsePublicKeyHex is the inverse of PublicKeyHex. A 0x prefix is tolerated.
func ParsePublicKeyHex(s string) (*ecdsa.PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, err
	}
	return ToPublicKey(b)
}

// AccountHash is the Blake2b-256 digest of the compressed public key.
func AccountHash(pub *ecdsa.PublicKey) [32]byte {
	return Blake2b256(FromPublicKey(pub))
}
