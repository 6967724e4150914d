package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
)

// SignatureLength is the size of an encoded signature: r and s, 32 bytes each.
const SignatureLength = 64

// Sign signs a digest with the private key and returns r||s.
func Sign(priv *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, SignatureLength)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

// Verify checks an r||s signature of digest against pub.
func Verify(pub *ecdsa.PublicKey, digest []byte, sig []byte) error {
	if len(sig) != SignatureLength {
		return fmt.Errorf("signature length %d, want %d", len(sig), SignatureLength)
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	if !ecdsa.Verify(pub, digest, r, s) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}
