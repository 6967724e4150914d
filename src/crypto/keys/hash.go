package keys

import "golang.org/x/crypto/blake2b"

// Blake2b256 hashes the concatenation of the given byte slices.
func Blake2b256(data ...[]byte) [32]byte {
	h, _ := blake2b.New256(nil)
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
