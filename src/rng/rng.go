// Package rng holds the random source threaded through every dispatch call.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"

	"golang.org/x/exp/rand"
)

// NodeRng is the single pseudo-random source of a node. It is never global: the
// runner owns it and lends it to the reactor for the duration of one dispatch.
type NodeRng = *rand.Rand

// New returns a NodeRng seeded with seed. Two sources built from the same seed
// produce the same stream.
func New(seed uint64) NodeRng {
	return rand.New(rand.NewSource(seed))
}

// NewRandom returns a NodeRng seeded from the operating system's entropy pool.
func NewRandom() NodeRng {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic(err)
	}
	return New(binary.LittleEndian.Uint64(b[:]))
}
