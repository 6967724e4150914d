package types

import (
	"fmt"
	"math/big"
)

// Motes is an amount of the native token. Arbitrary precision, never negative.
type Motes struct {
	v big.Int
}

// NewMotes ...
func NewMotes(v uint64) Motes {
	var m Motes
	m.v.SetUint64(v)
	return m
}

// ParseMotes decodes a base-10 amount.
func ParseMotes(s string) (Motes, error) {
	var m Motes
	if _, ok := m.v.SetString(s, 10); !ok {
		return Motes{}, fmt.Errorf("invalid decimal amount %q", s)
	}
	if m.v.Sign() < 0 {
		return Motes{}, fmt.Errorf("negative amount %q", s)
	}
	return m, nil
}

// Add returns m+o.
func (m Motes) Add(o Motes) Motes {
	var r Motes
	r.v.Add(&m.v, &o.v)
	return r
}

// Sub returns m-o and false if the result would be negative.
func (m Motes) Sub(o Motes) (Motes, bool) {
	if m.v.Cmp(&o.v) < 0 {
		return Motes{}, false
	}
	var r Motes
	r.v.Sub(&m.v, &o.v)
	return r, true
}

// Cmp compares m and o like big.Int.Cmp.
func (m Motes) Cmp(o Motes) int {
	return m.v.Cmp(&o.v)
}

// IsZero ...
func (m Motes) IsZero() bool {
	return m.v.Sign() == 0
}

// Bytes returns the big-endian magnitude.
func (m Motes) Bytes() []byte {
	return m.v.Bytes()
}

// String ...
func (m Motes) String() string {
	return m.v.String()
}

// MarshalText implements encoding.TextMarshaler.
func (m Motes) MarshalText() ([]byte, error) {
	return []byte(m.v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Motes) UnmarshalText(text []byte) error {
	parsed, err := ParseMotes(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m Motes) MarshalBinary() ([]byte, error) {
	return m.MarshalText()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Motes) UnmarshalBinary(data []byte) error {
	return m.UnmarshalText(data)
}
