package types

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// Marshal encodes v as canonical JSON. Canonical output is what gets hashed,
// so the same value always produces the same digest.
func Marshal(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes canonical JSON produced by Marshal.
func Unmarshal(data []byte, v interface{}) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(v)
}

// MarshalMsgpack is the compact encoding used on the wire.
func MarshalMsgpack(v interface{}) ([]byte, error) {
	var out []byte
	mh := new(codec.MsgpackHandle)
	mh.WriteExt = true
	enc := codec.NewEncoderBytes(&out, mh)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return out, nil
}

// UnmarshalMsgpack decodes data produced by MarshalMsgpack.
func UnmarshalMsgpack(data []byte, v interface{}) error {
	mh := new(codec.MsgpackHandle)
	mh.WriteExt = true
	dec := codec.NewDecoderBytes(data, mh)

	return dec.Decode(v)
}
