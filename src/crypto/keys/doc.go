// Package keys implements the public key cryptography used by a node.
//
// A validator owns a secp256k1 key-pair. The secret key signs consensus
// proposals and deploys; the public key, in compressed form, identifies the
// signer. Account hashes and node identifiers are Blake2b-256 digests of the
// compressed public key.
package keys
