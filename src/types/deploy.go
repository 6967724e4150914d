package types

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shivlim/casper-node/src/crypto/keys"
)

// DeployHeader carries everything about a deploy except its session.
type DeployHeader struct {
	Account   []byte
	Timestamp Timestamp
	TTL       time.Duration
	GasPrice  uint64
	BodyHash  Digest
	ChainName string
}

// Transfer moves Amount from the deploy's account to Target. It is the only
// session the contract runtime executes.
type Transfer struct {
	Target AccountHash
	Amount Motes
}

// Approval is a signature over the deploy hash.
type Approval struct {
	Signer    []byte
	Signature []byte
}

// Deploy is a signed request to execute a session against global state.
type Deploy struct {
	Hash     DeployHash
	Header   DeployHeader
	Session  Transfer
	Approval Approval
}

// NewTransfer builds and signs a transfer deploy.
func NewTransfer(
	chainName string,
	priv *ecdsa.PrivateKey,
	target AccountHash,
	amount Motes,
	timestamp Timestamp,
	ttl time.Duration,
) (*Deploy, error) {
	d := &Deploy{
		Header: DeployHeader{
			Account:   keys.FromPublicKey(&priv.PublicKey),
			Timestamp: timestamp,
			TTL:       ttl,
			GasPrice:  1,
			ChainName: chainName,
		},
		Session: Transfer{
			Target: target,
			Amount: amount,
		},
	}

	bodyHash, err := d.Session.Hash()
	if err != nil {
		return nil, err
	}
	d.Header.BodyHash = bodyHash

	d.Hash, err = d.Header.Hash()
	if err != nil {
		return nil, err
	}

	sig, err := keys.Sign(priv, d.Hash[:])
	if err != nil {
		return nil, errors.Wrap(err, "signing deploy")
	}
	d.Approval = Approval{
		Signer:    d.Header.Account,
		Signature: sig,
	}

	return d, nil
}

// Hash ...
func (t Transfer) Hash() (Digest, error) {
	b, err := Marshal(t)
	if err != nil {
		return Digest{}, err
	}
	return Hash(b), nil
}

// Hash ...
func (h DeployHeader) Hash() (Digest, error) {
	b, err := Marshal(h)
	if err != nil {
		return Digest{}, err
	}
	return Hash(b), nil
}

// AccountHash is the hash of the account that signed the deploy.
func (d *Deploy) AccountHash() (AccountHash, error) {
	pub, err := keys.ToPublicKey(d.Header.Account)
	if err != nil {
		return AccountHash{}, err
	}
	return AccountHash(keys.AccountHash(pub)), nil
}

// Expired reports whether the deploy's TTL ran out before now.
func (d *Deploy) Expired(now Timestamp) bool {
	return d.Header.Timestamp.Add(d.Header.TTL) < now
}

// Verify checks that the body hash, the deploy hash and the approval are all
// consistent with the deploy's content.
func (d *Deploy) Verify() error {
	bodyHash, err := d.Session.Hash()
	if err != nil {
		return err
	}
	if bodyHash != d.Header.BodyHash {
		return fmt.Errorf("body hash mismatch: header %s, computed %s", d.Header.BodyHash, bodyHash)
	}

	hash, err := d.Header.Hash()
	if err != nil {
		return err
	}
	if hash != d.Hash {
		return fmt.Errorf("deploy hash mismatch: got %s, computed %s", d.Hash, hash)
	}

	if string(d.Approval.Signer) != string(d.Header.Account) {
		return fmt.Errorf("approval not signed by the deploy account")
	}
	pub, err := keys.ToPublicKey(d.Approval.Signer)
	if err != nil {
		return errors.Wrap(err, "approval signer")
	}

	return keys.Verify(pub, d.Hash[:], d.Approval.Signature)
}
