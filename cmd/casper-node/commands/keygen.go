package commands

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/shivlim/casper-node/src/config"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/types"
	"github.com/spf13/cobra"
)

// DefaultPublicKeyFile is written next to the secret key.
const DefaultPublicKeyFile = "public_key_hex"

// NewKeygenCmd produces a KeygenCmd which creates a validator key pair
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen <output-dir>",
		Short: "Create new key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return keygen(args[0], cmd.OutOrStdout())
		},
	}
	return cmd
}

func keygen(dir string, out io.Writer) error {
	privKeyFile := filepath.Join(dir, config.DefaultSecretKeyFile)
	pubKeyFile := filepath.Join(dir, DefaultPublicKeyFile)

	if _, err := os.Stat(privKeyFile); err == nil {
		return fmt.Errorf("A key already lives under: %s", dir)
	}

	key, err := keys.GenerateECDSAKey()
	if err != nil {
		return fmt.Errorf("Error generating ECDSA key: %s", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("Writing private key: %s", err)
	}

	if err := keys.NewSimpleKeyfile(privKeyFile).WriteKey(key); err != nil {
		return fmt.Errorf("Writing private key: %s", err)
	}

	fmt.Fprintf(out, "Your private key has been saved to: %s\n", privKeyFile)

	pub := keys.PublicKeyHex(&key.PublicKey)

	if err := ioutil.WriteFile(pubKeyFile, []byte(pub), 0600); err != nil {
		return fmt.Errorf("Writing public key: %s", err)
	}

	fmt.Fprintf(out, "Your public key has been saved to: %s\n", pubKeyFile)

	account := types.AccountHash(keys.AccountHash(&key.PublicKey))
	fmt.Fprintf(out, "Your account hash is: %s\n", account.Hex())

	return nil
}
