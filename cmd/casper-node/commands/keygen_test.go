package commands

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/shivlim/casper-node/src/config"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeygen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	var out bytes.Buffer

	require.NoError(t, keygen(dir, &out))

	key, err := keys.NewSimpleKeyfile(filepath.Join(dir, config.DefaultSecretKeyFile)).ReadKey()
	require.NoError(t, err)

	pub, err := ioutil.ReadFile(filepath.Join(dir, DefaultPublicKeyFile))
	require.NoError(t, err)
	assert.Equal(t, keys.PublicKeyHex(&key.PublicKey), string(pub))

	account := types.AccountHash(keys.AccountHash(&key.PublicKey))
	assert.Contains(t, out.String(), account.Hex())

	// An existing key is never overwritten.
	assert.Error(t, keygen(dir, &out))
}
