package chainspec

import (
	"encoding/base64"
	"encoding/hex"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shivlim/casper-node/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainspec = `
[genesis]
name = "casper-test"
timestamp = 2020-06-01T00:00:00Z
protocol_version = "1.0.0"
accounts_path = "accounts.csv"

[deploys]
max_ttl = "1h"
block_max_deploy_count = 10

[highway]
round_length = "2s"
validator_slots = 5

[[upgrade]]
activation_point = 100
protocol_version = "1.1.0"
`

func hashHex(n int) string {
	return strings.Repeat("ab", n)
}

func writeChainspec(t *testing.T, spec, accounts string) string {
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "chainspec.toml"), []byte(spec), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "accounts.csv"), []byte(accounts), 0644))
	return filepath.Join(dir, "chainspec.toml")
}

func TestLoad(t *testing.T) {
	path := writeChainspec(t, testChainspec, hashHex(32)+",1000,100\n"+hashHex(32)[:62]+"cd,500,0\n")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "casper-test", c.Genesis.Name)
	assert.Equal(t, "1.0.0", c.Genesis.ProtocolVersion.String())
	assert.Equal(t, time.Hour, c.Deploys.MaxTTL)
	assert.Equal(t, 2*time.Second, c.Highway.RoundLength)
	require.Len(t, c.Genesis.Accounts, 2)
	assert.Equal(t, "1000", c.Genesis.Accounts[0].Balance.String())
	require.Len(t, c.Validators(), 1)

	assert.Equal(t, "1.0.0", c.ProtocolVersionAt(99).String())
	assert.Equal(t, "1.1.0", c.ProtocolVersionAt(100).String())
	_, ok := c.UpgradeAt(100)
	assert.True(t, ok)
}

func TestAccountHashBase64(t *testing.T) {
	raw := make([]byte, 32)
	raw[0] = 0xff
	accounts, err := ParseAccounts([]byte(base64.StdEncoding.EncodeToString(raw) + ",1,1\n"))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, hex.EncodeToString(raw), accounts[0].AccountHash.Hex())
}

func TestInvalidHashLength(t *testing.T) {
	_, err := ParseAccounts([]byte(hashHex(31) + ",1,1\n"))
	require.Error(t, err)

	n, ok := InvalidHashLengthOf(err)
	require.True(t, ok)
	assert.Equal(t, 31, n)
	assert.Contains(t, err.Error(), "expected hash length of 32, got 31")
}

func TestInvalidHashLengthThroughLoad(t *testing.T) {
	path := writeChainspec(t, testChainspec, hashHex(31)+",1000,100\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsError(err, LoadChainspecAccounts))
	n, ok := InvalidHashLengthOf(err)
	require.True(t, ok)
	assert.Equal(t, 31, n)
}

func TestAccountsErrors(t *testing.T) {
	cases := []struct {
		name string
		csv  string
		kind AccountsLoadErrorKind
	}{
		{"odd hex", "abc,1,1\n", DecodingFromHex},
		{"bad base64", "not-base64!,1,1\n", Crypto},
		{"bad balance", hashHex(32) + ",x,1\n", AccountDecodingMotes},
		{"missing field", hashHex(32) + ",1\n", DecodingFromCsv},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseAccounts([]byte(c.csv))
			require.Error(t, err)
			assert.True(t, IsAccountsLoadError(err, c.kind), "got %v", err)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, IsError(err, LoadChainspec))

	path := writeChainspec(t, "[genesis\n", "")
	_, err = Load(path)
	assert.True(t, IsError(err, DecodingFromToml))

	path = writeChainspec(t, testChainspec, hashHex(32)+",1000,0\n")
	_, err = Load(path)
	assert.True(t, IsError(err, Invalid))

	withInstaller := testChainspec + `installer_path = "missing.wasm"` + "\n"
	path = writeChainspec(t, withInstaller, hashHex(32)+",1000,1\n")
	_, err = Load(path)
	assert.True(t, IsError(err, LoadUpgradePoint))
}

func TestValidatorSlots(t *testing.T) {
	c := &Chainspec{Highway: HighwayConfig{ValidatorSlots: 1}}
	for i := 0; i < 3; i++ {
		c.Genesis.Accounts = append(c.Genesis.Accounts, GenesisAccount{
			AccountHash:  types.Hash([]byte{byte(i)}),
			BondedAmount: types.NewMotes(1),
		})
	}
	assert.Len(t, c.Validators(), 1)
}
