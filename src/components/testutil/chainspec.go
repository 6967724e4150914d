package testutil

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/stretchr/testify/require"
)

// ChainspecTOML is a valid chainspec expecting accounts.csv next to it.
const ChainspecTOML = `
[genesis]
name = "casper-test"
timestamp = 2020-06-01T00:00:00Z
protocol_version = "1.0.0"
accounts_path = "accounts.csv"

[deploys]
max_ttl = "1h"
block_max_deploy_count = 10

[highway]
round_length = "%s"
validator_slots = 10
`

// Account is one row of an accounts file.
type Account struct {
	Hash    string
	Balance uint64
	Bond    uint64
}

// WriteChainspec writes a chainspec and its accounts into dir and returns the
// chainspec path.
func WriteChainspec(t testing.TB, dir, roundLength string, accounts ...Account) string {
	t.Helper()
	var csv strings.Builder
	for _, a := range accounts {
		fmt.Fprintf(&csv, "%s,%d,%d\n", a.Hash, a.Balance, a.Bond)
	}
	path := filepath.Join(dir, "chainspec.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte(fmt.Sprintf(ChainspecTOML, roundLength)), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "accounts.csv"), []byte(csv.String()), 0644))
	return path
}

// LoadChainspec writes and loads a chainspec in a temporary directory.
func LoadChainspec(t testing.TB, roundLength string, accounts ...Account) *chainspec.Chainspec {
	t.Helper()
	c, err := chainspec.Load(WriteChainspec(t, t.TempDir(), roundLength, accounts...))
	require.NoError(t, err)
	return c
}
