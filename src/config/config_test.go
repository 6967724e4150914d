package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	conf, err := Load(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, conf.Dir)
	assert.Equal(t, NewDefaultConfig(), conf.Value)
	assert.Equal(t, filepath.Join(dir, DefaultChainspecFile), conf.Resolve(conf.Value.Node.ChainspecConfigPath))
}

func TestFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	toml := `
[node]
chainspec_config_path = "/etc/casper/chainspec.toml"
secret_key_path = "keys/secret_key"
rng_seed = 7

[network]
bind_address = "127.0.0.1:34553"
known_addresses = ["10.0.0.1:34553", "10.0.0.2:34553"]
handshake_timeout = "3s"

[gossip]
fanout = 5

[rest_server]
enable = false

[logging]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0600))

	conf, err := Load(dir, nil)
	require.NoError(t, err)
	c := conf.Value

	assert.Equal(t, "/etc/casper/chainspec.toml", conf.Resolve(c.Node.ChainspecConfigPath))
	assert.Equal(t, filepath.Join(dir, "keys/secret_key"), conf.Resolve(c.Node.SecretKeyPath))
	require.NotNil(t, c.Node.RngSeed)
	assert.Equal(t, uint64(7), *c.Node.RngSeed)
	assert.Equal(t, "127.0.0.1:34553", c.Network.BindAddress)
	assert.Equal(t, []string{"10.0.0.1:34553", "10.0.0.2:34553"}, c.Network.KnownAddresses)
	assert.Equal(t, 3*time.Second, c.Network.HandshakeTimeout)
	assert.Equal(t, 5, c.Gossip.Fanout)
	assert.False(t, c.RestServer.Enable)
	assert.True(t, c.RpcServer.Enable, "untouched sections keep their defaults")
	assert.Equal(t, NewDefaultConfig().Gossip.SeenCacheSize, c.Gossip.SeenCacheSize)

	_, isJSON := NewLogger(c.Logging).Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[gossip]\nfanout = 5\n"), 0600))

	v := viper.New()
	v.Set("gossip.fanout", 9)
	conf, err := Load(dir, v)
	require.NoError(t, err)
	assert.Equal(t, 9, conf.Value.Gossip.Fanout)
}

func TestInvalidConfig(t *testing.T) {
	for name, toml := range map[string]string{
		"log level":    "[logging]\nlevel = \"loud\"\n",
		"no chainspec": "[node]\nchainspec_config_path = \"\"\n",
		"malformed":    "[node\n",
	} {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0600))
		_, err := Load(dir, nil)
		assert.Error(t, err, name)
	}
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, LogLevel("warn"))
	assert.Equal(t, logrus.DebugLevel, LogLevel("unknown"))
}
