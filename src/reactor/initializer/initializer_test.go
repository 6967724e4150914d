package initializer

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/chainspecloader"
	"github.com/shivlim/casper-node/src/components/testutil"
	"github.com/shivlim/casper-node/src/config"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/reactor"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAccount() testutil.Account {
	return testutil.Account{Hash: strings.Repeat("ab", 32), Balance: 1000, Bond: 10}
}

// newConfig writes a chainspec with accounts into a fresh config dir.
func newConfig(t *testing.T, accounts ...testutil.Account) common.WithDir[*config.Config] {
	dir := t.TempDir()
	testutil.WriteChainspec(t, dir, "1s", accounts...)
	c := config.NewDefaultConfig()
	c.SetLogger(common.NewTestLogger(t))
	return common.NewWithDir(dir, c)
}

func newHandle() effect.EventQueueHandle[Event] {
	return testutil.NewQueue[Event]().Handle
}

func newRunner(t *testing.T, conf common.WithDir[*config.Config]) (*reactor.Runner[Event, *Reactor], error) {
	seed := uint64(7)
	return reactor.NewRunner(reactor.RunnerConfig{
		Name:     "initializer",
		Seed:     &seed,
		Registry: prometheus.NewRegistry(),
		Logger:   common.NewTestEntry(t),
	}, Constructor(conf, prometheus.NewRegistry()))
}

func TestInitializerCommitsGenesis(t *testing.T) {
	conf := newConfig(t, validAccount())

	runner, err := newRunner(t, conf)
	require.NoError(t, err)
	defer runner.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, runner.Run(ctx))

	r := runner.Reactor()
	require.True(t, r.IsStopped())
	require.True(t, r.StoppedSuccessfully())

	h, err := r.Handoff()
	require.NoError(t, err)
	defer h.Storage.Close()
	defer h.ContractRuntime.Close()

	assert.Equal(t, "casper-test", h.Chainspec.Genesis.Name)
	assert.NotEqual(t, types.Digest{}, h.GenesisStateRoot)
	assert.Equal(t, h.Identity.ID, types.NodeIDFromPublicKey(&h.Identity.Key.PublicKey))
	assert.Nil(t, h.Key)

	// Handed over components belong to the validator now.
	require.NoError(t, r.Close())
	stored, err := h.Storage.GetChainspec("1.0.0")
	require.NoError(t, err)
	assert.Equal(t, h.Chainspec.Genesis.Name, stored.Genesis.Name)
}

func TestInitializerReadsSecretKey(t *testing.T) {
	conf := newConfig(t, validAccount())

	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	require.NoError(t, keys.NewSimpleKeyfile(filepath.Join(conf.Dir, config.DefaultSecretKeyFile)).WriteKey(key))
	conf.Value.Node.SecretKeyPath = config.DefaultSecretKeyFile

	r, _, err := New(conf, prometheus.NewRegistry(), newHandle(), nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, keys.PublicKeyHex(&key.PublicKey), keys.PublicKeyHex(&r.key.PublicKey))
}

func TestMissingSecretKey(t *testing.T) {
	conf := newConfig(t, validAccount())
	conf.Value.Node.SecretKeyPath = "missing_key"

	_, _, err := New(conf, prometheus.NewRegistry(), newHandle(), nil)
	require.Error(t, err)
	assert.True(t, IsError(err, Config))
}

func TestInvalidHashLengthFailsFast(t *testing.T) {
	conf := newConfig(t, testutil.Account{Hash: strings.Repeat("ab", 31), Balance: 1000, Bond: 10})

	_, err := newRunner(t, conf)
	require.Error(t, err)
	assert.True(t, IsError(err, Chainspec))

	n, ok := chainspec.InvalidHashLengthOf(err)
	require.True(t, ok)
	assert.Equal(t, 31, n)

	// Neither storage nor the contract runtime got as far as creating files.
	_, err = os.Stat(conf.Resolve(conf.Value.Storage.Path))
	assert.True(t, os.IsNotExist(err))
}

func TestMissingChainspec(t *testing.T) {
	c := config.NewDefaultConfig()
	c.SetLogger(common.NewTestLogger(t))
	conf := common.NewWithDir(t.TempDir(), c)

	_, _, err := New(conf, prometheus.NewRegistry(), newHandle(), nil)
	require.Error(t, err)
	assert.True(t, IsError(err, Chainspec))
}

func TestStorageError(t *testing.T) {
	conf := newConfig(t, validAccount())
	// A file where the storage directory should be.
	require.NoError(t, ioutil.WriteFile(conf.Resolve(conf.Value.Storage.Path), nil, 0644))

	_, _, err := New(conf, prometheus.NewRegistry(), newHandle(), nil)
	require.Error(t, err)
	assert.True(t, IsError(err, Storage))
}

func TestContractRuntimeConfigError(t *testing.T) {
	conf := newConfig(t, validAccount())
	conf.Value.ContractRuntime.MaxReaders = 0

	_, _, err := New(conf, prometheus.NewRegistry(), newHandle(), nil)
	require.Error(t, err)
	assert.True(t, IsError(err, ContractRuntime))

	// Storage was opened and closed again, so it can be reopened.
	conf.Value.ContractRuntime.MaxReaders = 1
	r, _, err := New(conf, prometheus.NewRegistry(), newHandle(), nil)
	require.NoError(t, err)
	require.NoError(t, r.Close())
}

func TestDuplicateMetrics(t *testing.T) {
	conf := newConfig(t, validAccount())
	registry := prometheus.NewRegistry()

	r, _, err := New(conf, registry, newHandle(), nil)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, _, err = New(conf, registry, newHandle(), nil)
	require.Error(t, err)
	assert.True(t, IsError(err, Metrics))
}

func TestHandoffBeforeStop(t *testing.T) {
	conf := newConfig(t, validAccount())
	c := testutil.LoadChainspec(t, "1s", validAccount())

	r, effs, err := NewWithChainspec(conf, c, prometheus.NewRegistry(), newHandle(), nil)
	require.NoError(t, err)
	defer r.Close()
	assert.Len(t, effs, 1)

	assert.False(t, r.IsStopped())
	_, err = r.Handoff()
	assert.True(t, IsError(err, Genesis))
}

func TestEmbeddingIsLossless(t *testing.T) {
	storageReq := effect.GetHighestBlockRequest{}
	runtimeReq := effect.GetBalanceRequest{Account: types.AccountHash{1}}
	loaderEv := chainspecloader.PutToStorage{}

	switch ev := (embedder{}).FromStorageRequest(storageReq).(type) {
	case StorageEvent:
		assert.Equal(t, effect.StorageRequest(storageReq), ev.Request)
	default:
		t.Fatalf("storage request wrapped as %T", ev)
	}
	switch ev := (embedder{}).FromContractRuntimeRequest(runtimeReq).(type) {
	case ContractRuntimeEvent:
		assert.Equal(t, effect.ContractRuntimeRequest(runtimeReq), ev.Request)
	default:
		t.Fatalf("contract runtime request wrapped as %T", ev)
	}
	switch ev := fromChainspecLoader(loaderEv).(type) {
	case ChainspecLoaderEvent:
		assert.Equal(t, chainspecloader.Event(loaderEv), ev.Event)
	default:
		t.Fatalf("chainspec loader event wrapped as %T", ev)
	}
}
