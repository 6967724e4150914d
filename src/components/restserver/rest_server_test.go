package restserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/apiserver"
	"github.com/shivlim/casper-node/src/components/testutil"
	"github.com/shivlim/casper-node/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var info = apiserver.NodeInfo{
	ChainName:       "casper-test",
	ProtocolVersion: "1.0.0",
	OurID:           types.NodeID(types.Hash([]byte("us"))),
}

func newServer(t *testing.T, backend *testutil.APIBackend, gatherer prometheus.Gatherer) (*RestServer[testutil.APIEvent], <-chan Event) {
	q := testutil.NewQueue[testutil.APIEvent]()
	s, effs, err := New[testutil.APIEvent](Config{Address: "127.0.0.1:0"}, info, testutil.APIEmbedder{}, q.Builder, gatherer, common.NewTestEntry(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		for {
			ev, _, err := q.Pop(ctx)
			if err != nil {
				return
			}
			if ev.Rest.APIRequest != nil {
				testutil.Go(s.HandleEvent(q.Builder, nil, Request{RestRequest: ev.Rest}))
				continue
			}
			backend.Answer(ev)
		}
	}()
	return s, testutil.Go(effs)
}

func get(t *testing.T, s *RestServer[testutil.APIEvent], path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func tip(t *testing.T) *types.Block {
	b, err := types.NewBlock(types.BlockHash{}, types.Hash([]byte("root")), &types.FinalizedBlock{Height: 3, Round: 5}, "1.0.0")
	require.NoError(t, err)
	return b
}

func TestStatus(t *testing.T) {
	peer := types.NodeID(types.Hash([]byte("peer")))
	backend := &testutil.APIBackend{Tip: tip(t), Peers: map[types.NodeID]string{peer: "127.0.0.1:34553"}}
	s, _ := newServer(t, backend, nil)

	rec := get(t, s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var status apiserver.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "casper-test", status.ChainName)
	assert.Equal(t, info.OurID, status.OurID)
	require.NotNil(t, status.LastAddedBlock)
	assert.Equal(t, backend.Tip.Hash, status.LastAddedBlock.Hash)
	assert.Equal(t, []apiserver.Peer{{NodeID: peer, Address: "127.0.0.1:34553"}}, status.Peers)
}

func TestStatusBeforeFirstBlock(t *testing.T) {
	s, _ := newServer(t, &testutil.APIBackend{}, nil)

	rec := get(t, s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_added_block":null`)
	assert.Contains(t, rec.Body.String(), `"peers":[]`)
}

func TestBlocks(t *testing.T) {
	backend := &testutil.APIBackend{Tip: tip(t)}
	s, _ := newServer(t, backend, nil)

	for _, path := range []string{"/blocks/3", "/blocks/latest"} {
		rec := get(t, s, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		var b apiserver.Block
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&b))
		assert.Equal(t, backend.Tip.Hash, b.Hash, path)
		assert.Equal(t, uint64(3), b.Height, path)
		assert.Equal(t, uint64(5), b.Round, path)
	}

	assert.Equal(t, http.StatusNotFound, get(t, s, "/blocks/4").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/blocks/three").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/blocks/99999999999999999999999").Code)
}

func TestBalance(t *testing.T) {
	account := types.Hash([]byte("account"))
	backend := &testutil.APIBackend{Balances: map[types.AccountHash]types.Motes{account: types.NewMotes(1000)}}
	s, _ := newServer(t, backend, nil)

	rec := get(t, s, "/accounts/"+account.Hex()+"/balance")
	require.Equal(t, http.StatusOK, rec.Code)
	var balance apiserver.Balance
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&balance))
	assert.Equal(t, account, balance.Account)
	assert.Equal(t, "1000", balance.Balance.String())

	assert.Equal(t, http.StatusNotFound, get(t, s, "/accounts/"+types.Hash([]byte("other")).Hex()+"/balance").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/accounts/xyz/balance").Code)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	s, _ := newServer(t, &testutil.APIBackend{}, registry)
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_counter 1")
}

func TestServeUntilClosed(t *testing.T) {
	s, stopped := newServer(t, &testutil.APIBackend{}, nil)

	res, err := http.Get("http://" + s.Address() + "/peers")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	require.NoError(t, s.Close())
	ev := <-stopped
	assert.NoError(t, ev.(Stopped).Err)
}
