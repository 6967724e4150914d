package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AccumulateNetwork/jsonrpc2/v15"
	"github.com/pkg/errors"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/apiserver"
	"github.com/shivlim/casper-node/src/components/testutil"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var info = apiserver.NodeInfo{
	ChainName:       "casper-test",
	ProtocolVersion: "1.0.0",
	OurID:           types.NodeID(types.Hash([]byte("us"))),
}

// newServer starts a loop standing in for the reactor. Deploys announced to
// it are accepted unless they are for another chain.
func newServer(t *testing.T, backend *testutil.APIBackend) *RpcServer[testutil.APIEvent] {
	q := testutil.NewQueue[testutil.APIEvent]()
	s, _, err := New[testutil.APIEvent](Config{Address: "127.0.0.1:0"}, info, testutil.APIEmbedder{}, q.Builder, common.NewTestEntry(t))
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
			switch {
			case ev.Rpc.APIRequest != nil:
				testutil.Go(s.HandleEvent(q.Builder, nil, Request{RpcRequest: ev.Rpc}))
			case ev.Announcement != nil:
				var res error
				if ev.Announcement.DeployReceived.Header.ChainName != info.ChainName {
					res = errors.New("wrong chain name")
				}
				ev.Announcement.Responder.Respond(res)
			default:
				backend.Answer(ev)
			}
		}
	}()
	return s
}

func call(t *testing.T, s *RpcServer[testutil.APIEvent], method string, params interface{}) interface{} {
	m := s.Method(method)
	require.NotNil(t, m, method)
	var raw json.RawMessage
	if params != nil {
		var err error
		raw, err = json.Marshal(params)
		require.NoError(t, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m(ctx, raw)
}

func requireCode(t *testing.T, code jsonrpc2.ErrorCode, res interface{}) {
	t.Helper()
	var rpcErr jsonrpc2.Error
	require.True(t, errors.As(res.(error), &rpcErr), "%v", res)
	assert.Equal(t, code, rpcErr.Code)
}

func deploy(t *testing.T, chainName string) *types.Deploy {
	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	d, err := types.NewTransfer(chainName, key, types.Hash([]byte("target")), types.NewMotes(10), types.Now(), time.Hour)
	require.NoError(t, err)
	return d
}

func TestPutDeploy(t *testing.T) {
	s := newServer(t, &testutil.APIBackend{})

	d := deploy(t, "casper-test")
	res := call(t, s, "account_put_deploy", PutDeployParams{Deploy: d})
	require.IsType(t, PutDeployResult{}, res)
	assert.Equal(t, d.Hash, res.(PutDeployResult).DeployHash)

	requireCode(t, ErrCodeDeploy, call(t, s, "account_put_deploy", PutDeployParams{Deploy: deploy(t, "other")}))
	requireCode(t, ErrCodeValidation, call(t, s, "account_put_deploy", map[string]string{}))
	requireCode(t, ErrCodeValidation, call(t, s, "account_put_deploy", "not an object"))
}

func TestGetBlock(t *testing.T) {
	tip, err := types.NewBlock(types.BlockHash{}, types.Digest{}, &types.FinalizedBlock{Height: 2}, "1.0.0")
	require.NoError(t, err)
	s := newServer(t, &testutil.APIBackend{Tip: tip})

	two, three := uint64(2), uint64(3)
	for _, params := range []interface{}{nil, GetBlockParams{Height: &two}, GetBlockParams{Hash: tip.Hash.Hex()}} {
		res := call(t, s, "chain_get_block", params)
		require.IsType(t, GetBlockResult{}, res, "%v", params)
		assert.Equal(t, tip.Hash, res.(GetBlockResult).Block.Hash)
	}

	requireCode(t, ErrCodeNotFound, call(t, s, "chain_get_block", GetBlockParams{Height: &three}))
	requireCode(t, ErrCodeNotFound, call(t, s, "chain_get_block", GetBlockParams{Hash: types.Hash([]byte("x")).Hex()}))
	requireCode(t, ErrCodeValidation, call(t, s, "chain_get_block", GetBlockParams{Hash: "abcd"}))
	requireCode(t, ErrCodeValidation, call(t, s, "chain_get_block", GetBlockParams{Hash: tip.Hash.Hex(), Height: &two}))
}

func TestGetBlockOnEmptyChain(t *testing.T) {
	s := newServer(t, &testutil.APIBackend{})

	res := call(t, s, "chain_get_block", nil)
	require.IsType(t, GetBlockResult{}, res)
	assert.Nil(t, res.(GetBlockResult).Block)
}

func TestStatusAndPeers(t *testing.T) {
	peer := types.NodeID(types.Hash([]byte("peer")))
	s := newServer(t, &testutil.APIBackend{Peers: map[types.NodeID]string{peer: "127.0.0.1:1"}})

	status := call(t, s, "info_get_status", nil)
	require.IsType(t, apiserver.Status{}, status)
	assert.Equal(t, info.ChainName, status.(apiserver.Status).ChainName)
	assert.Nil(t, status.(apiserver.Status).LastAddedBlock)

	peers := call(t, s, "info_get_peers", nil)
	require.IsType(t, GetPeersResult{}, peers)
	assert.Equal(t, []apiserver.Peer{{NodeID: peer, Address: "127.0.0.1:1"}}, peers.(GetPeersResult).Peers)
}

func TestGetBalance(t *testing.T) {
	account := types.Hash([]byte("account"))
	s := newServer(t, &testutil.APIBackend{Balances: map[types.AccountHash]types.Motes{account: types.NewMotes(5)}})

	res := call(t, s, "state_get_balance", GetBalanceParams{Account: account.Hex()})
	require.IsType(t, apiserver.Balance{}, res)
	assert.Equal(t, "5", res.(apiserver.Balance).Balance.String())

	requireCode(t, ErrCodeNotFound, call(t, s, "state_get_balance", GetBalanceParams{Account: types.Hash([]byte("y")).Hex()}))
	requireCode(t, ErrCodeValidation, call(t, s, "state_get_balance", nil))
}

func TestOverHTTP(t *testing.T) {
	s := newServer(t, &testutil.APIBackend{})

	body := []byte(`{"jsonrpc":"2.0","method":"info_get_peers","id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Result GetPeersResult `json:"result"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Empty(t, res.Result.Peers)
}
