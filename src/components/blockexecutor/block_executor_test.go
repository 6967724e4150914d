package blockexecutor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/testutil"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	storage  effect.StorageRequest
	runtime  effect.ContractRuntimeRequest
	executed *effect.BlockExecutorAnnouncement
}

type testEmbedder struct{}

func (testEmbedder) FromStorageRequest(r effect.StorageRequest) testEvent {
	return testEvent{storage: r}
}

func (testEmbedder) FromContractRuntimeRequest(r effect.ContractRuntimeRequest) testEvent {
	return testEvent{runtime: r}
}

func (testEmbedder) FromBlockExecutorAnnouncement(a effect.BlockExecutorAnnouncement) testEvent {
	return testEvent{executed: &a}
}

func newExecutor(t *testing.T, tip *types.Block) (*BlockExecutor[testEvent], *testutil.Queue[testEvent]) {
	c := testutil.LoadChainspec(t, "1s", testutil.Account{Hash: strings.Repeat("ab", 32), Balance: 1000, Bond: 10})
	genesis := types.Hash([]byte("genesis"))
	return New[testEvent](c, genesis, tip, testEmbedder{}, common.NewTestEntry(t)), testutil.NewQueue[testEvent]()
}

func newDeploy(t *testing.T) *types.Deploy {
	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	d, err := types.NewTransfer("casper-test", key, types.Hash([]byte("target")), types.NewMotes(1), types.Now(), time.Hour)
	require.NoError(t, err)
	return d
}

// execute runs fb through the executor, answering storage and the contract
// runtime, and returns the executed block.
func execute(t *testing.T, e *BlockExecutor[testEvent], q *testutil.Queue[testEvent], fb *types.FinalizedBlock, deploys []*types.Deploy, root types.Digest) *types.Block {
	t.Helper()

	events := testutil.Go(e.HandleEvent(q.Builder, nil, Finalized{Block: fb}))
	get := q.Next(t).storage.(effect.GetDeploysRequest)
	assert.Equal(t, fb.Deploys, get.Hashes)
	get.Responder.Respond(deploys)

	events = testutil.Go(e.HandleEvent(q.Builder, nil, <-events))
	exec := q.Next(t).runtime.(effect.ExecuteRequest)
	assert.Equal(t, deploys, exec.Deploys)
	results := make([]types.ExecutionResult, len(deploys))
	for i, d := range deploys {
		results[i] = types.ExecutionResult{DeployHash: d.Hash}
	}
	exec.Responder.Respond(effect.ExecuteResult{StateRoot: root, Results: results})

	testutil.RunEffects(t, e.HandleEvent(q.Builder, nil, <-events))
	ann := q.Next(t).executed
	require.NotNil(t, ann)
	assert.Len(t, ann.Results, len(deploys))
	return ann.Block
}

func TestBlocksChainOnParentHashAndStateRoot(t *testing.T) {
	e, q := newExecutor(t, nil)
	d := newDeploy(t)

	root1 := types.Hash([]byte("root1"))
	b0 := execute(t, e, q, &types.FinalizedBlock{Height: 0, Deploys: []types.DeployHash{d.Hash}}, []*types.Deploy{d}, root1)
	assert.Equal(t, types.BlockHash{}, b0.Header.ParentHash)
	assert.Equal(t, root1, b0.Header.StateRootHash)
	assert.Equal(t, "1.0.0", b0.Header.ProtocolVersion)
	require.NoError(t, b0.Verify())

	root2 := types.Hash([]byte("root2"))
	events := testutil.Go(e.HandleEvent(q.Builder, nil, Finalized{Block: &types.FinalizedBlock{Height: 1}}))
	q.Next(t).storage.(effect.GetDeploysRequest).Responder.Respond(nil)
	events = testutil.Go(e.HandleEvent(q.Builder, nil, <-events))
	exec := q.Next(t).runtime.(effect.ExecuteRequest)
	assert.Equal(t, root1, exec.ParentStateRoot)
	exec.Responder.Respond(effect.ExecuteResult{StateRoot: root2})
	testutil.RunEffects(t, e.HandleEvent(q.Builder, nil, <-events))
	b1 := q.Next(t).executed.Block
	assert.Equal(t, b0.Hash, b1.Header.ParentHash)
	assert.Equal(t, uint64(2), e.NextHeight())
}

func TestBlocksAreExecutedOneAtATime(t *testing.T) {
	e, q := newExecutor(t, nil)

	effs := e.HandleEvent(q.Builder, nil, Finalized{Block: &types.FinalizedBlock{Height: 0}})
	require.Len(t, effs, 1)
	assert.Empty(t, e.HandleEvent(q.Builder, nil, Finalized{Block: &types.FinalizedBlock{Height: 1}}),
		"the second block waits for the first")
}

func TestRestartSkipsExecutedBlocks(t *testing.T) {
	tip := &types.Block{Header: types.BlockHeader{Height: 4, StateRootHash: types.Hash([]byte("tip"))}}
	e, q := newExecutor(t, tip)

	assert.Empty(t, e.HandleEvent(q.Builder, nil, Finalized{Block: &types.FinalizedBlock{Height: 3}}))
	assert.Equal(t, uint64(5), e.NextHeight())

	events := testutil.Go(e.HandleEvent(q.Builder, nil, Finalized{Block: &types.FinalizedBlock{Height: 5}}))
	q.Next(t).storage.(effect.GetDeploysRequest).Responder.Respond(nil)
	testutil.Go(e.HandleEvent(q.Builder, nil, <-events))
	exec := q.Next(t).runtime.(effect.ExecuteRequest)
	assert.Equal(t, tip.Header.StateRootHash, exec.ParentStateRoot)
}

func TestHeightGapIsFatal(t *testing.T) {
	e, q := newExecutor(t, nil)
	testutil.Go(e.HandleEvent(q.Builder, nil, Finalized{Block: &types.FinalizedBlock{Height: 2}}))
	assert.Error(t, testutil.Answer(t, q.Fatal))
}

func TestExecutionErrorIsFatal(t *testing.T) {
	e, q := newExecutor(t, nil)
	fb := &types.FinalizedBlock{Height: 0}
	testutil.Go(e.HandleEvent(q.Builder, nil, Executed{Block: fb, Result: effect.ExecuteResult{Err: errors.New("state full")}}))
	assert.Contains(t, testutil.Answer(t, q.Fatal).Error(), "state full")
}
