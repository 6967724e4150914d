package blockvalidator

import (
	"context"
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
	storage effect.StorageRequest
}

type testEmbedder struct{}

func (testEmbedder) FromStorageRequest(r effect.StorageRequest) testEvent {
	return testEvent{storage: r}
}

func newDeploy(t *testing.T, ts types.Timestamp) *types.Deploy {
	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	d, err := types.NewTransfer("casper-test", key, types.Hash([]byte("target")), types.NewMotes(1), ts, time.Hour)
	require.NoError(t, err)
	return d
}

type fixture struct {
	t *testing.T
	q *testutil.Queue[testEvent]
	v *BlockValidator[testEvent]
}

func newFixture(t *testing.T, conf Config) *fixture {
	return &fixture{
		t: t,
		q: testutil.NewQueue[testEvent](),
		v: New[testEvent](conf, 10, testEmbedder{}, common.NewTestEntry(t)),
	}
}

// validate drives the validator until it answers, with storage serving
// stored.
func (f *fixture) validate(fb *types.FinalizedBlock, stored map[types.DeployHash]*types.Deploy) bool {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			ev, _, err := f.q.Pop(ctx)
			if err != nil {
				return
			}
			if req, ok := ev.storage.(effect.GetDeploysRequest); ok {
				out := make([]*types.Deploy, len(req.Hashes))
				for i, h := range req.Hashes {
					out[i] = stored[h]
				}
				req.Responder.Respond(out)
			}
		}
	}()

	responder, answer := effect.NewResponder[bool]()
	pending := f.v.HandleEvent(f.q.Builder, nil, Request{Request: effect.BlockValidationRequest{
		Block:     fb,
		Responder: responder,
	}})
	for len(pending) > 0 {
		var next effect.Effects[Event]
		for ev := range testutil.Go(pending) {
			next = append(next, f.v.HandleEvent(f.q.Builder, nil, ev)...)
		}
		pending = next
	}
	return testutil.Answer(f.t, answer)
}

func TestValidBlock(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	now := types.Now()
	a, b := newDeploy(t, now), newDeploy(t, now)
	fb := &types.FinalizedBlock{Height: 1, Timestamp: now.Add(time.Second), Deploys: []types.DeployHash{a.Hash, b.Hash}}

	assert.True(t, f.validate(fb, map[types.DeployHash]*types.Deploy{a.Hash: a, b.Hash: b}))
}

func TestEmptyBlockIsValid(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	responder, answer := effect.NewResponder[bool]()
	effs := f.v.HandleEvent(f.q.Builder, nil, Request{Request: effect.BlockValidationRequest{
		Block:     &types.FinalizedBlock{Height: 1},
		Responder: responder,
	}})
	events := testutil.Go(effs)
	req := f.q.Next(t).storage.(effect.GetDeploysRequest)
	req.Responder.Respond(nil)
	for ev := range events {
		assert.Empty(t, f.v.HandleEvent(f.q.Builder, nil, ev))
	}
	assert.True(t, testutil.Answer(t, answer))
}

func TestDuplicateDeploysAreRejectedWithoutStorage(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	d := newDeploy(t, types.Now())

	responder, answer := effect.NewResponder[bool]()
	effs := f.v.HandleEvent(f.q.Builder, nil, Request{Request: effect.BlockValidationRequest{
		Block:     &types.FinalizedBlock{Height: 1, Timestamp: types.Now(), Deploys: []types.DeployHash{d.Hash, d.Hash}},
		Responder: responder,
	}})
	assert.Empty(t, effs)
	assert.False(t, testutil.Answer(t, answer))
	assert.Equal(t, 0, f.q.Len())
}

func TestDeployNewerThanBlockIsRejected(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	now := types.Now()
	d := newDeploy(t, now.Add(time.Minute))
	fb := &types.FinalizedBlock{Height: 1, Timestamp: now, Deploys: []types.DeployHash{d.Hash}}

	assert.False(t, f.validate(fb, map[types.DeployHash]*types.Deploy{d.Hash: d}))
}

func TestMissingDeploysAreRetriedThenRejected(t *testing.T) {
	f := newFixture(t, Config{RetryDelay: time.Millisecond, MaxRetries: 2})
	d := newDeploy(t, types.Now())
	fb := &types.FinalizedBlock{Height: 1, Timestamp: types.Now(), Deploys: []types.DeployHash{d.Hash}}

	assert.False(t, f.validate(fb, nil))
}

func TestMissingDeployArrivingLaterIsAccepted(t *testing.T) {
	f := newFixture(t, Config{RetryDelay: time.Millisecond, MaxRetries: 3})
	now := types.Now()
	d := newDeploy(t, now)
	fb := &types.FinalizedBlock{Height: 1, Timestamp: now, Deploys: []types.DeployHash{d.Hash}}

	responder, answer := effect.NewResponder[bool]()
	effs := f.v.HandleEvent(f.q.Builder, nil, Request{Request: effect.BlockValidationRequest{Block: fb, Responder: responder}})

	// First attempt: unknown.
	events := testutil.Go(effs)
	f.q.Next(t).storage.(effect.GetDeploysRequest).Responder.Respond([]*types.Deploy{nil})
	retry := testutil.RunEffects(t, f.v.HandleEvent(f.q.Builder, nil, <-events))
	require.Len(t, retry, 1)
	assert.Equal(t, 1, retry[0].(Retry).Attempt)

	// Second attempt: gossip delivered it meanwhile.
	events = testutil.Go(f.v.HandleEvent(f.q.Builder, nil, retry[0]))
	f.q.Next(t).storage.(effect.GetDeploysRequest).Responder.Respond([]*types.Deploy{d})
	assert.Empty(t, f.v.HandleEvent(f.q.Builder, nil, <-events))
	assert.True(t, testutil.Answer(t, answer))
}
