package blockproposer

import (
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

func deploy(t *testing.T, ts types.Timestamp, ttl time.Duration, amount uint64) *types.Deploy {
	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	d, err := types.NewTransfer("casper-test", key, types.Hash([]byte("target")), types.NewMotes(amount), ts, ttl)
	require.NoError(t, err)
	return d
}

func TestListForInclusionIsOrderedAndBounded(t *testing.T) {
	p := New(DefaultConfig(), common.NewTestEntry(t))
	now := types.Timestamp(1000000)

	var ds []*types.Deploy
	for i := 0; i < 5; i++ {
		d := deploy(t, now, time.Hour, uint64(i+1))
		ds = append(ds, d)
		assert.True(t, p.Add(d))
	}
	assert.False(t, p.Add(ds[0]), "duplicates are ignored")

	got := p.ListForInclusion(3, now)
	assert.Equal(t, []types.DeployHash{ds[0].Hash, ds[1].Hash, ds[2].Hash}, got)

	// Listing does not consume.
	assert.Equal(t, 5, p.Pending())
}

func TestFinalizedDeploysAreNotProposedAgain(t *testing.T) {
	p := New(DefaultConfig(), common.NewTestEntry(t))
	now := types.Timestamp(1000000)
	a := deploy(t, now, time.Hour, 1)
	b := deploy(t, now, time.Hour, 2)
	p.Add(a)
	p.Add(b)

	p.MarkFinalized(&types.FinalizedBlock{Height: 1, Timestamp: now, Deploys: []types.DeployHash{a.Hash}})
	assert.Equal(t, []types.DeployHash{b.Hash}, p.ListForInclusion(10, now))
	assert.False(t, p.Add(a), "a late copy of a finalized deploy")
}

func TestExpiredDeploysArePruned(t *testing.T) {
	p := New(DefaultConfig(), common.NewTestEntry(t))
	now := types.Timestamp(1000000)
	short := deploy(t, now, time.Second, 1)
	long := deploy(t, now, time.Hour, 2)
	p.Add(short)
	p.Add(long)

	later := now.Add(time.Minute)
	q := testutil.NewQueue[Event]()
	responder, answer := effect.NewResponder[[]types.DeployHash]()
	p.HandleEvent(q.Builder, nil, Request{Request: effect.BlockProposerRequest{
		Max:         10,
		CurrentTime: later,
		Responder:   responder,
	}})
	assert.Equal(t, []types.DeployHash{long.Hash}, testutil.Answer(t, answer))
	assert.Equal(t, 1, p.Pending())
}

func TestBufferIsBounded(t *testing.T) {
	p := New(Config{MaxPending: 1}, common.NewTestEntry(t))
	now := types.Timestamp(1000000)
	assert.True(t, p.Add(deploy(t, now, time.Hour, 1)))
	assert.False(t, p.Add(deploy(t, now, time.Hour, 2)))
}
