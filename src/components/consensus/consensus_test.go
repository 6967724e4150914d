package consensus

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/testutil"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	network    effect.NetworkRequest
	proposer   *effect.BlockProposerRequest
	validation *effect.BlockValidationRequest
	finalized  *types.FinalizedBlock
}

type testEmbedder struct{}

func (testEmbedder) FromNetworkRequest(r effect.NetworkRequest) testEvent {
	return testEvent{network: r}
}

func (testEmbedder) FromBlockProposerRequest(r effect.BlockProposerRequest) testEvent {
	return testEvent{proposer: &r}
}

func (testEmbedder) FromBlockValidationRequest(r effect.BlockValidationRequest) testEvent {
	return testEvent{validation: &r}
}

func (testEmbedder) FromConsensusAnnouncement(a effect.ConsensusAnnouncement) testEvent {
	return testEvent{finalized: a.Finalized}
}

type network struct {
	chainspec *chainspec.Chainspec
	keys      []*ecdsa.PrivateKey
}

// newNetwork creates a chainspec with n bonded validators. Rounds last an
// hour so that no tick fires during a test.
func newNetwork(t *testing.T, n int) *network {
	var accounts []testutil.Account
	var ks []*ecdsa.PrivateKey
	for i := 0; i < n; i++ {
		k, err := keys.GenerateECDSAKey()
		require.NoError(t, err)
		ks = append(ks, k)
		hash := types.AccountHash(keys.AccountHash(&k.PublicKey))
		accounts = append(accounts, testutil.Account{Hash: hash.Hex(), Balance: 1000, Bond: 10})
	}
	return &network{
		chainspec: testutil.LoadChainspec(t, "1h", accounts...),
		keys:      ks,
	}
}

type node struct {
	c *Consensus[testEvent]
	q *testutil.Queue[testEvent]
}

func (n *network) node(t *testing.T, key *ecdsa.PrivateKey, tip *types.Block) *node {
	q := testutil.NewQueue[testEvent]()
	c, effs, err := New[testEvent](DefaultConfig(), n.chainspec, key, tip, testEmbedder{}, q.Builder, prometheus.NewRegistry(), common.NewTestEntry(t))
	require.NoError(t, err)
	require.Len(t, effs, 1, "the first tick")
	return &node{c: c, q: q}
}

// at sets the node's clock to the middle of round.
func (n *node) at(round uint64) {
	genesis := n.c.genesis
	length := n.c.roundLength
	n.c.now = func() types.Timestamp {
		return genesis.Add(time.Duration(round)*length + length/2)
	}
}

// leaderKey returns the key leading round and one that does not.
func (n *network) leaderKey(t *testing.T, c *Consensus[testEvent], round uint64) (*ecdsa.PrivateKey, *ecdsa.PrivateKey) {
	leader := c.Leader(round)
	var lead, other *ecdsa.PrivateKey
	for _, k := range n.keys {
		if types.AccountHash(keys.AccountHash(&k.PublicKey)) == leader {
			lead = k
		} else {
			other = k
		}
	}
	require.NotNil(t, lead)
	return lead, other
}

func TestLeaderProposesAndFinalizes(t *testing.T) {
	net := newNetwork(t, 2)
	probe := net.node(t, nil, nil)
	leaderKey, _ := net.leaderKey(t, probe.c, 3)

	n := net.node(t, leaderKey, nil)
	n.at(3)
	assert.True(t, n.c.IsValidator())

	events := testutil.Go(n.c.HandleEvent(n.q.Builder, nil, Tick{}))
	req := n.q.Next(t).proposer
	require.NotNil(t, req)
	assert.Equal(t, 10, req.Max)
	deploy := types.Hash([]byte("deploy"))
	req.Responder.Respond([]types.DeployHash{deploy})

	ev := <-events
	proposal, ok := ev.(DeploysForProposal)
	require.True(t, ok)
	assert.Equal(t, uint64(3), proposal.Round)

	testutil.Go(n.c.HandleEvent(n.q.Builder, nil, proposal))
	var broadcast effect.BroadcastRequest
	var finalized *types.FinalizedBlock
	for i := 0; i < 2; i++ {
		ev := n.q.Next(t)
		if ev.finalized != nil {
			finalized = ev.finalized
		} else {
			broadcast = ev.network.(effect.BroadcastRequest)
			broadcast.Responder.Respond(struct{}{})
		}
	}
	require.NotNil(t, finalized)
	assert.Equal(t, uint64(0), finalized.Height)
	assert.Equal(t, uint64(3), finalized.Round)
	assert.Equal(t, []types.DeployHash{deploy}, finalized.Deploys)
	assert.Equal(t, uint64(1), n.c.NextHeight())

	sent, err := DecodeProposal(broadcast.Payload.Consensus)
	require.NoError(t, err)
	require.NoError(t, sent.Verify())
	assert.Equal(t, *finalized, sent.Block)

	// A second tick in the same round proposes nothing.
	assert.Len(t, n.c.HandleEvent(n.q.Builder, nil, Tick{}), 1)
}

func TestNonLeaderDoesNotPropose(t *testing.T) {
	net := newNetwork(t, 2)
	probe := net.node(t, nil, nil)
	_, otherKey := net.leaderKey(t, probe.c, 3)

	n := net.node(t, otherKey, nil)
	n.at(3)
	assert.Len(t, n.c.HandleEvent(n.q.Builder, nil, Tick{}), 1, "only the next tick")
}

func TestFollowerFinalizesValidProposal(t *testing.T) {
	net := newNetwork(t, 2)
	probe := net.node(t, nil, nil)
	leaderKey, otherKey := net.leaderKey(t, probe.c, 5)

	n := net.node(t, otherKey, nil)
	n.at(5)

	fb := types.FinalizedBlock{Round: 5, Height: 0, Timestamp: n.c.now(), Proposer: types.AccountHash(keys.AccountHash(&leaderKey.PublicKey))}
	p, err := NewProposal(leaderKey, fb)
	require.NoError(t, err)
	msg, err := p.Message()
	require.NoError(t, err)

	sender := types.NodeID(types.Hash([]byte("leader node")))
	events := testutil.Go(n.c.HandleEvent(n.q.Builder, nil, MessageReceived{Sender: sender, Payload: msg.Consensus}))
	req := n.q.Next(t).validation
	require.NotNil(t, req)
	assert.Equal(t, sender, req.Sender)
	req.Responder.Respond(true)

	testutil.RunEffects(t, n.c.HandleEvent(n.q.Builder, nil, <-events))
	got := n.q.Next(t).finalized
	require.NotNil(t, got)
	assert.Equal(t, fb, *got)
	assert.Equal(t, uint64(1), n.c.NextHeight())

	// The same proposal again is stale.
	assert.Empty(t, n.c.HandleEvent(n.q.Builder, nil, MessageReceived{Sender: sender, Payload: msg.Consensus}))
}

func TestFollowerDropsInvalidProposals(t *testing.T) {
	net := newNetwork(t, 2)
	probe := net.node(t, nil, nil)
	leaderKey, otherKey := net.leaderKey(t, probe.c, 5)
	leader := types.AccountHash(keys.AccountHash(&leaderKey.PublicKey))
	other := types.AccountHash(keys.AccountHash(&otherKey.PublicKey))

	sign := func(key *ecdsa.PrivateKey, fb types.FinalizedBlock) []byte {
		p, err := NewProposal(key, fb)
		require.NoError(t, err)
		msg, err := p.Message()
		require.NoError(t, err)
		return msg.Consensus
	}
	forged := func() []byte {
		p, err := NewProposal(otherKey, types.FinalizedBlock{Round: 5, Proposer: leader})
		require.NoError(t, err)
		msg, err := p.Message()
		require.NoError(t, err)
		return msg.Consensus
	}

	for name, payload := range map[string][]byte{
		"garbage":      []byte("not a proposal"),
		"wrong leader": sign(otherKey, types.FinalizedBlock{Round: 5, Proposer: other}),
		"forged":       forged(),
		"wrong height": sign(leaderKey, types.FinalizedBlock{Round: 5, Height: 3, Proposer: leader}),
		"future round": sign(leaderKey, types.FinalizedBlock{Round: 9, Proposer: leader}),
	} {
		t.Run(name, func(t *testing.T) {
			n := net.node(t, otherKey, nil)
			n.at(5)
			assert.Empty(t, n.c.HandleEvent(n.q.Builder, nil, MessageReceived{Payload: payload}))
			assert.Equal(t, 0, n.q.Len())
		})
	}
}

func TestRejectedProposalIsNotFinalized(t *testing.T) {
	net := newNetwork(t, 1)
	n := net.node(t, nil, nil)
	p := &Proposal{Block: types.FinalizedBlock{Round: 1}}
	assert.Empty(t, n.c.HandleEvent(n.q.Builder, nil, Validated{Proposal: p, Valid: false}))
	assert.Equal(t, uint64(0), n.c.NextHeight())
}

func TestBlockAddedAdvancesHeightAndRound(t *testing.T) {
	net := newNetwork(t, 1)
	n := net.node(t, nil, nil)

	n.c.HandleEvent(n.q.Builder, nil, BlockAdded{Block: &types.Block{Header: types.BlockHeader{Height: 4, Round: 9}}})
	assert.Equal(t, uint64(5), n.c.NextHeight())
	assert.Error(t, n.c.checkOpen(&types.FinalizedBlock{Round: 9, Height: 5}))
	assert.NoError(t, n.c.checkOpen(&types.FinalizedBlock{Round: 10, Height: 5}))
}

func TestRestartFromTip(t *testing.T) {
	net := newNetwork(t, 1)
	tip := &types.Block{Header: types.BlockHeader{Height: 2, Round: 7}}
	n := net.node(t, net.keys[0], tip)
	assert.Equal(t, uint64(3), n.c.NextHeight())

	// The single validator leads every round, but round 7 is done.
	n.at(7)
	assert.Len(t, n.c.HandleEvent(n.q.Builder, nil, Tick{}), 1)
	n.at(8)
	assert.Len(t, n.c.HandleEvent(n.q.Builder, nil, Tick{}), 2)
}

func TestLeaderScheduleIsRoundRobin(t *testing.T) {
	net := newNetwork(t, 3)
	n := net.node(t, nil, nil)
	seen := map[types.AccountHash]bool{}
	for r := uint64(0); r < 3; r++ {
		seen[n.c.Leader(r)] = true
		assert.Equal(t, n.c.Leader(r), n.c.Leader(r+3))
	}
	assert.Len(t, seen, 3)
}

func TestNewRejectsDuplicateMetrics(t *testing.T) {
	net := newNetwork(t, 1)
	registry := prometheus.NewRegistry()
	q := testutil.NewQueue[testEvent]()
	_, _, err := New[testEvent](DefaultConfig(), net.chainspec, nil, nil, testEmbedder{}, q.Builder, registry, common.NewTestEntry(t))
	require.NoError(t, err)
	_, _, err = New[testEvent](DefaultConfig(), net.chainspec, nil, nil, testEmbedder{}, q.Builder, registry, common.NewTestEntry(t))
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, Metrics, cerr.Kind)
}
