package smallnetwork

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/testutil"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	ann effect.NetworkAnnouncement
}

type testEmbedder struct{}

func (testEmbedder) FromNetworkAnnouncement(a effect.NetworkAnnouncement) testEvent {
	return testEvent{ann: a}
}

// testNode dispatches network events on its own goroutine, the way a reactor
// would. Everything touching the component goes through do.
type testNode struct {
	net    *SmallNetwork[testEvent]
	q      *testutil.Queue[testEvent]
	ctx    context.Context
	events chan Event
	calls  chan func()
}

func newTestNode(t *testing.T, chainName string, known ...string) *testNode {
	conf := DefaultConfig()
	conf.BindAddress = "127.0.0.1:0"
	conf.PublicAddress = ""
	conf.KnownAddresses = known
	conf.ReconnectDelay = 50 * time.Millisecond

	identity, err := NewIdentity()
	require.NoError(t, err)

	q := testutil.NewQueue[testEvent]()
	n, effs, err := New[testEvent](
		common.NewWithDir(t.TempDir(), conf),
		identity,
		chainName,
		testEmbedder{},
		prometheus.NewRegistry(),
		common.NewPrefixedTestEntry(t, identity.ID.String()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	node := &testNode{
		net:    n,
		q:      q,
		ctx:    ctx,
		events: make(chan Event, 64),
		calls:  make(chan func()),
	}
	done := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		<-done
		n.Close()
	})

	go func() {
		defer close(done)
		r := rng.New(7)
		for {
			select {
			case ev := <-node.events:
				node.spawn(n.HandleEvent(q.Builder, r, ev))
			case f := <-node.calls:
				f()
			case <-ctx.Done():
				return
			}
		}
	}()
	node.spawn(effs)
	return node
}

func (n *testNode) spawn(effs effect.Effects[Event]) {
	for _, eff := range effs {
		eff := eff
		go func() {
			for _, ev := range eff(n.ctx) {
				select {
				case n.events <- ev:
				case <-n.ctx.Done():
					return
				}
			}
		}()
	}
}

func (n *testNode) do(f func()) {
	done := make(chan struct{})
	n.calls <- func() {
		f()
		close(done)
	}
	<-done
}

func (n *testNode) handle(ev Event) {
	n.do(func() {
		n.spawn(n.net.HandleEvent(n.q.Builder, rng.New(1), ev))
	})
}

func (n *testNode) peers() map[types.NodeID]string {
	var out map[types.NodeID]string
	n.do(func() { out = n.net.Peers() })
	return out
}

func (n *testNode) nextAnnouncement(t *testing.T) effect.NetworkAnnouncement {
	t.Helper()
	ev := n.q.Next(t)
	require.NotNil(t, ev.ann)
	return ev.ann
}

func (n *testNode) waitForPeer(t *testing.T) types.NodeID {
	t.Helper()
	for {
		if p, ok := n.nextAnnouncement(t).(effect.NewPeer); ok {
			return p.ID
		}
	}
}

func consensusPayload(s string) types.Message {
	return types.NewConsensusMessage([]byte(s))
}

func TestTwoNodesConnectAndExchangeMessages(t *testing.T) {
	a := newTestNode(t, "casper-test")
	b := newTestNode(t, "casper-test", a.net.Address())

	assert.Equal(t, b.net.ID(), a.waitForPeer(t))
	assert.Equal(t, a.net.ID(), b.waitForPeer(t))

	assert.Contains(t, a.peers(), b.net.ID())
	assert.Equal(t, a.net.Address(), b.peers()[a.net.ID()])

	responder, answered := effect.NewResponder[struct{}]()
	b.handle(NetworkRequest{Request: effect.SendMessageRequest{
		Dest:      a.net.ID(),
		Payload:   consensusPayload("hello"),
		Responder: responder,
	}})
	testutil.Answer(t, answered)

	got, ok := a.nextAnnouncement(t).(effect.MessageReceived)
	require.True(t, ok)
	assert.Equal(t, b.net.ID(), got.Sender)
	assert.Equal(t, types.ConsensusMessage, got.Payload.Kind)
	assert.Equal(t, []byte("hello"), got.Payload.Consensus)

	// Replies travel over the same connection.
	responder, answered = effect.NewResponder[struct{}]()
	a.handle(NetworkRequest{Request: effect.BroadcastRequest{
		Payload:   consensusPayload("world"),
		Responder: responder,
	}})
	testutil.Answer(t, answered)

	got, ok = b.nextAnnouncement(t).(effect.MessageReceived)
	require.True(t, ok)
	assert.Equal(t, a.net.ID(), got.Sender)
	assert.Equal(t, []byte("world"), got.Payload.Consensus)
}

func TestSendToUnknownPeerIsDropped(t *testing.T) {
	a := newTestNode(t, "casper-test")

	responder, answered := effect.NewResponder[struct{}]()
	a.handle(NetworkRequest{Request: effect.SendMessageRequest{
		Dest:      types.NodeID(types.Hash([]byte("nobody"))),
		Payload:   consensusPayload("lost"),
		Responder: responder,
	}})
	testutil.Answer(t, answered)
}

func TestChainNameMismatchIsRejected(t *testing.T) {
	a := newTestNode(t, "casper-test")
	newTestNode(t, "other-chain", a.net.Address())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, _, err := a.q.Pop(ctx)
	assert.Error(t, err, "no peer should have been announced")
	assert.Empty(t, a.peers())
}

func TestGossipHonoursCountAndExclusions(t *testing.T) {
	a := newTestNode(t, "casper-test")
	b := newTestNode(t, "casper-test", a.net.Address())
	c := newTestNode(t, "casper-test", a.net.Address())

	a.waitForPeer(t)
	a.waitForPeer(t)
	b.waitForPeer(t)
	c.waitForPeer(t)

	responder, answered := effect.NewResponder[[]types.NodeID]()
	a.handle(NetworkRequest{Request: effect.GossipRequest{
		Payload:   consensusPayload("gossip"),
		Count:     5,
		Exclude:   []types.NodeID{b.net.ID()},
		Responder: responder,
	}})
	assert.Equal(t, []types.NodeID{c.net.ID()}, testutil.Answer(t, answered))

	got, ok := c.nextAnnouncement(t).(effect.MessageReceived)
	require.True(t, ok)
	assert.Equal(t, []byte("gossip"), got.Payload.Consensus)

	responder, answered = effect.NewResponder[[]types.NodeID]()
	a.handle(NetworkRequest{Request: effect.GossipRequest{
		Payload:   consensusPayload("one"),
		Count:     1,
		Responder: responder,
	}})
	assert.Len(t, testutil.Answer(t, answered), 1)
}

func TestGetPeersRequest(t *testing.T) {
	a := newTestNode(t, "casper-test")
	b := newTestNode(t, "casper-test", a.net.Address())
	a.waitForPeer(t)

	responder, answered := effect.NewResponder[map[types.NodeID]string]()
	a.handle(NetworkInfoRequest{Request: effect.GetPeersRequest{Responder: responder}})
	peers := testutil.Answer(t, answered)
	assert.Len(t, peers, 1)
	assert.Contains(t, peers, b.net.ID())
}

func TestDialingOurselvesIsIgnored(t *testing.T) {
	conf := DefaultConfig()
	conf.BindAddress = "127.0.0.1:0"
	conf.PublicAddress = ""

	identity, err := NewIdentity()
	require.NoError(t, err)
	n, _, err := New[testEvent](common.NewWithDir("", conf), identity, "casper-test", testEmbedder{}, nil, common.NewTestEntry(t))
	require.NoError(t, err)
	defer n.Close()

	q := testutil.NewQueue[testEvent]()
	c := &connection{peer: identity.ID, addr: "127.0.0.1:1", outgoing: true, conn: nopConn(t)}
	assert.Empty(t, n.HandleEvent(q.Builder, rng.New(1), HandshakeComplete{conn: c}))
	assert.Empty(t, n.Peers())
	assert.Empty(t, n.HandleEvent(q.Builder, rng.New(1), RetryDial{Addr: "127.0.0.1:1"}))
}

func TestPreferredConnectionIsAgreedOnByBothEnds(t *testing.T) {
	idA, err := NewIdentity()
	require.NoError(t, err)
	idB, err := NewIdentity()
	require.NoError(t, err)

	a := &SmallNetwork[testEvent]{identity: idA}
	b := &SmallNetwork[testEvent]{identity: idB}

	// The connection a dialed to b, as seen from both ends.
	aDialed := a.preferred(&connection{peer: idB.ID, outgoing: true})
	bAccepted := b.preferred(&connection{peer: idA.ID, outgoing: false})
	assert.Equal(t, aDialed, bAccepted)

	// And the one b dialed to a.
	bDialed := b.preferred(&connection{peer: idA.ID, outgoing: true})
	aAccepted := a.preferred(&connection{peer: idB.ID, outgoing: false})
	assert.Equal(t, bDialed, aAccepted)

	assert.NotEqual(t, aDialed, bDialed)
}

func TestHandshakeVerification(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	h, err := newHandshake(id, "casper-test", "127.0.0.1:34553")
	require.NoError(t, err)

	got, err := h.verify("casper-test")
	require.NoError(t, err)
	assert.Equal(t, id.ID, got)

	_, err = h.verify("other-chain")
	assert.Error(t, err)

	h.PublicAddress = "10.0.0.1:34553"
	_, err = h.verify("casper-test")
	assert.Error(t, err)
}

func TestFrameSizeIsBounded(t *testing.T) {
	left, right := net.Pipe()
	defer left.Close()
	defer right.Close()

	c := newConnection(1, left, true, 16)
	err := c.writeFrame(consensusPayload("far too long for sixteen bytes"), time.Second)
	assert.Equal(t, errFrameTooLarge, err)
}

func nopConn(t *testing.T) net.Conn {
	left, right := net.Pipe()
	t.Cleanup(func() {
		left.Close()
		right.Close()
	})
	return left
}
