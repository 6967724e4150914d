// Package smallnetwork connects a node to its peers over TCP.
//
// Every peer gets at most one connection. Connections start with a signed
// handshake proving possession of the node key and agreeing on the chain
// name, after which both sides exchange length-prefixed msgpack frames.
// Accepting, dialing, reading and writing all run as effects; the peer table
// is only touched from HandleEvent.
package smallnetwork

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Embedder is what the hosting reactor must provide.
type Embedder[REv any] interface {
	effect.NetworkAnnouncementEmbedder[REv]
}

// SmallNetwork is a fully connected TCP network of validators.
type SmallNetwork[REv any] struct {
	conf      Config
	identity  Identity
	chainName string
	emb       Embedder[REv]

	stream    StreamLayer
	handshake *handshake

	peers   map[types.NodeID]*connection
	dialing map[string]bool
	// selfAddrs are known addresses that turned out to be our own.
	selfAddrs map[string]bool

	nextConnID *atomic.Uint64
	closed     *atomic.Bool

	metrics *metrics
	logger  *logrus.Entry
}

// New binds the listener and returns the effects accepting connections and
// dialing the known addresses.
func New[REv any](
	conf common.WithDir[Config],
	identity Identity,
	chainName string,
	emb Embedder[REv],
	registry prometheus.Registerer,
	logger *logrus.Entry,
) (*SmallNetwork[REv], effect.Effects[Event], error) {
	c := conf.Value
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}

	m, err := newMetrics(registry)
	if err != nil {
		return nil, nil, &Error{Kind: Metrics, Cause: err}
	}

	stream, err := NewTCPStreamLayer(c.BindAddress, c.PublicAddress)
	if err != nil {
		return nil, nil, &Error{Kind: Listen, Cause: err}
	}

	hs, err := newHandshake(identity, chainName, stream.AdvertiseAddr())
	if err != nil {
		stream.Close()
		return nil, nil, &IdentityError{Cause: err}
	}

	n := &SmallNetwork[REv]{
		conf:       c,
		identity:   identity,
		chainName:  chainName,
		emb:        emb,
		stream:     stream,
		handshake:  hs,
		peers:      make(map[types.NodeID]*connection),
		dialing:    make(map[string]bool),
		selfAddrs:  make(map[string]bool),
		nextConnID: atomic.NewUint64(0),
		closed:     atomic.NewBool(false),
		metrics:    m,
		logger: logger.WithFields(logrus.Fields{
			"component": "small_network",
			"our_id":    identity.ID.String(),
		}),
	}
	n.logger.WithField("address", stream.AdvertiseAddr()).Info("listening")

	effs := n.accept(0)
	for _, addr := range c.KnownAddresses {
		if addr == stream.AdvertiseAddr() {
			continue
		}
		effs = append(effs, n.dial(addr)...)
	}
	return n, effs, nil
}

// ID is our node id.
func (n *SmallNetwork[REv]) ID() types.NodeID {
	return n.identity.ID
}

// Address is the address peers reach us on.
func (n *SmallNetwork[REv]) Address() string {
	return n.stream.AdvertiseAddr()
}

// Peers returns the connected peers and their addresses.
func (n *SmallNetwork[REv]) Peers() map[types.NodeID]string {
	out := make(map[types.NodeID]string, len(n.peers))
	for id, c := range n.peers {
		out[id] = c.addr
	}
	return out
}

// Close stops listening and drops every connection. It must not run
// concurrently with HandleEvent.
func (n *SmallNetwork[REv]) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := n.stream.Close()
	for id, c := range n.peers {
		c.Release()
		delete(n.peers, id)
	}
	return err
}

// HandleEvent tracks connections and serves network requests.
func (n *SmallNetwork[REv]) HandleEvent(eb effect.Builder, rng rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case IncomingConnection:
		return effect.Merge(n.accept(0), n.handshakeIncoming(ev))
	case HandshakeComplete:
		return n.handleHandshakeComplete(eb, ev.conn)
	case HandshakeFailed:
		n.logger.WithError(ev.Err).WithField("address", ev.Addr).Debug("handshake failed")
		if !ev.Outgoing {
			return nil
		}
		delete(n.dialing, ev.Addr)
		return n.retryLater(eb, ev.Addr)
	case IncomingMessage:
		c, ok := n.peers[ev.Peer]
		if !ok || c.id != ev.ConnID {
			return nil
		}
		n.metrics.received.Inc()
		return effect.Merge(
			n.read(c),
			effect.Ignore[Event](effect.AnnounceMessageReceived[REv](eb, n.emb, ev.Peer, ev.Payload)),
		)
	case ConnectionClosed:
		c, ok := n.peers[ev.Peer]
		if !ok || c.id != ev.ConnID {
			return nil
		}
		delete(n.peers, ev.Peer)
		c.Release()
		n.metrics.peers.Set(float64(len(n.peers)))
		n.logger.WithError(ev.Err).WithField("peer", ev.Peer).Info("connection closed")
		if c.outgoing {
			return n.retryLater(eb, c.addr)
		}
		return nil
	case RetryDial:
		if n.closed.Load() || n.dialing[ev.Addr] || n.connectedTo(ev.Addr) {
			return nil
		}
		return n.dial(ev.Addr)
	case NetworkRequest:
		return n.handleRequest(rng, ev.Request)
	case NetworkInfoRequest:
		switch req := ev.Request.(type) {
		case effect.GetPeersRequest:
			req.Responder.Respond(n.Peers())
		default:
			panic(fmt.Sprintf("unhandled network info request %T", req))
		}
		return nil
	default:
		panic(fmt.Sprintf("unhandled small network event %T", ev))
	}
}

func (n *SmallNetwork[REv]) handleHandshakeComplete(eb effect.Builder, c *connection) effect.Effects[Event] {
	if c.outgoing {
		delete(n.dialing, c.addr)
	}
	if n.closed.Load() {
		c.Release()
		return nil
	}
	if c.peer == n.identity.ID {
		n.logger.WithField("address", c.addr).Debug("connected to ourselves")
		if c.outgoing {
			n.selfAddrs[c.addr] = true
		}
		c.Release()
		return nil
	}

	if existing, ok := n.peers[c.peer]; ok {
		if !n.preferred(c) || n.preferred(existing) {
			c.Release()
			return nil
		}
		existing.Release()
	}

	n.peers[c.peer] = c
	n.metrics.peers.Set(float64(len(n.peers)))
	n.logger.WithFields(logrus.Fields{
		"peer":     c.peer,
		"address":  c.addr,
		"outgoing": c.outgoing,
	}).Info("connection established")

	return effect.Merge(
		n.read(c),
		effect.Ignore[Event](effect.AnnounceNewPeer[REv](eb, n.emb, c.peer)),
	)
}

// preferred tells which of two connections to the same peer survives: the
// one initiated by the node with the smaller id. Both ends agree on it.
func (n *SmallNetwork[REv]) preferred(c *connection) bool {
	weInitiate := n.identity.ID.Hex() < c.peer.Hex()
	return c.outgoing == weInitiate
}

func (n *SmallNetwork[REv]) connectedTo(addr string) bool {
	if n.selfAddrs[addr] {
		return true
	}
	for _, c := range n.peers {
		if c.addr == addr {
			return true
		}
	}
	return false
}

func (n *SmallNetwork[REv]) handleRequest(rng rng.NodeRng, req effect.NetworkRequest) effect.Effects[Event] {
	switch req := req.(type) {
	case effect.SendMessageRequest:
		c, ok := n.peers[req.Dest]
		if !ok {
			n.logger.WithField("peer", req.Dest).Debug("dropping message to unconnected peer")
			req.Responder.Respond(struct{}{})
			return nil
		}
		return n.send([]*connection{c}, req.Payload, func() { req.Responder.Respond(struct{}{}) })
	case effect.BroadcastRequest:
		return n.send(n.sortedPeers(nil), req.Payload, func() { req.Responder.Respond(struct{}{}) })
	case effect.GossipRequest:
		candidates := n.sortedPeers(req.Exclude)
		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		if req.Count < len(candidates) {
			candidates = candidates[:req.Count]
		}
		chosen := make([]types.NodeID, len(candidates))
		for i, c := range candidates {
			chosen[i] = c.peer
		}
		return n.send(candidates, req.Payload, func() { req.Responder.Respond(chosen) })
	default:
		panic(fmt.Sprintf("unhandled network request %T", req))
	}
}

// sortedPeers lists connections ordered by peer id, so that random choices
// over them only depend on the rng.
func (n *SmallNetwork[REv]) sortedPeers(exclude []types.NodeID) []*connection {
	skip := make(map[types.NodeID]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	out := make([]*connection, 0, len(n.peers))
	for id, c := range n.peers {
		if !skip[id] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].peer.Hex() < out[j].peer.Hex()
	})
	return out
}

func (n *SmallNetwork[REv]) send(conns []*connection, msg types.Message, done func()) effect.Effects[Event] {
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		for _, c := range conns {
			if err := c.writeFrame(msg, n.conf.HandshakeTimeout); err != nil {
				n.logger.WithError(err).WithField("peer", c.peer).Debug("failed to send message")
				c.Release()
				continue
			}
			n.metrics.sent.Inc()
		}
		done()
		return nil
	}}
}

func (n *SmallNetwork[REv]) accept(delay time.Duration) effect.Effects[Event] {
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return nil
			}
		}

		stop := context.AfterFunc(ctx, func() { n.stream.Close() })
		defer stop()

		conn, err := n.stream.Accept()
		if err != nil {
			if n.closed.Load() || ctx.Err() != nil {
				return nil
			}
			n.logger.WithError(err).Error("failed to accept connection")
			return n.accept(time.Second)[0](ctx)
		}
		return []Event{IncomingConnection{Conn: conn}}
	}}
}

func (n *SmallNetwork[REv]) handshakeIncoming(ev IncomingConnection) effect.Effects[Event] {
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		c := newConnection(n.nextConnID.Inc(), ev.Conn, false, n.conf.MaxMessageSize)
		id, addr, err := exchangeHandshakes(c, n.handshake, n.chainName, n.conf.HandshakeTimeout)
		if err != nil {
			return []Event{HandshakeFailed{Addr: ev.Conn.RemoteAddr().String(), Err: err}}
		}
		c.peer = id
		c.addr = addr
		return []Event{HandshakeComplete{conn: c}}
	}}
}

func (n *SmallNetwork[REv]) dial(addr string) effect.Effects[Event] {
	n.dialing[addr] = true
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		conn, err := n.stream.Dial(addr, n.conf.DialTimeout)
		if err != nil {
			return []Event{HandshakeFailed{Addr: addr, Outgoing: true, Err: err}}
		}
		c := newConnection(n.nextConnID.Inc(), conn, true, n.conf.MaxMessageSize)
		c.addr = addr
		id, _, err := exchangeHandshakes(c, n.handshake, n.chainName, n.conf.HandshakeTimeout)
		if err != nil {
			return []Event{HandshakeFailed{Addr: addr, Outgoing: true, Err: err}}
		}
		c.peer = id
		return []Event{HandshakeComplete{conn: c}}
	}}
}

func (n *SmallNetwork[REv]) read(c *connection) effect.Effects[Event] {
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		stop := context.AfterFunc(ctx, func() { c.Release() })
		defer stop()

		var msg types.Message
		if err := c.readFrame(&msg); err != nil {
			return []Event{ConnectionClosed{Peer: c.peer, ConnID: c.id, Err: err}}
		}
		return []Event{IncomingMessage{Peer: c.peer, ConnID: c.id, Payload: msg}}
	}}
}

func (n *SmallNetwork[REv]) retryLater(eb effect.Builder, addr string) effect.Effects[Event] {
	if n.closed.Load() || addr == "" || n.selfAddrs[addr] {
		return nil
	}
	return effect.Event(eb.SetTimeout(n.conf.ReconnectDelay), func(time.Duration) Event {
		return RetryDial{Addr: addr}
	})
}
