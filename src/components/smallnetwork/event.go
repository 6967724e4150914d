package smallnetwork

import (
	"fmt"
	"net"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Event is handled by the small network.
type Event interface {
	fmt.Stringer
	smallNetworkEvent()
}

// IncomingConnection was accepted and still needs its handshake.
type IncomingConnection struct {
	Conn net.Conn
}

// HandshakeComplete ...
type HandshakeComplete struct {
	conn *connection
}

// HandshakeFailed ...
type HandshakeFailed struct {
	// Addr is set for outgoing connections.
	Addr     string
	Outgoing bool
	Err      error
}

// IncomingMessage is a frame read from a peer.
type IncomingMessage struct {
	Peer    types.NodeID
	ConnID  uint64
	Payload types.Message
}

// ConnectionClosed ...
type ConnectionClosed struct {
	Peer   types.NodeID
	ConnID uint64
	Err    error
}

// RetryDial ...
type RetryDial struct {
	Addr string
}

// NetworkRequest wraps a request served by the small network.
type NetworkRequest struct {
	Request effect.NetworkRequest
}

// NetworkInfoRequest wraps a peer info request.
type NetworkInfoRequest struct {
	Request effect.NetworkInfoRequest
}

func (IncomingConnection) smallNetworkEvent() {}
func (HandshakeComplete) smallNetworkEvent()  {}
func (HandshakeFailed) smallNetworkEvent()    {}
func (IncomingMessage) smallNetworkEvent()    {}
func (ConnectionClosed) smallNetworkEvent()   {}
func (RetryDial) smallNetworkEvent()          {}
func (NetworkRequest) smallNetworkEvent()     {}
func (NetworkInfoRequest) smallNetworkEvent() {}

func (e IncomingConnection) String() string {
	return fmt.Sprintf("incoming connection from %s", e.Conn.RemoteAddr())
}
func (e HandshakeComplete) String() string {
	return fmt.Sprintf("handshake complete with %s (outgoing: %v)", e.conn.peer, e.conn.outgoing)
}
func (e HandshakeFailed) String() string {
	return fmt.Sprintf("handshake with %q failed: %v", e.Addr, e.Err)
}
func (e IncomingMessage) String() string {
	return fmt.Sprintf("incoming %s from %s", e.Payload, e.Peer)
}
func (e ConnectionClosed) String() string {
	return fmt.Sprintf("connection %d to %s closed: %v", e.ConnID, e.Peer, e.Err)
}
func (e RetryDial) String() string          { return fmt.Sprintf("retry dialing %s", e.Addr) }
func (e NetworkRequest) String() string     { return e.Request.String() }
func (e NetworkInfoRequest) String() string { return e.Request.String() }
