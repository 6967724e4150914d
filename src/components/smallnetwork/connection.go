package smallnetwork

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/types"
)

const bufSize = 64 << 10

// connection is one established, handshaken link to a peer. Reads happen on a
// single effect at a time; writes may be concurrent and are serialised by
// writeLock.
type connection struct {
	id       uint64
	peer     types.NodeID
	addr     string
	outgoing bool

	conn      net.Conn
	r         *bufio.Reader
	writeLock sync.Mutex
	w         *bufio.Writer
	maxSize   int
}

func newConnection(id uint64, conn net.Conn, outgoing bool, maxSize int) *connection {
	return &connection{
		id:       id,
		outgoing: outgoing,
		conn:     conn,
		r:        bufio.NewReaderSize(conn, bufSize),
		w:        bufio.NewWriterSize(conn, bufSize),
		maxSize:  maxSize,
	}
}

// Release closes the underlying connection
func (c *connection) Release() error {
	return c.conn.Close()
}

// writeFrame sends v as a length-prefixed msgpack frame.
func (c *connection) writeFrame(v interface{}, timeout time.Duration) error {
	data, err := types.MarshalMsgpack(v)
	if err != nil {
		return err
	}
	if len(data) > c.maxSize {
		return errFrameTooLarge
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := c.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := c.w.Write(data); err != nil {
		return err
	}
	return c.w.Flush()
}

// readFrame blocks until the next frame arrives and decodes it into v.
func (c *connection) readFrame(v interface{}) error {
	var header [4]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(header[:])
	if int(n) > c.maxSize {
		return errFrameTooLarge
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(c.r, data); err != nil {
		return err
	}
	return types.UnmarshalMsgpack(data, v)
}

// handshake is the first frame each side sends.
type handshake struct {
	ChainName     string
	PublicKey     []byte
	PublicAddress string
	Signature     []byte
}

func (h *handshake) digest() []byte {
	d := types.Hash([]byte(h.ChainName), h.PublicKey, []byte(h.PublicAddress))
	return d[:]
}

func newHandshake(identity Identity, chainName, publicAddr string) (*handshake, error) {
	h := &handshake{
		ChainName:     chainName,
		PublicKey:     keys.FromPublicKey(&identity.Key.PublicKey),
		PublicAddress: publicAddr,
	}
	sig, err := keys.Sign(identity.Key, h.digest())
	if err != nil {
		return nil, err
	}
	h.Signature = sig
	return h, nil
}

// verify checks the remote handshake and returns the peer's node id.
func (h *handshake) verify(chainName string) (types.NodeID, error) {
	if h.ChainName != chainName {
		return types.NodeID{}, fmt.Errorf("peer is on chain %q, we are on %q", h.ChainName, chainName)
	}
	pub, err := keys.ToPublicKey(h.PublicKey)
	if err != nil {
		return types.NodeID{}, err
	}
	if err := keys.Verify(pub, h.digest(), h.Signature); err != nil {
		return types.NodeID{}, fmt.Errorf("bad handshake signature: %v", err)
	}
	return types.NodeIDFromPublicKey(pub), nil
}

// exchangeHandshakes sends ours and reads theirs within timeout. The
// connection is released on failure.
func exchangeHandshakes(c *connection, ours *handshake, chainName string, timeout time.Duration) (types.NodeID, string, error) {
	if timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(timeout))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.writeFrame(ours, 0)
	}()

	var theirs handshake
	if err := c.readFrame(&theirs); err != nil {
		c.Release()
		return types.NodeID{}, "", err
	}
	if err := <-errCh; err != nil {
		c.Release()
		return types.NodeID{}, "", err
	}

	id, err := theirs.verify(chainName)
	if err != nil {
		c.Release()
		return types.NodeID{}, "", err
	}

	c.conn.SetDeadline(time.Time{})
	return id, theirs.PublicAddress, nil
}
