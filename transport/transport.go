// Package transport defines the single narrow interface the dataplane
// consumes for host/network I/O. The socket/NIC plumbing behind it is an
// out-of-scope external collaborator; RawConn is the seam a real
// AF_XDP/DPDK/io_uring transport would satisfy.
//
// Adapted from the teacher's transport.NetConn (a net.Conn wrapper) and
// api.Transport's Send/Recv/Close/Features contract, narrowed to the
// frame-in/frame-out shape the dataplane actually needs.
package transport

import "errors"

// ErrClosed is returned by ReadFrame/WriteFrame once the connection has
// been closed.
var ErrClosed = errors.New("transport: connection closed")

// RawConn is the I/O seam between the dataplane and the outside world:
// one raw Ethernet frame in, one raw Ethernet frame out.
type RawConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// NetConn wraps a net.PacketConn-shaped raw socket, matching the
// teacher's zero-copy NetConn in spirit: thin pass-through, no buffering
// beyond what the caller provides.
type NetConn struct {
	conn rawConnLike
}

// rawConnLike is satisfied by *net.UDPConn / an AF_PACKET socket wrapper;
// narrowed here to the two calls NetConn forwards.
type rawConnLike interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
}

// NewNetConn wraps conn as a RawConn.
func NewNetConn(conn rawConnLike) *NetConn {
	return &NetConn{conn: conn}
}

// ReadFrame reads one frame into a freshly allocated buffer sized maxMTU.
const maxMTU = 9216

func (n *NetConn) ReadFrame() ([]byte, error) {
	buf := make([]byte, maxMTU)
	m, err := n.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:m], nil
}

// WriteFrame writes frame in full.
func (n *NetConn) WriteFrame(frame []byte) error {
	_, err := n.conn.Write(frame)
	return err
}

// Close closes the underlying connection.
func (n *NetConn) Close() error {
	return n.conn.Close()
}

var _ RawConn = (*NetConn)(nil)
