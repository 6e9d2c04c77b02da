// Package relayclient runs the per-connection event loop: one Client
// per accepted TCP socket, owning its TCP and (optional) UDP
// connections, its outbound queue, and its broadcast subscription
// (spec.md §4.4).
package relayclient

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// readChunkSize is how many bytes Connection.fill reads from the
// socket at a time, the same shape as la2go's protocol.ReadPacket but
// adapted for this protocol's self-describing frames: rather than
// reading the fixed header first, the buffer just grows until Decode
// stops returning ErrNotEnoughData.
const readChunkSize = 4096

// Connection wraps one TCP socket with the growable read buffer
// spec.md §4.2 describes.
type Connection struct {
	conn net.Conn
	buf  []byte
}

// NewConnection sets TCP_NODELAY on accept (spec.md §4.2) and returns
// a Connection ready for ReadPacket/WritePacket.
func NewConnection(conn net.Conn) (*Connection, error) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			return nil, fmt.Errorf("relayclient: setting TCP_NODELAY: %w", err)
		}
	}
	return &Connection{conn: conn}, nil
}

// RemoteIP returns the connected peer's IP address.
func (c *Connection) RemoteIP() net.IP {
	addr, ok := c.conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return nil
	}
	return addr.IP
}

// ReadPacket decodes exactly one frame, reading more from the socket
// as needed (spec.md §4.2 "read_packet repeatedly attempts decode").
func (c *Connection) ReadPacket() (wire.Packet, error) {
	for {
		pkt, n, err := wire.Decode(c.buf)
		if err == nil {
			c.buf = c.buf[n:]
			return pkt, nil
		}
		if !errors.Is(err, wire.ErrNotEnoughData) {
			return wire.Packet{}, err
		}
		if err := c.fill(); err != nil {
			return wire.Packet{}, err
		}
	}
}

// fill reads more bytes from the socket onto the end of buf,
// translating EOF/reset into the wire package's sentinel errors so
// callers can classify severity uniformly (spec.md §4.2, §7).
func (c *Connection) fill() error {
	chunk := make([]byte, readChunkSize)
	n, err := c.conn.Read(chunk)
	if n > 0 {
		c.buf = append(c.buf, chunk[:n]...)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return wire.ErrConnectionClosed
		}
		return fmt.Errorf("relayclient: reading: %w: %w", wire.ErrConnectionReset, err)
	}
	return nil
}

// WritePacket serializes p and writes it as a single atomic write
// (spec.md §4.2).
func (c *Connection) WritePacket(p wire.Packet) error {
	raw := wire.Encode(p)
	if _, err := c.conn.Write(raw); err != nil {
		return fmt.Errorf("relayclient: writing: %w: %w", wire.ErrConnectionReset, err)
	}
	return nil
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	return c.conn.Close()
}
