package relayclient

import (
	"fmt"
	"net"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// udpReadBufferSize covers the largest possible frame: header plus the
// maximum declared data_size (spec.md §4.2 "0x100 bytes").
const udpReadBufferSize = wire.HeaderSize + wire.MaxPacketDataSize

// UDPConn is one client's per-connection UDP fast path (spec.md §4.3).
// The remote endpoint is unknown until the client's UdpInit reply
// arrives over TCP.
type UDPConn struct {
	sock       *net.UDPConn
	localPort  uint16
	remoteAddr *net.UDPAddr
}

// NewUDPConn binds a UDP socket on port, one of the round-robin pool
// the listener hands out (spec.md §4.3 "binds one UDP socket per
// client").
func NewUDPConn(port uint16) (*UDPConn, error) {
	sock, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("relayclient: binding udp port %d: %w", port, err)
	}
	bound, _ := sock.LocalAddr().(*net.UDPAddr)
	return &UDPConn{sock: sock, localPort: uint16(bound.Port)}, nil
}

// LocalPort returns the bound UDP port.
func (u *UDPConn) LocalPort() uint16 { return u.localPort }

// SetRemote records the client's UDP endpoint, learned from its
// UdpInit reply over TCP: IP from the TCP peer, port from the packet
// (spec.md §4.3 step 2).
func (u *UDPConn) SetRemote(ip net.IP, port uint16) {
	u.remoteAddr = &net.UDPAddr{IP: ip, Port: int(port)}
}

// HasRemote reports whether the client's UDP endpoint is known yet
// (spec.md §4.3 step 4, §4.4.3).
func (u *UDPConn) HasRemote() bool { return u.remoteAddr != nil }

// Send writes p to the client's known UDP endpoint. A no-op until
// HasRemote is true.
func (u *UDPConn) Send(p wire.Packet) error {
	if u.remoteAddr == nil {
		return nil
	}
	raw := wire.Encode(p)
	_, err := u.sock.WriteToUDP(raw, u.remoteAddr)
	if err != nil {
		return fmt.Errorf("relayclient: udp write: %w", err)
	}
	return nil
}

// SendHolePunch sends the reachability-confirmation packet of the UDP
// handshake (spec.md §4.3 step 3).
func (u *UDPConn) SendHolePunch() error {
	return u.Send(wire.NewPacket(guid.Zero, wire.HolePunch{}))
}

// ReadPacket reads one datagram and decodes it as exactly one packet
// (spec.md §4.3 "one datagram = one packet").
func (u *UDPConn) ReadPacket() (wire.Packet, net.Addr, error) {
	buf := make([]byte, udpReadBufferSize)
	n, addr, err := u.sock.ReadFromUDP(buf)
	if err != nil {
		return wire.Packet{}, nil, fmt.Errorf("relayclient: udp read: %w", err)
	}
	pkt, _, err := wire.Decode(buf[:n])
	if err != nil {
		return wire.Packet{}, addr, err
	}
	return pkt, addr, nil
}

// Close closes the underlying socket.
func (u *UDPConn) Close() error {
	return u.sock.Close()
}
