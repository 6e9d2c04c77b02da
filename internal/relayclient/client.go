package relayclient

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// Client is one accepted TCP connection's event loop (spec.md §4.4):
// its TCP connection, optional UDP fast path, per-client outbound
// queue, broadcast subscription, and a handle to the lobby.
type Client struct {
	id    guid.Guid
	data  *lobby.PlayerData
	lobby *lobby.Lobby
	tcp   *Connection
	udp   *UDPConn
	log   *slog.Logger

	ctx   context.Context
	alive bool
}

// tcpEvent and udpEvent carry a pump goroutine's read result back to
// the select loop in Run.
type tcpEvent struct {
	pkt wire.Packet
	err error
}

type udpEvent struct {
	pkt wire.Packet
	err error
}

// Data returns the PlayerData this client owns, for the listener to
// pass along with the NewPlayer command it posts to the coordinator.
func (c *Client) Data() *lobby.PlayerData { return c.data }

// Run is the client task's event loop (spec.md §4.4 step 2): it
// non-deterministically awaits a TCP packet, a UDP packet, a per-client
// command, or a broadcast command, dispatches it, and exits on
// alive==false or a ClientFatal connection error. It implements
// lobby.ClientTask so the coordinator can start it without importing
// this package.
func (c *Client) Run(ctx context.Context) {
	c.ctx = ctx
	c.alive = true
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("client", c.id.String(), "name", c.data.Name)

	sub := c.lobby.Bus.Subscribe()
	defer func() {
		if n := sub.TakeLagged(); n > 0 {
			c.log.Warn("broadcast subscriber lagged, packets dropped", "dropped", n)
		}
		sub.Close()
	}()

	tcpCh := make(chan tcpEvent, 1)
	go c.pumpTCP(ctx, tcpCh)

	var udpCh chan udpEvent
	if c.udp != nil {
		udpCh = make(chan udpEvent, 1)
		go c.pumpUDP(ctx, udpCh)
	}

	for c.alive {
		select {
		case <-ctx.Done():
			c.alive = false

		case ev := <-tcpCh:
			if ev.err != nil {
				c.fail(ev.err)
			} else {
				c.handleInbound(ev.pkt)
			}
			if c.alive {
				go c.pumpTCP(ctx, tcpCh)
			}

		case ev := <-udpCh:
			if ev.err != nil {
				c.log.Warn("udp read failed", "error", ev.err)
			} else {
				c.handleInbound(ev.pkt)
			}
			go c.pumpUDP(ctx, udpCh)

		case cmd := <-c.data.Channel:
			c.handleOutbound(cmd)

		case cmd := <-sub.C():
			c.handleOutbound(cmd)
			if n := sub.TakeLagged(); n > 0 {
				c.log.Warn("broadcast subscriber lagged, packets dropped", "dropped", n)
			}
		}
	}

	c.disconnect()
}

// pumpTCP reads exactly one packet and reports it, so Run's select can
// interleave TCP reads with every other event source without a
// dedicated reader goroutine blocking the loop indefinitely.
func (c *Client) pumpTCP(ctx context.Context, out chan<- tcpEvent) {
	pkt, err := c.tcp.ReadPacket()
	select {
	case out <- tcpEvent{pkt: pkt, err: err}:
	case <-ctx.Done():
	}
}

func (c *Client) pumpUDP(ctx context.Context, out chan<- udpEvent) {
	pkt, _, err := c.udp.ReadPacket()
	select {
	case out <- udpEvent{pkt: pkt, err: err}:
	case <-ctx.Done():
	}
}

// fail classifies a connection error and ends the loop on anything
// ClientFatal (spec.md §7); Recoverable errors are logged and ignored.
func (c *Client) fail(err error) {
	switch wire.Severity(err) {
	case wire.ClientFatal:
		if !errors.Is(err, wire.ErrConnectionClosed) {
			c.log.Warn("connection error, disconnecting", "error", err)
		}
		c.alive = false
	default:
		c.log.Warn("recoverable connection error", "error", err)
	}
}

// disconnect implements spec.md §4.4 step 3: tell the coordinator then
// tear down this client's own sockets. The coordinator removes the
// player and notifies peers; this task does not touch lobby state
// directly.
func (c *Client) disconnect() {
	select {
	case c.lobby.ToCoord <- lobby.DisconnectPlayerCommand{Guid: c.id}:
	case <-c.ctx.Done():
	}
	_ = c.tcp.Close()
	if c.udp != nil {
		_ = c.udp.Close()
	}
}

// RemoteIP is a small helper for the listener package to read a peer's
// address before a Client exists (ignore-path ban/capacity checks,
// spec.md §4.6 steps 1-2).
func RemoteIP(conn net.Conn) net.IP {
	addr, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return nil
	}
	return addr.IP
}
