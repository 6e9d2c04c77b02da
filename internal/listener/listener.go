// Package listener runs the TCP accept loop that turns raw
// connections into lobby members, applying the ban-list and capacity
// gates of spec.md §4.6 before handing a connection to relayclient.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/relayclient"
)

// Listener binds the relay's main TCP port and accepts connections
// until the lobby's shutdown signal fires (spec.md §4.6).
type Listener struct {
	lobby *lobby.Lobby
	log   *slog.Logger
	ports *udpPool

	mu sync.Mutex
	ln net.Listener
}

// New builds a Listener bound to l's settings. The UDP port pool is
// sized from settings.udp at construction time; a later settings swap
// does not resize it (mirrors the listener binding to server.address
// once at Run).
func New(l *lobby.Lobby, log *slog.Logger) *Listener {
	settings := l.Settings()
	return &Listener{
		lobby: l,
		log:   log,
		ports: newUDPPool(settings.UDP.BasePort, settings.UDP.PortCount),
	}
}

// Run binds the configured address:port and serves until ctx is
// cancelled.
func (s *Listener) Run(ctx context.Context) error {
	settings := s.lobby.Settings()
	addr := fmt.Sprintf("%s:%d", settings.Server.Address, settings.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listener: binding %s: %w", addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	return s.serve(ctx, ln)
}

func (s *Listener) serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info("listener started", "address", ln.Addr())

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetKeepAlive(true)
			_ = tcp.SetKeepAlivePeriod(30 * time.Second)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	wg.Wait()
	return nil
}

// handleConn implements spec.md §4.6's three accept-time decisions: IP
// ban, capacity, or a full client handoff to relayclient. A trace id is
// bound to every log line for this connection from here on, since the
// peer's Guid isn't known until the handshake's Connect packet arrives
// (ban-by-profile-id discovers it only after Init has already gone
// out — see relayclient.Initialize).
func (s *Listener) handleConn(ctx context.Context, conn net.Conn) {
	log := s.log.With("trace_id", uuid.New().String())

	settings := s.lobby.Settings()
	ip := relayclient.RemoteIP(conn)

	if settings.BanList.IsIPBanned(ip) {
		log.Info("ignoring banned ip", "remote", conn.RemoteAddr())
		s.ignore(ctx, conn, conn.RemoteAddr().String(), log)
		return
	}

	if s.lobby.Count() >= int(settings.Server.MaxPlayers) {
		log.Info("lobby full, ignoring connection", "remote", conn.RemoteAddr())
		s.ignore(ctx, conn, conn.RemoteAddr().String(), log)
		return
	}

	tcp, err := relayclient.NewConnection(conn)
	if err != nil {
		log.Warn("connection setup failed", "error", err)
		conn.Close()
		return
	}

	var udp *relayclient.UDPConn
	port := s.ports.allocate()
	udp, err = relayclient.NewUDPConn(port)
	if err != nil {
		log.Warn("udp bind failed, falling back to tcp-only", "port", port, "error", err)
		udp = nil
	}

	client, connectPkt, err := relayclient.Initialize(tcp, udp, s.lobby, log)
	if err != nil {
		s.handleInitError(ctx, tcp, udp, err, log)
		return
	}

	s.lobby.ToCoord <- lobby.NewPlayerCommand{
		Guid:    connectPkt.ID,
		Data:    client.Data(),
		Connect: connectPkt,
		Task:    client,
	}
}

func (s *Listener) handleInitError(ctx context.Context, tcp *relayclient.Connection, udp *relayclient.UDPConn, err error, log *slog.Logger) {
	if udp != nil {
		udp.Close()
	}
	switch {
	case errors.Is(err, relayclient.ErrBannedID):
		log.Info("ignoring banned profile")
		s.ignoreConn(ctx, tcp, log)
	default:
		log.Debug("handshake failed", "error", err)
		tcp.Close()
	}
}

func (s *Listener) ignore(ctx context.Context, conn net.Conn, identifier string, log *slog.Logger) {
	tcp, err := relayclient.NewConnection(conn)
	if err != nil {
		conn.Close()
		return
	}
	relayclient.Ignore(ctx, tcp, identifier, true, log)
}

// ignoreConn handles the banned-profile path, where Initialize already
// wrote the handshake's Init packet before discovering the ban.
func (s *Listener) ignoreConn(ctx context.Context, tcp *relayclient.Connection, log *slog.Logger) {
	relayclient.Ignore(ctx, tcp, "banned-profile", false, log)
}
