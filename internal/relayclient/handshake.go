package relayclient

import (
	"errors"
	"log/slog"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// Handshake errors (spec.md §4.4 step 1).
var (
	ErrBadHandshake    = errors.New("relayclient: first packet was not Connect")
	ErrBannedID        = errors.New("relayclient: profile id is banned")
	ErrDuplicateClient = errors.New("relayclient: name or id already bound")
)

// Initialize runs the handshake of spec.md §4.4 step 1: send Init,
// await exactly one Connect, enforce the ban list and (on
// FirstConnection) the name/id bijection, then build the PlayerData
// and synthetic Connect packet the coordinator's NewPlayer case needs.
// ErrBannedID is returned without closing conn — the caller routes a
// banned client to the ignore path (spec.md §4.4.6) instead.
//
// log is expected to already carry a per-connection trace id (the
// listener binds one before the peer's Guid is known, since that Guid
// only arrives in the Connect packet Initialize reads below) — it
// becomes the returned Client's logger, so every later log line ties
// back to the same connection from accept through disconnect.
func Initialize(tcp *Connection, udp *UDPConn, l *lobby.Lobby, log *slog.Logger) (*Client, wire.Packet, error) {
	settings := l.Settings()

	if err := tcp.WritePacket(wire.NewPacket(guid.Zero, wire.Init{MaxPlayers: settings.Server.MaxPlayers})); err != nil {
		return nil, wire.Packet{}, err
	}

	pkt, err := tcp.ReadPacket()
	if err != nil {
		return nil, wire.Packet{}, err
	}
	connect, ok := pkt.Data.(wire.Connect)
	if !ok {
		return nil, wire.Packet{}, ErrBadHandshake
	}

	if settings.BanList.IsPlayerBanned(pkt.ID) {
		return nil, wire.Packet{}, ErrBannedID
	}

	if connect.ConnType == wire.FirstConnection {
		if l.HasID(pkt.ID) || l.HasName(connect.ClientName) {
			return nil, wire.Packet{}, ErrDuplicateClient
		}
	}

	data := lobby.NewPlayerData(connect.ClientName, tcp.RemoteIP())

	if settings.UDP.InitiateHandshake && udp != nil {
		if err := tcp.WritePacket(wire.NewPacket(guid.Zero, wire.UdpInit{Port: udp.LocalPort()})); err != nil {
			return nil, wire.Packet{}, err
		}
	}

	client := &Client{
		id:    pkt.ID,
		data:  data,
		lobby: l,
		tcp:   tcp,
		udp:   udp,
		log:   log,
	}

	connectPkt := wire.NewPacket(pkt.ID, connect)
	return client, connectPkt, nil
}
