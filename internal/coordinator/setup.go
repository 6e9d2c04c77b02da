package coordinator

import (
	"context"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// addClient handles Server::NewPlayer (spec.md §4.5): registers the
// player, starts its task, and runs setupPlayer; a setup failure
// disconnects the half-joined player.
func (c *Coordinator) addClient(ctx context.Context, cmd lobby.NewPlayerCommand) error {
	c.lobby.Insert(cmd.Guid, cmd.Data)
	go cmd.Task.Run(ctx)

	if err := c.setupPlayer(cmd); err != nil {
		c.log.Warn("setup_player failed", "client", cmd.Guid.String(), "error", err)
		c.disconnectPlayer(cmd.Guid)
		return err
	}
	return nil
}

// setupPlayer replays every existing peer's cached state to the new
// client, then broadcasts the new client's own Connect packet
// (spec.md §4.5 "Server::NewPlayer").
func (c *Coordinator) setupPlayer(cmd lobby.NewPlayerCommand) error {
	var peers []guid.Guid
	c.lobby.ForEach(func(id guid.Guid, _ *lobby.PlayerData) {
		if id != cmd.Guid {
			peers = append(peers, id)
		}
	})

	for _, peerID := range peers {
		peer, ok := c.lobby.Get(peerID)
		if !ok {
			continue
		}
		if err := c.replayPeerState(cmd.Data, peerID, peer); err != nil {
			return err
		}
	}

	c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: cmd.Connect})

	if connect, ok := cmd.Connect.Data.(wire.Connect); ok && connect.ConnType == wire.FirstConnection {
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: wire.NewPacket(cmd.Guid, wire.Tag{UpdateType: wire.TagUpdateBoth, IsIt: false})})
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: wire.NewPacket(cmd.Guid, wire.Capture{Model: ""})})
	}
	return nil
}

// replayPeerState sends the new client one synthetic Connect built from
// peer's name, followed by peer's cached Costume, Capture, synthetic
// Tag, Game, and Player packets, in that exact order, skipping any that
// are absent (spec.md §4.5).
func (c *Coordinator) replayPeerState(newData *lobby.PlayerData, peerID guid.Guid, peer *lobby.PlayerData) error {
	settings := c.lobby.Settings()
	synthConnect := wire.NewPacket(peerID, wire.Connect{
		ConnType:   wire.FirstConnection,
		MaxPlayer:  settings.Server.MaxPlayers,
		ClientName: peer.Name,
	})
	newData.Channel <- lobby.OutboundPacket{Packet: synthConnect}

	peer.Mu.Lock()
	cached := []*wire.Packet{peer.LastCostumePacket, peer.LastCapturePacket}
	tag := peer.TagPacket(peerID)
	cached = append(cached, tag, peer.LastGamePacket, peer.LastPlayerPacket)
	peer.Mu.Unlock()

	for _, pkt := range cached {
		if pkt == nil {
			continue
		}
		newData.Channel <- lobby.OutboundPacket{Packet: *pkt}
	}
	return nil
}

// disconnectPlayer removes guid from the lobby, broadcasts Disconnect
// to every peer, and pushes Disconnect onto the departing client's own
// channel so its task exits cleanly (spec.md §4.5 "Server::DisconnectPlayer").
func (c *Coordinator) disconnectPlayer(id guid.Guid) {
	data, ok := c.lobby.Get(id)
	if !ok {
		return
	}
	c.lobby.Remove(id)

	pkt := wire.NewPacket(id, wire.Disconnect{})
	c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})

	select {
	case data.Channel <- lobby.OutboundPacket{Packet: pkt}:
	default:
		// the client task is already gone; nothing left to notify.
	}
}
