package relayclient

import (
	"time"

	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// handleInbound implements spec.md §4.4.1's routing table: every
// packet goes to exactly one of Coordinator/Broadcast/consumed, with
// the listed side effect on the client's own PlayerData. A JsonAPI
// tunnel packet ends the loop by clearing alive.
func (c *Client) handleInbound(pkt wire.Packet) {
	switch data := pkt.Data.(type) {
	case wire.Player:
		// Cache a copy before the optional flip transform below, which
		// mutates pkt in place — the replay cache must hold what the
		// client actually sent (spec.md §4.4.1 lists cache before
		// flip).
		cached := pkt
		c.data.Mu.Lock()
		c.data.LastPlayerPacket = &cached
		c.data.Mu.Unlock()
		c.applyInboundFlip(&pkt)
		c.toCoordinator(pkt)

	case wire.Capture:
		c.data.Mu.Lock()
		c.data.LastCapturePacket = &pkt
		c.data.Mu.Unlock()
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})

	case wire.Costume:
		c.data.Mu.Lock()
		c.data.LastCostumePacket = &pkt
		c.data.LoadedSave = true
		c.data.Mu.Unlock()
		c.toCoordinator(pkt)

	case wire.Game:
		c.data.Mu.Lock()
		c.data.Is2D = data.Is2D
		c.data.Scenario = data.ScenarioNum
		if c.data.LastGamePacket != nil && c.data.LastGamePacket.Data.(wire.Game).Stage != data.Stage {
			c.data.LastPlayerPacket = nil
		}
		c.data.LastGamePacket = &pkt
		c.data.Mu.Unlock()
		c.toCoordinator(pkt)

	case wire.Tag:
		c.data.Mu.Lock()
		switch data.UpdateType {
		case wire.TagUpdateTime:
			d := secondsToDuration(data.Seconds, data.Minutes)
			c.data.Time = &d
		case wire.TagUpdateState:
			seeking := data.IsIt
			c.data.IsSeeking = &seeking
		case wire.TagUpdateBoth:
			d := secondsToDuration(data.Seconds, data.Minutes)
			c.data.Time = &d
			seeking := data.IsIt
			c.data.IsSeeking = &seeking
		}
		c.data.Mu.Unlock()
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})

	case wire.Shine:
		c.data.Mu.Lock()
		loaded := c.data.LoadedSave
		if loaded {
			c.data.ShineSync[data.ShineID] = struct{}{}
		}
		c.data.Mu.Unlock()
		c.toCoordinator(pkt)

	case wire.UdpInit:
		if c.udp != nil {
			c.udp.SetRemote(c.tcp.RemoteIP(), data.Port)
			_ = c.udp.SendHolePunch()
		}

	case wire.HolePunch:
		// no-op: the datagram itself already proved reachability.

	case wire.JsonAPI:
		// The tunnel consumed the rest of this connection's buffer as
		// raw JSON text (wire/codec.go's "historical wart") and there
		// is no framing left to recover. Parsing and answering that
		// request is the external JSON API's job (spec.md §6), not the
		// client task's — it is never broadcast to peers.
		c.log.Debug("json api tunnel request, closing", "bytes", len(data.JSON))
		c.alive = false

	default:
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})
	}
}

func (c *Client) toCoordinator(pkt wire.Packet) {
	select {
	case c.lobby.ToCoord <- lobby.InboundPacket{Packet: pkt}:
	case <-c.ctx.Done():
	}
}

func secondsToDuration(seconds uint8, minutes uint16) time.Duration {
	return time.Duration(int64(minutes)*60+int64(seconds)) * time.Second
}

// handleOutbound implements spec.md §4.4.2: the two command kinds a
// client task's own channel and broadcast subscription can deliver.
func (c *Client) handleOutbound(cmd lobby.ClientCommand) {
	switch v := cmd.(type) {
	case lobby.OutboundPacket:
		c.handleOutboundPacket(v.Packet)
	case lobby.OutboundSelfAddressed:
		c.handleSelfAddressed(v.Packet)
	}
}

func (c *Client) handleOutboundPacket(pkt wire.Packet) {
	if pkt.ID == c.id {
		if _, ok := pkt.Data.(wire.Disconnect); ok {
			c.alive = false
		}
		return
	}
	c.applyOutboundFlip(&pkt)
	c.sendPacket(pkt)
}

func (c *Client) handleSelfAddressed(pkt wire.Packet) {
	pkt.ID = c.id

	switch data := pkt.Data.(type) {
	case wire.UdpInit:
		if c.udp != nil {
			data.Port = c.udp.LocalPort()
			pkt.Data = data
		}
	case wire.Shine:
		c.data.Mu.Lock()
		c.data.ShineSync[data.ShineID] = struct{}{}
		c.data.Mu.Unlock()
	case wire.Disconnect:
		c.alive = false
	}

	c.sendPacket(pkt)
}

// sendPacket implements spec.md §4.4.3: Player/Cap prefer UDP once the
// client's endpoint is known, everything else stays on TCP.
func (c *Client) sendPacket(pkt wire.Packet) {
	switch pkt.Data.(type) {
	case wire.Player, wire.Cap:
		if c.udp != nil && c.udp.HasRemote() {
			if err := c.udp.Send(pkt); err != nil {
				c.log.Warn("udp send failed", "error", err)
			}
			return
		}
	}
	if err := c.tcp.WritePacket(pkt); err != nil {
		c.fail(err)
	}
}

// applyInboundFlip implements the first application point of spec.md
// §4.4.5: a player's own incoming Player packet is flipped before
// reaching the coordinator when the POV includes "others" and the
// player is in the configured set. mario_size uses this client's own
// is_2d, since the packet's sender is this client.
func (c *Client) applyInboundFlip(pkt *wire.Packet) {
	settings := c.lobby.Settings()
	if !settings.Flip.Enabled || !settings.Flip.POV.IsOthersFlip() || !settings.Flip.Players.Contains(pkt.ID) {
		return
	}
	c.data.Mu.Lock()
	is2D := c.data.Is2D
	c.data.Mu.Unlock()
	flipPlayer(pkt, is2D)
}

// applyOutboundFlip implements the second application point of
// spec.md §4.4.5: a peer's Player packet is flipped as it is relayed
// to this client when this client is itself in the flipped set and
// the peer is not. mario_size uses this (the viewing/receiving)
// client's own is_2d, not the peer's.
func (c *Client) applyOutboundFlip(pkt *wire.Packet) {
	settings := c.lobby.Settings()
	if !settings.Flip.Enabled || !settings.Flip.POV.IsSelfFlip() {
		return
	}
	if !settings.Flip.Players.Contains(c.id) || settings.Flip.Players.Contains(pkt.ID) {
		return
	}
	c.data.Mu.Lock()
	is2D := c.data.Is2D
	c.data.Mu.Unlock()
	flipPlayer(pkt, is2D)
}

// flipPlayer rotates a Player packet by pi around Z and offsets its
// position by mario_size along Y, in place (spec.md §4.4.5). Non-Player
// payloads are left untouched.
func flipPlayer(pkt *wire.Packet, is2D bool) {
	player, ok := pkt.Data.(wire.Player)
	if !ok {
		return
	}
	player.Rot = player.Rot.RotateZPi()
	player.Pos.Y += wire.MarioSize(is2D)
	pkt.Data = player
	pkt.Resize()
}
