package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// handleExternal implements the administrative command surface
// (spec.md §6): Player{targets, command} and Shine{Sync|Clear}.
// Administrative errors are returned on the reply channel and never
// crash the coordinator (spec.md §7).
func (c *Coordinator) handleExternal(ctx context.Context, op lobby.ExternalOp) lobby.ExternalResult {
	switch v := op.(type) {
	case lobby.PlayerCommand:
		return c.handlePlayerCommand(ctx, v)
	case lobby.ShineCommand:
		return c.handleShineCommand(v)
	default:
		return lobby.ExternalResult{Err: fmt.Errorf("unrecognized external command")}
	}
}

func (c *Coordinator) handlePlayerCommand(ctx context.Context, cmd lobby.PlayerCommand) lobby.ExternalResult {
	ids := c.resolveTargets(cmd.Targets)
	if len(ids) == 0 {
		return lobby.ExternalResult{Err: fmt.Errorf("no matching players")}
	}

	switch op := cmd.Op.(type) {
	case lobby.PlayerOpSend:
		pkt := wire.NewPacket(guid.Zero, wire.ChangeStage{
			Stage:    op.Stage,
			ID:       op.ID,
			Scenario: op.Scenario,
		})
		c.sendToTargets(ids, pkt, true)
		return lobby.ExternalResult{Message: fmt.Sprintf("sent stage change to %d player(s)", len(ids))}

	case lobby.PlayerOpDisconnect:
		for _, id := range ids {
			c.disconnectPlayer(id)
		}
		return lobby.ExternalResult{Message: fmt.Sprintf("disconnected %d player(s)", len(ids))}

	case lobby.PlayerOpCrash:
		for _, id := range ids {
			c.crashPlayer(id)
		}
		return lobby.ExternalResult{Message: fmt.Sprintf("crashed %d player(s)", len(ids))}

	case lobby.PlayerOpTag:
		for _, id := range ids {
			c.setPlayerTag(id, op)
		}
		return lobby.ExternalResult{Message: fmt.Sprintf("updated tag state for %d player(s)", len(ids))}

	case lobby.PlayerOpSendShine:
		pkt := wire.NewPacket(guid.Zero, wire.Shine{ShineID: op.ShineID, IsGrand: false})
		c.sendToTargets(ids, pkt, true)
		return lobby.ExternalResult{Message: fmt.Sprintf("sent shine %d to %d player(s)", op.ShineID, len(ids))}

	default:
		return lobby.ExternalResult{Err: fmt.Errorf("unrecognized player command")}
	}
}

func (c *Coordinator) handleShineCommand(cmd lobby.ShineCommand) lobby.ExternalResult {
	switch cmd.Op {
	case lobby.ShineOpSync:
		c.syncAllShines()
		return lobby.ExternalResult{Message: "synced shines to all players"}
	case lobby.ShineOpClear:
		c.lobby.ShinesClear()
		c.persistShines()
		return lobby.ExternalResult{Message: "cleared the shine set"}
	default:
		return lobby.ExternalResult{Err: fmt.Errorf("unrecognized shine command")}
	}
}

// resolveTargets expands a PlayerTargets selector into the currently
// connected guids it names.
func (c *Coordinator) resolveTargets(targets lobby.PlayerTargets) []guid.Guid {
	if targets.All {
		var ids []guid.Guid
		c.lobby.ForEach(func(id guid.Guid, _ *lobby.PlayerData) {
			ids = append(ids, id)
		})
		return ids
	}
	var ids []guid.Guid
	for _, id := range targets.Individual {
		if c.lobby.HasID(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// sendToTargets delivers pkt directly to each target's own channel,
// wrapped as SelfAddressed when selfAddressed is set (spec.md §6
// "Send constructs a ChangeStage packet and sends it SelfAddressed to
// the targets"). Delivery is best-effort: a full channel is logged and
// skipped rather than blocking the coordinator.
func (c *Coordinator) sendToTargets(ids []guid.Guid, pkt wire.Packet, selfAddressed bool) {
	for _, id := range ids {
		data, ok := c.lobby.Get(id)
		if !ok {
			continue
		}
		var cmd lobby.ClientCommand
		if selfAddressed {
			cmd = lobby.OutboundSelfAddressed{Packet: pkt}
		} else {
			cmd = lobby.OutboundPacket{Packet: pkt}
		}
		select {
		case data.Channel <- cmd:
		default:
			c.log.Warn("administrative command dropped, client channel full", "client", id.String())
		}
	}
}

func (c *Coordinator) setPlayerTag(id guid.Guid, op lobby.PlayerOpTag) {
	data, ok := c.lobby.Get(id)
	if !ok {
		return
	}

	data.Mu.Lock()
	if op.Time != nil {
		d := time.Duration(*op.Time) * time.Second
		data.Time = &d
	}
	if op.IsSeeking != nil {
		seeking := *op.IsSeeking
		data.IsSeeking = &seeking
	}
	pkt := data.TagPacket(id)
	data.Mu.Unlock()

	if pkt != nil {
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: *pkt})
	}
}
