// Package coordinator implements the single task that owns every lobby
// mutation requiring serialization: player join/leave, packet routing
// policy, shine synchronization, and the administrative command surface
// (spec.md §4.5).
package coordinator

import (
	"context"
	"log/slog"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
)

// Coordinator processes lobby.Command values from a single queue,
// serializing every mutation of shared lobby state (spec.md §2, §5).
type Coordinator struct {
	lobby *lobby.Lobby
	log   *slog.Logger
}

// New returns a Coordinator bound to l.
func New(l *lobby.Lobby) *Coordinator {
	return &Coordinator{lobby: l, log: slog.Default().With("component", "coordinator")}
}

// Run drains the lobby's command queue until ctx is cancelled, then
// disconnects every remaining player before returning (spec.md §5
// "the coordinator drains and then disconnects every player").
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case cmd, ok := <-c.lobby.ToCoord:
			if !ok {
				c.log.Warn("command queue closed")
				c.shutdown()
				return nil
			}
			if err := c.handleCommand(ctx, cmd); err != nil {
				c.log.Warn("command failed", "error", err)
			}
		case <-ctx.Done():
			c.shutdown()
			return nil
		}
	}
}

func (c *Coordinator) shutdown() {
	var ids []guid.Guid
	c.lobby.ForEach(func(id guid.Guid, _ *lobby.PlayerData) {
		ids = append(ids, id)
	})
	for _, id := range ids {
		c.disconnectPlayer(id)
	}
}

func (c *Coordinator) handleCommand(ctx context.Context, cmd lobby.Command) error {
	switch v := cmd.(type) {
	case lobby.NewPlayerCommand:
		return c.addClient(ctx, v)
	case lobby.DisconnectPlayerCommand:
		c.disconnectPlayer(v.Guid)
		return nil
	case lobby.InboundPacket:
		return c.handlePacket(ctx, v.Packet)
	case lobby.ExternalCommand:
		result := c.handleExternal(ctx, v.Cmd)
		if v.Reply != nil {
			v.Reply <- result
		}
		return result.Err
	default:
		return nil
	}
}
