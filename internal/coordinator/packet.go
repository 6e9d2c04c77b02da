package coordinator

import (
	"context"
	"time"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// BanCrashDelay is how long the coordinator waits before crashing a
// client that entered a banned stage (spec.md §4.5, §8 scenario 4).
const BanCrashDelay = 500 * time.Millisecond

// NewSaveReenableDelay is how long a fresh save suppresses shine sync
// before the coordinator re-enables it and flushes the pending diff
// (spec.md §4.5, §8 scenario 3).
const NewSaveReenableDelay = 2 * time.Second

var newSaveStages = map[string]struct{}{
	"CapWorldHomeStage":  {},
	"CapWorldTowerStage": {},
}

// handlePacket implements the coordinator's `Packet(p)` case
// (spec.md §4.5).
func (c *Coordinator) handlePacket(ctx context.Context, pkt wire.Packet) error {
	switch data := pkt.Data.(type) {
	case wire.Costume:
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})
		c.syncAllShines()
		return nil

	case wire.Shine:
		return c.handleShine(pkt, data)

	case wire.Game:
		return c.handleGame(ctx, pkt, data)

	default:
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})
		return nil
	}
}

func (c *Coordinator) handleShine(pkt wire.Packet, shine wire.Shine) error {
	settings := c.lobby.Settings()
	if _, excluded := settings.Shines.Excluded[shine.ShineID]; excluded {
		c.log.Info("shine excluded, not syncing", "shine_id", shine.ShineID)
		return nil
	}
	if c.lobby.ShinesContains(shine.ShineID) {
		c.log.Debug("shine already known, skipping resync", "shine_id", shine.ShineID)
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})
		return nil
	}
	c.lobby.ShinesInsert(shine.ShineID)
	c.syncAllShines()
	c.persistShines()
	c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})
	return nil
}

// handleGame implements the ban-crash, new-save suppression, shine
// re-enable, and scenario-merge policy attached to every Game packet,
// in the exact order spec.md §4.5 lists them.
func (c *Coordinator) handleGame(ctx context.Context, pkt wire.Packet, game wire.Game) error {
	settings := c.lobby.Settings()

	if settings.BanList.IsStageBanned(game.Stage) {
		id := pkt.ID
		name, _ := c.lobby.NameOf(id)
		c.log.Info("player entered banned stage, scheduling crash", "client", id.String(), "name", name, "stage", game.Stage)
		go func() {
			select {
			case <-time.After(BanCrashDelay):
				c.crashPlayer(id)
			case <-ctx.Done():
			}
		}()
		return nil
	}

	data, ok := c.lobby.Get(pkt.ID)
	if !ok {
		c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})
		return nil
	}

	_, isNewSaveStage := newSaveStages[game.Stage]

	data.Mu.Lock()
	triggersNewSave := isNewSaveStage && game.ScenarioNum == 1 && !data.DisableShineSync
	wasSuppressed := data.DisableShineSync
	if triggersNewSave {
		data.DisableShineSync = true
		data.ShineSync = make(map[int32]struct{})
	}
	data.Mu.Unlock()

	switch {
	case triggersNewSave:
		c.lobby.ShinesClear()
		c.persistShines()
	case wasSuppressed && !(isNewSaveStage && game.ScenarioNum == 1):
		// A still-suppressed player re-entering a cap-stage/scenario-1
		// Game packet (e.g. CapWorldHomeStage -> CapWorldTowerStage)
		// must stay suppressed rather than schedule a reenable — the
		// player hasn't left Cap Kingdom yet.
		id := pkt.ID
		go func() {
			select {
			case <-time.After(NewSaveReenableDelay):
				c.reenableShineSync(id)
			case <-ctx.Done():
			}
		}()
	}

	if settings.Scenario.MergeEnabled {
		c.lobby.Bus.Publish(lobby.OutboundSelfAddressed{Packet: pkt})
	}
	c.lobby.Bus.Publish(lobby.OutboundPacket{Packet: pkt})
	return nil
}

// reenableShineSync clears DisableShineSync and pushes the player's
// pending shine diff, the second half of the new-save suppression gate
// (spec.md §4.5 step 3).
func (c *Coordinator) reenableShineSync(id guid.Guid) {
	data, ok := c.lobby.Get(id)
	if !ok {
		return
	}
	data.Mu.Lock()
	data.DisableShineSync = false
	data.Mu.Unlock()
	c.syncPlayerShines(id, data)
}

// crashPlayer sends the malformed ChangeStage sentinel used by both the
// ban-crash path and the administrative Crash command (spec.md §4.5,
// §6, §9 — this is the "$among$us/cr4sh%" payload distinct from the
// ignore path's "$among$us/SubArea" sentinel).
func (c *Coordinator) crashPlayer(id guid.Guid) {
	pkt := wire.NewPacket(id, wire.ChangeStage{
		ID:          "$among$us/cr4sh%",
		Stage:       "$agogusStage",
		Scenario:    21,
		SubScenario: 69,
	})
	c.sendToTargets([]guid.Guid{id}, pkt, true)
}
