package coordinator

import (
	"encoding/json"
	"os"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// syncAllShines implements sync_all_shines (spec.md §4.5.1): every
// eligible player receives the server's shine set minus its own
// effective set as individually self-addressed Shine packets.
func (c *Coordinator) syncAllShines() {
	type target struct {
		id   guid.Guid
		data *lobby.PlayerData
	}
	var targets []target
	c.lobby.ForEach(func(id guid.Guid, data *lobby.PlayerData) {
		targets = append(targets, target{id, data})
	})
	for _, t := range targets {
		c.syncPlayerShines(t.id, t.data)
	}
}

// syncPlayerShines pushes the diff between the lobby's shine set and
// one player's effective set (its own shine_sync plus settings.shines
// excluded), skipping entirely while shine sync is disabled server-wide
// or while the player's own shine sync is suppressed (spec.md §4.5.1,
// invariant I3).
func (c *Coordinator) syncPlayerShines(id guid.Guid, data *lobby.PlayerData) {
	if !c.lobby.Settings().Shines.Enabled {
		return
	}

	data.Mu.Lock()
	if data.DisableShineSync {
		data.Mu.Unlock()
		return
	}
	effective := make(map[int32]struct{}, len(data.ShineSync))
	for s := range data.ShineSync {
		effective[s] = struct{}{}
	}
	data.Mu.Unlock()

	settings := c.lobby.Settings()
	for s := range settings.Shines.Excluded {
		effective[s] = struct{}{}
	}

	for _, shineID := range c.lobby.ShinesAsSlice() {
		if _, have := effective[shineID]; have {
			continue
		}
		pkt := wire.NewPacket(guid.Zero, wire.Shine{ShineID: shineID, IsGrand: false})
		select {
		case data.Channel <- lobby.OutboundSelfAddressed{Packet: pkt}:
		default:
			c.log.Warn("shine sync dropped, client channel full", "client", id.String(), "shine_id", shineID)
		}
	}
}

// persistShines writes the current shine set to disk in the background
// when enabled. Best-effort: failures are logged, never surfaced
// (spec.md §4.5.3).
func (c *Coordinator) persistShines() {
	settings := c.lobby.Settings()
	if !settings.PersistShines.Enabled {
		return
	}
	ids := c.lobby.ShinesAsSlice()
	filename := settings.PersistShines.Filename

	go func() {
		raw, err := json.Marshal(ids)
		if err != nil {
			c.log.Warn("shine persistence marshal failed", "error", err)
			return
		}
		if err := os.WriteFile(filename, raw, 0o644); err != nil {
			c.log.Warn("shine persistence write failed", "error", err, "filename", filename)
		}
	}()
}

// loadShines reads a previously persisted shine set at startup. A
// missing file yields an empty set, matching config.Load's fallback
// shape.
func loadShines(filename string) ([]int32, error) {
	raw, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []int32
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// LoadPersistedShines seeds l's shine set from settings.PersistShines at
// startup, for cmd/relayserver to call before the listener starts
// accepting connections.
func LoadPersistedShines(l *lobby.Lobby) error {
	settings := l.Settings()
	if !settings.PersistShines.Enabled {
		return nil
	}
	ids, err := loadShines(settings.PersistShines.Filename)
	if err != nil {
		return err
	}
	for _, id := range ids {
		l.ShinesInsert(id)
	}
	return nil
}
