// Package lobby holds the shared mutable server state — the player
// map, the name↔guid bijection, the shine set, and a settings snapshot
// — plus the small vocabulary of commands client tasks, the listener,
// and the coordinator exchange about it (spec.md §3, §5).
package lobby

import (
	"net"
	"sync"
	"time"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// PlayerData is the per-connected-client record the coordinator and the
// owning client task share (spec.md §3). Mu guards every field below;
// the owning client task and the coordinator both take it, the task for
// its own record only, the coordinator when iterating during setup or
// shine sync.
type PlayerData struct {
	Mu sync.Mutex

	Name string
	IPv4 net.IP

	ShineSync        map[int32]struct{}
	Scenario         int8
	Is2D             bool
	IsSeeking        *bool
	Time             *time.Duration
	DisableShineSync bool
	LoadedSave       bool

	LastPlayerPacket  *wire.Packet
	LastCapPacket     *wire.Packet
	LastCapturePacket *wire.Packet
	LastCostumePacket *wire.Packet
	LastGamePacket    *wire.Packet

	Channel chan ClientCommand
}

// NewPlayerData returns a PlayerData ready for a freshly connected
// client: empty shine set, no cached packets, a capacity-10 outbound
// channel (spec.md §5 "bounded point-to-point channel, capacity 10").
func NewPlayerData(name string, ipv4 net.IP) *PlayerData {
	return &PlayerData{
		Name:      name,
		IPv4:      ipv4,
		ShineSync: make(map[int32]struct{}),
		Channel:   make(chan ClientCommand, 10),
	}
}

// TagPacket builds the synthetic Tag packet a peer sees for this
// player's current (Time, IsSeeking) state (spec.md §4.5.2). Returns
// nil when neither field is set — callers must skip sending in that
// case.
func (p *PlayerData) TagPacket(id guid.Guid) *wire.Packet {
	switch {
	case p.Time != nil && p.IsSeeking != nil:
		secs := int64(p.Time.Seconds())
		pkt := wire.NewPacket(id, wire.Tag{
			UpdateType: wire.TagUpdateBoth,
			IsIt:       *p.IsSeeking,
			Seconds:    uint8(secs % 60),
			Minutes:    clampU16(secs / 60),
		})
		return &pkt
	case p.Time != nil:
		secs := int64(p.Time.Seconds())
		pkt := wire.NewPacket(id, wire.Tag{
			UpdateType: wire.TagUpdateTime,
			IsIt:       false,
			Seconds:    uint8(secs % 60),
			Minutes:    clampU16(secs / 60),
		})
		return &pkt
	case p.IsSeeking != nil:
		pkt := wire.NewPacket(id, wire.Tag{
			UpdateType: wire.TagUpdateState,
			IsIt:       *p.IsSeeking,
			Seconds:    0,
			Minutes:    0,
		})
		return &pkt
	default:
		return nil
	}
}

func clampU16(v int64) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	if v < 0 {
		return 0
	}
	return uint16(v)
}
