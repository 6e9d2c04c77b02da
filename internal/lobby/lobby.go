package lobby

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/marza-dev/odyssey-relay/internal/config"
	"github.com/marza-dev/odyssey-relay/internal/guid"
)

// CoordinatorQueueCapacity is the default buffering on Lobby.ToCoord,
// matching original_source/src/server.rs's mpsc channel capacity.
const CoordinatorQueueCapacity = 100

// Lobby is the shared mutable server state (spec.md §3): the player
// map, the name↔guid bijection, the shine set, and a settings snapshot.
// The coordinator is the only writer of Shines and of Players
// membership; per-player fields are written directly by the owning
// client task through PlayerData's own lock (spec.md §5).
type Lobby struct {
	mu      sync.RWMutex
	players map[guid.Guid]*PlayerData
	names   *bijection

	shinesMu sync.RWMutex
	shines   map[int32]struct{}

	settings atomic.Pointer[config.Settings]

	// ToCoord is the single queue every client task, the listener, and
	// the administrative surface post Commands onto.
	ToCoord chan Command

	// Bus is the shared broadcast fan-out; the coordinator and client
	// tasks publish, every client task subscribes.
	Bus *Bus

	// ctx is the server-wide shutdown signal (spec.md §3
	// "server_broadcast (shutdown signal)"), expressed as context
	// cancellation rather than a broadcast channel: every subscriber
	// (listener, JSON API) already needs a context for its own
	// blocking calls, and cancellation is the idiomatic Go fan-out
	// primitive for a one-shot signal with arbitrarily many readers.
	ctx context.Context
}

// New constructs an empty Lobby bound to ctx, whose cancellation is the
// server-wide shutdown signal.
func New(ctx context.Context, settings *config.Settings) *Lobby {
	l := &Lobby{
		players: make(map[guid.Guid]*PlayerData),
		names:   newBijection(),
		shines:  make(map[int32]struct{}),
		ToCoord: make(chan Command, CoordinatorQueueCapacity),
		Bus:     NewBus(),
		ctx:     ctx,
	}
	l.settings.Store(settings)
	return l
}

// Done returns the server-wide shutdown signal.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Settings returns the current settings snapshot. Safe for concurrent
// use; readers never block on the rare administrative writer.
func (l *Lobby) Settings() *config.Settings { return l.settings.Load() }

// SetSettings atomically replaces the settings snapshot. Called only by
// the external administrative surface.
func (l *Lobby) SetSettings(s *config.Settings) { l.settings.Store(s) }

// Get returns the PlayerData for id, if present.
func (l *Lobby) Get(id guid.Guid) (*PlayerData, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.players[id]
	return p, ok
}

// HasID reports whether id is already bound to a connected player.
func (l *Lobby) HasID(id guid.Guid) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.names.hasID(id)
}

// HasName reports whether name is already bound to a connected player.
func (l *Lobby) HasName(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.names.hasName(name)
}

// NameOf returns the bound name for id, if any.
func (l *Lobby) NameOf(id guid.Guid) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.names.nameOf(id)
}

// Insert registers a newly accepted player. Only the coordinator calls
// this (spec.md §3 "the coordinator is the only writer ... of players
// membership").
func (l *Lobby) Insert(id guid.Guid, data *PlayerData) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.players[id] = data
	l.names.bind(id, data.Name)
}

// Remove deletes a player from the lobby and the bijection.
func (l *Lobby) Remove(id guid.Guid) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.players, id)
	l.names.unbind(id)
}

// Count returns the number of connected players.
func (l *Lobby) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.players)
}

// ForEach calls fn for every connected player. fn must not call back
// into Lobby methods that take the write lock (Insert/Remove) — those
// are coordinator-only and never invoked from inside a snapshot
// iteration in this codebase.
func (l *Lobby) ForEach(fn func(id guid.Guid, data *PlayerData)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for id, data := range l.players {
		fn(id, data)
	}
}

// ShinesContains reports whether shineID is in the server's shine set.
func (l *Lobby) ShinesContains(shineID int32) bool {
	l.shinesMu.RLock()
	defer l.shinesMu.RUnlock()
	_, ok := l.shines[shineID]
	return ok
}

// ShinesInsert adds shineID to the server's shine set. Idempotent
// (invariant I2).
func (l *Lobby) ShinesInsert(shineID int32) {
	l.shinesMu.Lock()
	defer l.shinesMu.Unlock()
	l.shines[shineID] = struct{}{}
}

// ShinesClear empties the server's shine set (new-save suppression gate).
func (l *Lobby) ShinesClear() {
	l.shinesMu.Lock()
	defer l.shinesMu.Unlock()
	l.shines = make(map[int32]struct{})
}

// ShinesSnapshot returns a copy of the current shine set, safe to
// range over without holding any lock.
func (l *Lobby) ShinesSnapshot() map[int32]struct{} {
	l.shinesMu.RLock()
	defer l.shinesMu.RUnlock()
	out := make(map[int32]struct{}, len(l.shines))
	for id := range l.shines {
		out[id] = struct{}{}
	}
	return out
}

// ShinesAsSlice returns the current shine set as a sorted slice, the
// shape the persistence layer writes to JSON (spec.md §4.5.3, §6).
func (l *Lobby) ShinesAsSlice() []int32 {
	snap := l.ShinesSnapshot()
	out := make([]int32, 0, len(snap))
	for id := range snap {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
