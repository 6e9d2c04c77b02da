package relayclient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// ignoreCrashDelay is the wait before the malformed ChangeStage is
// sent to a client stuck in the ignore path (spec.md §4.4.6).
const ignoreCrashDelay = 500 * time.Millisecond

// ignoreSentinelID is the malformed stage-change id used ONLY by the
// ignore path, deliberately distinct from the administrative/ban-crash
// sentinel "$among$us/cr4sh%" in packet.go — spec.md §9 preserves both
// literal strings as-is rather than unifying them.
const ignoreSentinelID = "$among$us/SubArea"

// Ignore runs the ignore-path loop of spec.md §4.4.6 for a banned or
// over-capacity connection: the mod is still allowed to attach
// (Init{max_players=1}), then every packet is dropped (Connect and Game
// packets are logged) until the first Game packet, after which the
// client is crashed out.
//
// sendInit is false when the caller already completed the normal
// handshake's Init write before discovering the ban (the
// ban-by-profile-id path, which only learns the id from the Connect
// packet that follows Init) — sending a second Init there would be
// redundant. IP-ban and over-capacity rejections happen before any
// handshake packet goes out, so they pass true.
func Ignore(ctx context.Context, tcp *Connection, identifier string, sendInit bool, log *slog.Logger) {
	defer tcp.Close()

	if sendInit {
		if err := tcp.WritePacket(wire.NewPacket(guid.Zero, wire.Init{MaxPlayers: 1})); err != nil {
			log.Warn("ignore path: failed to send init", "client", identifier, "error", err)
			return
		}
	}

	crashed := false
	for {
		pkt, err := tcp.ReadPacket()
		if err != nil {
			if !errors.Is(err, wire.ErrConnectionClosed) {
				log.Debug("ignore path: connection ended", "client", identifier, "error", err)
			}
			return
		}

		switch pkt.Data.(type) {
		case wire.Connect:
			log.Info("ignore path: connection packet", "client", identifier)
		case wire.Game:
			log.Info("ignore path: game packet, scheduling crash", "client", identifier)
		}

		if _, ok := pkt.Data.(wire.Game); ok && !crashed {
			crashed = true
			select {
			case <-time.After(ignoreCrashDelay):
			case <-ctx.Done():
				return
			}
			crash := wire.NewPacket(pkt.ID, wire.ChangeStage{
				ID:          ignoreSentinelID,
				Stage:       "$agogusStage",
				Scenario:    21,
				SubScenario: 69,
			})
			if err := tcp.WritePacket(crash); err != nil {
				log.Debug("ignore path: failed to send crash", "client", identifier, "error", err)
			}
			return
		}
	}
}
