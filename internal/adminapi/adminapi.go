// Package adminapi is the typed administrative command surface spec.md
// §6 describes: a single Dispatch entry point that an external
// collaborator (a console, a JSON status/command API) calls to act on
// the lobby. Parsing whatever wire format that collaborator speaks is
// its own job — adminapi only owns translating an already-decoded
// lobby.ExternalOp into a coordinator round trip and a reply.
//
// Grounded on la2go's AdminClientAdapter (internal/gameserver/admin_adapter.go):
// a small adapter type standing between the admin commands package and
// the live connection manager, avoiding an import cycle and keeping the
// admin surface's vocabulary separate from the core's own types.
package adminapi

import (
	"context"
	"fmt"

	"github.com/marza-dev/odyssey-relay/internal/lobby"
)

// Surface is the typed administrative command surface bound to one
// lobby. It holds no state of its own; every operation is a round trip
// through the coordinator's single command queue.
type Surface struct {
	lobby *lobby.Lobby
}

// New returns a Surface bound to l.
func New(l *lobby.Lobby) *Surface {
	return &Surface{lobby: l}
}

// Dispatch posts op to the coordinator and waits for its reply, or for
// ctx to be cancelled. It is the only way an external collaborator
// mutates lobby state (spec.md §6): player send/disconnect/crash/tag/
// send-shine, and shine sync/clear.
func (s *Surface) Dispatch(ctx context.Context, op lobby.ExternalOp) (string, error) {
	reply := make(chan lobby.ExternalResult, 1)
	cmd := lobby.ExternalCommand{Cmd: op, Reply: reply}

	select {
	case s.lobby.ToCoord <- cmd:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.lobby.Done():
		return "", fmt.Errorf("adminapi: server is shutting down")
	}

	select {
	case result := <-reply:
		return result.Message, result.Err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.lobby.Done():
		return "", fmt.Errorf("adminapi: server is shutting down")
	}
}
