package listener

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marza-dev/odyssey-relay/internal/config"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/relayclient"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestHandleConnIgnoresWhenLobbyFull covers spec.md §4.6 step 2: a
// connection accepted once the lobby is at capacity still gets an
// Init on the ignore path, but is never handed to the coordinator.
func TestHandleConnIgnoresWhenLobbyFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := config.Default()
	settings.Server.MaxPlayers = 0
	l := lobby.New(ctx, settings)
	s := New(l, discardLogger())

	server, client := net.Pipe()
	defer client.Close()

	go s.handleConn(ctx, server)

	conn, err := relayclient.NewConnection(client)
	require.NoError(t, err)
	pkt, err := conn.ReadPacket()
	require.NoError(t, err)
	init, ok := pkt.Data.(wire.Init)
	require.True(t, ok, "over-capacity connections still receive an Init")
	require.EqualValues(t, 1, init.MaxPlayers)

	select {
	case cmd := <-l.ToCoord:
		t.Fatalf("over-capacity connection must never reach the coordinator, got %#v", cmd)
	case <-time.After(50 * time.Millisecond):
	}
}
