package coordinator_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/marza-dev/odyssey-relay/internal/config"
	"github.com/marza-dev/odyssey-relay/internal/coordinator"
	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/marza-dev/odyssey-relay/internal/wire"
	"github.com/stretchr/testify/require"
)

type fakeTask struct{}

func (fakeTask) Run(ctx context.Context) { <-ctx.Done() }

func mustGuid(t *testing.T, s string) guid.Guid {
	t.Helper()
	id, err := guid.Parse(s)
	require.NoError(t, err)
	return id
}

func newTestLobby(t *testing.T) (*lobby.Lobby, context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := lobby.New(ctx, config.Default())
	return l, ctx, cancel
}

func joinPlayer(t *testing.T, l *lobby.Lobby, ctx context.Context, id guid.Guid, name string) *lobby.PlayerData {
	t.Helper()
	data := lobby.NewPlayerData(name, net.ParseIP("127.0.0.1"))
	connect := wire.NewPacket(id, wire.Connect{
		ConnType:   wire.FirstConnection,
		MaxPlayer:  8,
		ClientName: name,
	})
	l.ToCoord <- lobby.NewPlayerCommand{Guid: id, Data: data, Connect: connect, Task: fakeTask{}}
	return data
}

// TestHandshakeAndPeerSync covers the coordinator half of seed scenario
// 1 (spec.md §8): once A has joined, B receives A's synthetic Connect on
// its own channel.
func TestHandshakeAndPeerSync(t *testing.T) {
	l, ctx, cancel := newTestLobby(t)
	defer cancel()
	c := coordinator.New(l)
	go c.Run(ctx)

	idA := mustGuid(t, "00000000-0000-0000-0000-000000000001")
	idB := mustGuid(t, "00000000-0000-0000-0000-000000000002")

	joinPlayer(t, l, ctx, idA, "A")
	require.Eventually(t, func() bool { return l.HasID(idA) }, time.Second, time.Millisecond)

	dataB := joinPlayer(t, l, ctx, idB, "B")
	require.Eventually(t, func() bool { return l.HasID(idB) }, time.Second, time.Millisecond)

	var sawSynthConnect bool
	for i := 0; i < 4; i++ {
		select {
		case cmd := <-dataB.Channel:
			if out, ok := cmd.(lobby.OutboundPacket); ok {
				if conn, ok := out.Packet.Data.(wire.Connect); ok && out.Packet.ID == idA {
					sawSynthConnect = true
					_ = conn
				}
			}
		case <-time.After(200 * time.Millisecond):
		}
	}
	require.True(t, sawSynthConnect, "B should receive A's synthetic Connect")
}

// TestShineCollectionSyncsToPeers is seed scenario 2.
func TestShineCollectionSyncsToPeers(t *testing.T) {
	l, ctx, cancel := newTestLobby(t)
	defer cancel()
	c := coordinator.New(l)
	go c.Run(ctx)

	idA := mustGuid(t, "00000000-0000-0000-0000-000000000001")
	idB := mustGuid(t, "00000000-0000-0000-0000-000000000002")
	joinPlayer(t, l, ctx, idA, "A")
	dataB := joinPlayer(t, l, ctx, idB, "B")
	require.Eventually(t, func() bool { return l.HasID(idA) && l.HasID(idB) }, time.Second, time.Millisecond)

	l.ToCoord <- lobby.InboundPacket{Packet: wire.NewPacket(idA, wire.Costume{Body: "Mario", Cap: "Mario"})}
	l.ToCoord <- lobby.InboundPacket{Packet: wire.NewPacket(idA, wire.Shine{ShineID: 42, IsGrand: false})}

	require.Eventually(t, func() bool { return l.ShinesContains(42) }, time.Second, time.Millisecond)

	var sawShine bool
	for i := 0; i < 12; i++ {
		select {
		case cmd := <-dataB.Channel:
			if out, ok := cmd.(lobby.OutboundSelfAddressed); ok {
				if shine, ok := out.Packet.Data.(wire.Shine); ok && shine.ShineID == 42 {
					sawShine = true
				}
			}
		case <-time.After(100 * time.Millisecond):
		}
	}
	require.True(t, sawShine, "B should receive Shine{42} as SelfAddressed")
}

// TestNewSaveSuppressesShineSync is seed scenario 3 / SM2.
func TestNewSaveSuppressesShineSync(t *testing.T) {
	l, ctx, cancel := newTestLobby(t)
	defer cancel()
	c := coordinator.New(l)
	go c.Run(ctx)

	idA := mustGuid(t, "00000000-0000-0000-0000-000000000001")
	joinPlayer(t, l, ctx, idA, "A")
	require.Eventually(t, func() bool { return l.HasID(idA) }, time.Second, time.Millisecond)

	l.ToCoord <- lobby.InboundPacket{Packet: wire.NewPacket(idA, wire.Shine{ShineID: 7})}
	require.Eventually(t, func() bool { return l.ShinesContains(7) }, time.Second, time.Millisecond)

	l.ToCoord <- lobby.InboundPacket{Packet: wire.NewPacket(idA, wire.Game{
		Is2D: false, ScenarioNum: 1, Stage: "CapWorldHomeStage",
	})}

	require.Eventually(t, func() bool {
		data, ok := l.Get(idA)
		if !ok {
			return false
		}
		data.Mu.Lock()
		defer data.Mu.Unlock()
		return data.DisableShineSync && len(data.ShineSync) == 0
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return len(l.ShinesAsSlice()) == 0 }, time.Second, time.Millisecond)
}

// TestBannedStageCrashesAfterDelay is seed scenario 4.
func TestBannedStageCrashesAfterDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := config.Default()
	settings.BanList.Enabled = true
	settings.BanList.Stages = map[string]struct{}{"ForbiddenStage": {}}
	l := lobby.New(ctx, settings)

	c := coordinator.New(l)
	go c.Run(ctx)

	idA := mustGuid(t, "00000000-0000-0000-0000-000000000001")
	dataA := joinPlayer(t, l, ctx, idA, "A")
	require.Eventually(t, func() bool { return l.HasID(idA) }, time.Second, time.Millisecond)

	for len(dataA.Channel) > 0 {
		<-dataA.Channel
	}

	l.ToCoord <- lobby.InboundPacket{Packet: wire.NewPacket(idA, wire.Game{
		Is2D: false, ScenarioNum: 0, Stage: "ForbiddenStage",
	})}

	var sawCrash bool
	deadline := time.After(2 * time.Second)
	for !sawCrash {
		select {
		case cmd := <-dataA.Channel:
			if out, ok := cmd.(lobby.OutboundSelfAddressed); ok {
				if cs, ok := out.Packet.Data.(wire.ChangeStage); ok && cs.ID == "$among$us/cr4sh%" {
					sawCrash = true
				}
			}
		case <-deadline:
			t.Fatal("did not observe crash ChangeStage within 2s")
		}
	}
}

// TestDisconnectNotifiesOwnChannel covers the coordinator's own-channel
// Disconnect delivery on a DisconnectPlayer command (spec.md §5 "a Disconnect packet sent
// to a client is the last packet it will process from its own channel").
func TestDisconnectNotifiesOwnChannel(t *testing.T) {
	l, ctx, cancel := newTestLobby(t)
	defer cancel()
	c := coordinator.New(l)
	go c.Run(ctx)

	idA := mustGuid(t, "00000000-0000-0000-0000-000000000001")
	dataA := joinPlayer(t, l, ctx, idA, "A")
	require.Eventually(t, func() bool { return l.HasID(idA) }, time.Second, time.Millisecond)

	l.ToCoord <- lobby.DisconnectPlayerCommand{Guid: idA}
	require.Eventually(t, func() bool { return !l.HasID(idA) }, time.Second, time.Millisecond)

	var sawDisconnect bool
	for i := 0; i < 8; i++ {
		select {
		case cmd := <-dataA.Channel:
			if out, ok := cmd.(lobby.OutboundPacket); ok {
				if _, ok := out.Packet.Data.(wire.Disconnect); ok {
					sawDisconnect = true
				}
			}
		case <-time.After(50 * time.Millisecond):
		}
	}
	require.True(t, sawDisconnect)
}

// TestShineSyncDisabledServerWide covers settings.shines.enabled=false:
// shines are still collected into the lobby's set, but no Shine packet
// is ever pushed out to a peer.
func TestShineSyncDisabledServerWide(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := config.Default()
	settings.Shines.Enabled = false
	l := lobby.New(ctx, settings)
	c := coordinator.New(l)
	go c.Run(ctx)

	idA := mustGuid(t, "00000000-0000-0000-0000-000000000001")
	idB := mustGuid(t, "00000000-0000-0000-0000-000000000002")
	joinPlayer(t, l, ctx, idA, "A")
	dataB := joinPlayer(t, l, ctx, idB, "B")
	require.Eventually(t, func() bool { return l.HasID(idA) && l.HasID(idB) }, time.Second, time.Millisecond)

	l.ToCoord <- lobby.InboundPacket{Packet: wire.NewPacket(idA, wire.Shine{ShineID: 99})}
	require.Eventually(t, func() bool { return l.ShinesContains(99) }, time.Second, time.Millisecond)

	require.Never(t, func() bool {
		select {
		case cmd := <-dataB.Channel:
			if out, ok := cmd.(lobby.OutboundSelfAddressed); ok {
				if shine, ok := out.Packet.Data.(wire.Shine); ok && shine.ShineID == 99 {
					return true
				}
			}
		default:
		}
		return false
	}, 300*time.Millisecond, 20*time.Millisecond, "Shine sync must not fire while disabled")
}

// TestSuppressedStageChangeWithinCapKingdomStaysSuppressed covers the
// new-save suppression case the original never reenables in: a player
// already suppressed who sends another cap-stage/scenario-1 Game packet
// (moving within Cap Kingdom, not leaving it) must not get a reenable
// scheduled.
func TestSuppressedStageChangeWithinCapKingdomStaysSuppressed(t *testing.T) {
	l, ctx, cancel := newTestLobby(t)
	defer cancel()
	c := coordinator.New(l)
	go c.Run(ctx)

	idA := mustGuid(t, "00000000-0000-0000-0000-000000000001")
	joinPlayer(t, l, ctx, idA, "A")
	require.Eventually(t, func() bool { return l.HasID(idA) }, time.Second, time.Millisecond)

	l.ToCoord <- lobby.InboundPacket{Packet: wire.NewPacket(idA, wire.Game{
		Is2D: false, ScenarioNum: 1, Stage: "CapWorldHomeStage",
	})}
	require.Eventually(t, func() bool {
		data, ok := l.Get(idA)
		return ok && data.DisableShineSync
	}, time.Second, time.Millisecond)

	l.ToCoord <- lobby.InboundPacket{Packet: wire.NewPacket(idA, wire.Game{
		Is2D: false, ScenarioNum: 1, Stage: "CapWorldTowerStage",
	})}

	require.Never(t, func() bool {
		data, ok := l.Get(idA)
		return ok && !data.DisableShineSync
	}, coordinator.NewSaveReenableDelay+500*time.Millisecond, 50*time.Millisecond,
		"a second cap-stage/scenario-1 packet must not schedule a reenable")
}
