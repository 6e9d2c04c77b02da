package lobby_test

import (
	"context"
	"testing"
	"time"

	"github.com/marza-dev/odyssey-relay/internal/config"
	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGuid(t *testing.T, s string) guid.Guid {
	t.Helper()
	g, err := guid.Parse(s)
	require.NoError(t, err)
	return g
}

func TestInsertAndLookup(t *testing.T) {
	l := lobby.New(context.Background(), config.Default())
	a := mustGuid(t, "00000000-0000-0000-0000-000000000001")

	assert.False(t, l.HasID(a))
	data := lobby.NewPlayerData("A", nil)
	l.Insert(a, data)

	assert.True(t, l.HasID(a))
	assert.True(t, l.HasName("A"))
	name, ok := l.NameOf(a)
	assert.True(t, ok)
	assert.Equal(t, "A", name)
	assert.Equal(t, 1, l.Count())

	got, ok := l.Get(a)
	require.True(t, ok)
	assert.Same(t, data, got)
}

func TestRemoveClearsBijection(t *testing.T) {
	l := lobby.New(context.Background(), config.Default())
	a := mustGuid(t, "00000000-0000-0000-0000-000000000001")
	l.Insert(a, lobby.NewPlayerData("A", nil))
	l.Remove(a)

	assert.False(t, l.HasID(a))
	assert.False(t, l.HasName("A"))
	assert.Equal(t, 0, l.Count())
}

func TestShinesIdempotentInsert(t *testing.T) {
	l := lobby.New(context.Background(), config.Default())
	l.ShinesInsert(42)
	l.ShinesInsert(42)
	assert.Equal(t, []int32{42}, l.ShinesAsSlice())
	assert.True(t, l.ShinesContains(42))

	l.ShinesClear()
	assert.Empty(t, l.ShinesAsSlice())
}

func TestSettingsSnapshotSwap(t *testing.T) {
	l := lobby.New(context.Background(), config.Default())
	assert.EqualValues(t, 8, l.Settings().Server.MaxPlayers)

	updated := config.Default()
	updated.Server.MaxPlayers = 16
	l.SetSettings(updated)
	assert.EqualValues(t, 16, l.Settings().Server.MaxPlayers)
}

func TestDoneClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := lobby.New(ctx, config.Default())

	select {
	case <-l.Done():
		t.Fatal("lobby should not be done before cancel")
	default:
	}

	cancel()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby.Done() did not fire after cancel")
	}
}

func TestTagPacketConstruction(t *testing.T) {
	id := mustGuid(t, "00000000-0000-0000-0000-000000000001")

	none := &lobby.PlayerData{}
	assert.Nil(t, none.TagPacket(id))

	seeking := true
	onlySeeking := &lobby.PlayerData{IsSeeking: &seeking}
	pkt := onlySeeking.TagPacket(id)
	require.NotNil(t, pkt)

	d := 90 * time.Second
	both := &lobby.PlayerData{IsSeeking: &seeking, Time: &d}
	pkt = both.TagPacket(id)
	require.NotNil(t, pkt)
}
