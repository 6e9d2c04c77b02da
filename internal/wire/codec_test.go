package wire_test

import (
	"testing"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlayerID() guid.Guid {
	g, err := guid.Parse("01020304-0506-0708-090a-0b0c0d0e0f10")
	if err != nil {
		panic(err)
	}
	return g
}

// RT1: decode(encode(p)) == p after resize, across every variant.
func TestRoundTrip_AllKinds(t *testing.T) {
	id := samplePlayerID()
	cases := []wire.PacketData{
		wire.Init{MaxPlayers: 8},
		wire.Player{
			Pos:          wire.Vector3{X: 1, Y: 2, Z: 3},
			Rot:          wire.Quaternion{X: 0, Y: 0, Z: 0, W: 1},
			BlendWeights: [6]float32{1, 2, 3, 4, 5, 6},
			Act:          7,
			SubAct:       9,
		},
		wire.Cap{Pos: wire.Vector3{X: 1}, Rot: wire.IdentityQuaternion, CapOut: true, CapAnim: "ThrowAnim"},
		wire.Game{Is2D: true, ScenarioNum: 5, Stage: "CapWorldHomeStage"},
		wire.Connect{ConnType: wire.FirstConnection, MaxPlayer: 8, ClientName: "Mario"},
		wire.Disconnect{},
		wire.Costume{Body: "MarioDefault", Cap: "CapDefault"},
		wire.Shine{ShineID: 42, IsGrand: false},
		wire.Capture{Model: "Goomba"},
		wire.ChangeStage{Stage: "WaterfallWorldHomeStage", ID: "$Cascade", Scenario: 0, SubScenario: 0},
		wire.Command{},
		wire.UdpInit{Port: 44123},
		wire.HolePunch{},
	}

	for _, data := range cases {
		p := wire.NewPacket(id, data)
		encoded := wire.Encode(p)
		decoded, consumed, err := wire.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, len(encoded), consumed)
		assert.Equal(t, id, decoded.ID)
		assert.Equal(t, data, decoded.Data)
	}
}

// RT2: every strict prefix of a legal frame yields NotEnoughData; the
// full frame succeeds.
func TestRoundTrip_NotEnoughData(t *testing.T) {
	id := samplePlayerID()
	p := wire.NewPacket(id, wire.Shine{ShineID: 7, IsGrand: true})
	encoded := wire.Encode(p)

	for n := 0; n < len(encoded); n++ {
		_, _, err := wire.Decode(encoded[:n])
		assert.ErrorIs(t, err, wire.ErrNotEnoughData, "prefix length %d should be incomplete", n)
	}

	_, consumed, err := wire.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), consumed)
}

// RT3: kind-5 discrimination between Tag and GameMode by (game_mode,
// update_type), and the inverse encode reproduces the original byte.
func TestKind5_TagVsGameModeDiscrimination(t *testing.T) {
	id := samplePlayerID()

	tagCases := []wire.Tag{
		{GameMode: wire.GameModeHideAndSeek, UpdateType: wire.TagUpdateState, IsIt: true, Seconds: 30, Minutes: 2},
		{GameMode: wire.GameModeSardines, UpdateType: wire.TagUpdateTime, IsIt: false, Seconds: 0, Minutes: 0},
		{GameMode: wire.GameModeLegacy, UpdateType: wire.TagUpdateBoth, IsIt: true, Seconds: 59, Minutes: 99},
	}
	for _, tag := range tagCases {
		p := wire.NewPacket(id, tag)
		encoded := wire.Encode(p)
		decoded, _, err := wire.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, tag, decoded.Data)
		assert.Equal(t, encoded, wire.Encode(decoded))
	}

	modeCases := []wire.GameModeData{
		{Mode: wire.GameModeLegacy, UpdateType: wire.TagUpdateState, Data: []byte{0xaa, 0xbb}},
		{Mode: wire.GameModeFreezeTag, UpdateType: wire.TagUpdateUnknown, Data: []byte{0x01}},
		{Mode: wire.GameModeNone, UpdateType: wire.TagUpdateBoth, Data: nil},
	}
	for _, mode := range modeCases {
		p := wire.NewPacket(id, mode)
		encoded := wire.Encode(p)
		decoded, _, err := wire.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, mode, decoded.Data)
		assert.Equal(t, encoded, wire.Encode(decoded))
	}
}

// RT4: unknown type ids round-trip as Unhandled{tag,bytes}.
func TestUnhandledRoundTrip(t *testing.T) {
	id := samplePlayerID()
	p := wire.NewPacket(id, wire.Unhandled{Tag: 999, Data: []byte{1, 2, 3, 4}})
	encoded := wire.Encode(p)
	decoded, consumed, err := wire.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), consumed)
	assert.Equal(t, wire.Unhandled{Tag: 999, Data: []byte{1, 2, 3, 4}}, decoded.Data)
}

// The JsonAPI tunnel packet (type 0x5453) consumes the whole buffer as
// text instead of following normal framing (spec.md §9).
func TestJsonAPITunnel(t *testing.T) {
	id := samplePlayerID()
	p := wire.NewPacket(id, wire.JsonAPI{JSON: `{"API_JSON_REQUEST":{"Type":"Players"}}`})
	encoded := wire.Encode(p)
	assert.Equal(t, []byte(`{"API_JSON_REQUEST":{"Type":"Players"}}`), encoded)

	decoded, consumed, err := wire.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), consumed)
	assert.IsType(t, wire.JsonAPI{}, decoded.Data)
}

func TestMaxPacketSizeRejected(t *testing.T) {
	id := samplePlayerID()
	buf := make([]byte, wire.HeaderSize)
	copy(buf, id[:])
	buf[16] = byte(wire.TypeCommand)
	buf[17] = byte(wire.TypeCommand >> 8)
	buf[18] = 0x01
	buf[19] = 0x01 // data_size = 0x0101 > 0x100
	_, _, err := wire.Decode(buf)
	assert.ErrorIs(t, err, wire.ErrPacketTooLarge)
}

func TestResizeRecomputesDataSize(t *testing.T) {
	p := wire.NewPacket(samplePlayerID(), wire.GameModeData{Mode: wire.GameModeLegacy, Data: []byte{1, 2, 3}})
	p.Data = wire.GameModeData{Mode: wire.GameModeLegacy, Data: []byte{1, 2, 3, 4, 5}}
	p.Resize()
	assert.Equal(t, uint16(6), p.DataSize)
}
