package guid_test

import (
	"testing"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringFormat(t *testing.T) {
	g := guid.Guid{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	assert.Equal(t, "01020304-0506-0708-090a-0b0c0d0e0f10", g.String())
}

func TestParseRoundTrip(t *testing.T) {
	g := guid.Guid{0xff, 0x00, 0xab, 0xcd, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc}
	parsed, err := guid.Parse(g.String())
	require.NoError(t, err)
	assert.Equal(t, g, parsed)
}

func TestParseWithoutDashes(t *testing.T) {
	parsed, err := guid.Parse("01020304050607080910111213141516")
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), parsed[0])
	assert.Equal(t, byte(0x16), parsed[15])
}

func TestParseInvalidLength(t *testing.T) {
	_, err := guid.Parse("deadbeef")
	require.Error(t, err)
}

func TestZeroIsValidSender(t *testing.T) {
	var g guid.Guid
	assert.Equal(t, guid.Zero, g)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", g.String())
}

func TestLess(t *testing.T) {
	a := guid.Guid{0x00}
	b := guid.Guid{0x01}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
}

func TestMarshalUnmarshalText(t *testing.T) {
	g := guid.Guid{0xaa, 0xbb, 0xcc, 0xdd, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c}
	text, err := g.MarshalText()
	require.NoError(t, err)

	var out guid.Guid
	require.NoError(t, out.UnmarshalText(text))
	assert.Equal(t, g, out)
}
