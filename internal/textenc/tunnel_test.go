package textenc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePlainShiftJIS(t *testing.T) {
	tun := NewTunnel()
	b, err := tun.Encode("Aこん")
	require.NoError(t, err)
	assert.Equal(t, []byte{'A', 0x82, 0xB1, 0x82, 0xF1}, b)
	assert.Equal(t, 0, tun.Len(), "representable text must not touch the table")

	s, err := tun.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "Aこん", s)
}

func TestEncodeTunnelsUnmappable(t *testing.T) {
	tun := NewTunnel()
	b, err := tun.Encode("aéüé")
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 0xF0, 0x40, 0xF0, 0x41, 0xF0, 0x40}, b)

	slot, ok := tun.Slot('é')
	require.True(t, ok)
	assert.Equal(t, 0, slot)
	slot, ok = tun.Slot('ü')
	require.True(t, ok)
	assert.Equal(t, 1, slot)

	s, err := tun.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "aéüé", s)
}

func TestEncodeMixedRoundTrip(t *testing.T) {
	tun := NewTunnel()
	in := "「Café」と言った😀"
	b, err := tun.Encode(in)
	require.NoError(t, err)
	s, err := tun.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, s)
	assert.Equal(t, []rune{'é', '😀'}, tun.Chars())
}

func TestSlotBytesSkipsInvalidTrail(t *testing.T) {
	tests := []struct {
		slot        int
		lead, trail byte
	}{
		{0, 0xF0, 0x40},
		{62, 0xF0, 0x7E},
		{63, 0xF0, 0x80},
		{187, 0xF0, 0xFC},
		{188, 0xF1, 0x40},
		{Capacity - 1, 0xF9, 0xFC},
	}
	for _, tt := range tests {
		lead, trail := slotBytes(tt.slot)
		assert.Equal(t, tt.lead, lead, "slot %d lead", tt.slot)
		assert.Equal(t, tt.trail, trail, "slot %d trail", tt.slot)

		back, ok := slotIndex(lead, trail)
		require.True(t, ok)
		assert.Equal(t, tt.slot, back)
	}

	_, ok := slotIndex(0xF0, 0x7F)
	assert.False(t, ok)
}

func TestTunnelFull(t *testing.T) {
	tun := NewTunnel()
	for i := 0; i < Capacity; i++ {
		_, err := tun.claim(rune(0x10000 + i))
		require.NoError(t, err)
	}
	_, err := tun.Encode("é")
	assert.ErrorIs(t, err, ErrTunnelFull)
}

func TestMarshalBinaryRoundTrip(t *testing.T) {
	tun := NewTunnel()
	_, err := tun.Encode("éü😀")
	require.NoError(t, err)

	data, err := tun.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE9, 0x00, 0xFC, 0x00}, data[:4])

	other := NewTunnel()
	require.NoError(t, other.UnmarshalBinary(data))
	assert.Equal(t, tun.Chars(), other.Chars())

	b, err := other.Encode("ü")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x41}, b, "persisted slots must be reused")
}

func TestUnmarshalBinaryOddLength(t *testing.T) {
	assert.Error(t, NewTunnel().UnmarshalBinary([]byte{1}))
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, TableFileName)

	empty := NewTunnel()
	require.NoError(t, empty.SaveFile(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "empty table must not be written")

	require.NoError(t, empty.LoadFile(path), "missing table is not an error")

	tun := NewTunnel()
	_, err = tun.Encode("é")
	require.NoError(t, err)
	require.NoError(t, tun.SaveFile(path))

	loaded := NewTunnel()
	require.NoError(t, loaded.LoadFile(path))
	assert.Equal(t, []rune{'é'}, loaded.Chars())
}

func TestDecodeUnknownSlotIsPrivateUse(t *testing.T) {
	tun := NewTunnel()
	src := []byte{'x', 0xF0, 0x40, 'y', 0xF5, 0x50}
	s, err := tun.Decode(src)
	require.NoError(t, err)
	assert.Equal(t, "x\uE000y\uE3BC", s)

	b, err := tun.Encode(s)
	require.NoError(t, err)
	assert.Equal(t, src, b)
	assert.Equal(t, 0, tun.Len())
}

func TestClaimSkipsLiteralSlots(t *testing.T) {
	tun := NewTunnel()
	b, err := tun.Encode("\uE000é")
	require.NoError(t, err)
	// U+E000 keeps slot 0; é takes the next free slot.
	assert.Equal(t, []byte{0xF0, 0x40, 0xF0, 0x41}, b)
	assert.Equal(t, []rune{'\uE000', 'é'}, tun.Chars())

	s, err := tun.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "\uE000é", s)
}

func TestPrivateUseCollidingWithTableIsTunnelled(t *testing.T) {
	tun := NewTunnel()
	_, err := tun.Encode("é")
	require.NoError(t, err)

	b, err := tun.Encode("\uE000")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x41}, b)

	s, err := tun.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "\uE000", s)
}

func TestEncodeRejectsReplacementChar(t *testing.T) {
	tun := NewTunnel()
	_, err := tun.Encode("a\uFFFDb")
	assert.ErrorIs(t, err, ErrInvalidText)
	assert.Equal(t, 0, tun.Len())
}
