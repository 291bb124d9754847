package binfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInt32_LittleEndian(t *testing.T) {
	s := NewStream([]byte{0x78, 0x56, 0x34, 0x12, 0xFF, 0xFF, 0xFF, 0xFF})
	v, err := s.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(0x12345678), v)

	v, err = s.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v)
	assert.Equal(t, 0, s.Remaining())
}

func TestReadUint_Widths(t *testing.T) {
	tests := []struct {
		width int
		in    []byte
		want  uint32
	}{
		{1, []byte{0x7F}, 0x7F},
		{2, []byte{0x34, 0x12}, 0x1234},
		{4, []byte{0x01, 0x00, 0x00, 0x80}, 0x80000001},
	}
	for _, tt := range tests {
		s := NewStream(tt.in)
		got, err := s.ReadUint(tt.width)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "width %d", tt.width)
	}

	_, err := NewStream([]byte{1, 2, 3}).ReadUint(3)
	assert.ErrorIs(t, err, ErrStreamOverrun)
}

func TestReadUint32_EOF(t *testing.T) {
	s := NewStream([]byte{1, 2, 3})
	_, err := s.ReadUint32()
	assert.ErrorIs(t, err, ErrStreamEOF)
	assert.Equal(t, 0, s.Position(), "failed read must not advance")
}

func TestReadCString(t *testing.T) {
	s := NewStream([]byte("abc\x00de\x00"))
	b, err := s.ReadCString()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
	assert.Equal(t, 4, s.Position())

	b, err = s.ReadCString()
	require.NoError(t, err)
	assert.Equal(t, "de", string(b))

	s = NewStream([]byte("xyz"))
	_, err = s.ReadCString()
	assert.Error(t, err)
	assert.Equal(t, 0, s.Position())
}

func TestCStringAt(t *testing.T) {
	s := NewStream([]byte("\x00hello\x00"))
	b, err := s.CStringAt(1)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.Equal(t, 0, s.Position())

	b, err = s.CStringAt(0)
	require.NoError(t, err)
	assert.Empty(t, b)

	_, err = s.CStringAt(99)
	assert.ErrorIs(t, err, ErrStreamEOF)
}

func TestNewStreamAt_Clamps(t *testing.T) {
	s := NewStreamAt([]byte{1, 2}, 10)
	assert.Equal(t, 2, s.Position())
	assert.Equal(t, 0, s.Remaining())
}

func TestPutUint(t *testing.T) {
	buf := make([]byte, 6)
	require.NoError(t, PutUint(buf, 1, 4, 0xAABBCCDD))
	assert.Equal(t, []byte{0, 0xDD, 0xCC, 0xBB, 0xAA, 0}, buf)

	require.NoError(t, PutUint(buf, 4, 2, 0x0102))
	assert.Equal(t, []byte{0x02, 0x01}, buf[4:6])

	assert.ErrorIs(t, PutUint(buf, 4, 4, 1), ErrStreamEOF)
}

func TestDiags(t *testing.T) {
	var d Diags
	d.Add(0x10, DiagResidue, "left on stack")
	d.Addf(0x20, DiagInvalid, "bad %s", "thing")
	require.Equal(t, 2, d.Len())
	assert.Equal(t, "[invalid] 0x20: bad thing", d.Items()[1].String())
}

func TestOptions_EffectiveMaxSteps(t *testing.T) {
	assert.Equal(t, DefaultMaxSteps, Options{}.EffectiveMaxSteps())
	assert.Equal(t, 5, Options{MaxSteps: 5}.EffectiveMaxSteps())
}
