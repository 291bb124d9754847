package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnpatch/internal/disasm"
)

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	in := map[string]string{"text": "<こんにちは>"}
	require.NoError(t, WriteJSON(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<こんにちは>")

	var out map[string]string
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)
}

func TestReadJSONErrors(t *testing.T) {
	dir := t.TempDir()
	var v any
	assert.ErrorIs(t, ReadJSON(filepath.Join(dir, "missing.json"), &v), os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	assert.ErrorContains(t, ReadJSON(bad, &v), "decode")
}

func TestWriteASM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asm", "s01.txt")
	insts := []disasm.Inst{{Offset: 0x10, Mnemonic: "ret"}}
	require.NoError(t, WriteASM(path, insts, 0x10))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0x000000  ret         \n", string(raw))
}
