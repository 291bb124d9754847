package ethornell

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnpatch/internal/binfmt"
	"vnpatch/internal/disasm"
	"vnpatch/internal/script"
	"vnpatch/internal/textenc"
)

const testCodeOffset = 28 + 12

// buildScript assembles a version 1 script with empty header tables.
// String addresses are relative to the start of code.
func buildScript(code []uint32, strs string) []byte {
	data := append([]byte(nil), Magic...)
	data = binary.LittleEndian.AppendUint32(data, 12)
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = binary.LittleEndian.AppendUint32(data, 0)
	for _, w := range code {
		data = binary.LittleEndian.AppendUint32(data, w)
	}
	return append(data, strs...)
}

func load(t *testing.T, data []byte) *Codec {
	t.Helper()
	c := NewCodec(script.NewRun(), binfmt.Options{})
	require.NoError(t, c.LoadBytes(data))
	return c
}

func TestScenarioSingleMessage(t *testing.T) {
	data := buildScript([]uint32{opPushString, 16, opMessage, opReturn}, "Hello\x00")
	c := load(t, data)

	recs := c.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, script.Record{Offset: testCodeOffset + 4, Kind: script.Message, Text: "Hello", Original: "Hello"}, recs[0])

	out, err := c.Patch([]script.Record{{Offset: recs[0].Offset, Kind: script.Message, Text: "Hello, world"}})
	require.NoError(t, err)
	assert.Equal(t, len(data)+len(", world"), len(out))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(out[testCodeOffset+4:]))
	assert.Equal(t, "Hello, world\x00", string(out[testCodeOffset+16:]))
}

func TestNameAndMessageAddressesMove(t *testing.T) {
	code := []uint32{opPushString, 24, opPushString, 30, opMessage, opReturn}
	data := buildScript(code, "Alice\x00Hello\x00")
	c := load(t, data)

	recs := c.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, script.CharacterName, recs[0].Kind)
	assert.Equal(t, script.Message, recs[1].Kind)

	recs[0].Text = "Alicia"
	out, err := c.Patch(recs)
	require.NoError(t, err)
	assert.Equal(t, len(data)+1, len(out))
	assert.Equal(t, uint32(24), binary.LittleEndian.Uint32(out[testCodeOffset+4:]))
	assert.Equal(t, uint32(31), binary.LittleEndian.Uint32(out[testCodeOffset+12:]))
	// Opcodes untouched.
	assert.Equal(t, data[testCodeOffset+16:testCodeOffset+24], out[testCodeOffset+16:testCodeOffset+24])

	c2 := load(t, out)
	assert.Equal(t, "Alicia", c2.Records()[0].Text)
	assert.Equal(t, "Hello", c2.Records()[1].Text)
}

func TestRoundTripIsByteIdentical(t *testing.T) {
	code := []uint32{opPushString, 32, opLine, 1, opPushString, 35, opMessage, opReturn}
	data := buildScript(code, "bg\x00\x82\xb1\x82\xf1\x00")
	c := load(t, data)

	recs := c.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, script.Internal, recs[0].Kind)
	assert.Equal(t, "こん", recs[1].Text)

	out, err := c.Patch(recs)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	out, err = c.Patch(nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestRoundTripKeepsDrainedStringOrder(t *testing.T) {
	code := []uint32{opPushString, 40, opPushString, 45, opLine, 1, opPushString, 50, opMessage, opReturn}
	data := buildScript(code, "bg01\x00se02\x00Hi\x00")
	c := load(t, data)

	recs := c.Records()
	require.Len(t, recs, 3)
	var internal []string
	for _, r := range recs {
		if r.Kind == script.Internal {
			internal = append(internal, r.Text)
		}
	}
	assert.ElementsMatch(t, []string{"bg01", "se02"}, internal)

	out, err := c.Patch(nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	out, err = c.Patch(recs)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestRoundTripKeepsSeparateIdenticalStrings(t *testing.T) {
	code := []uint32{opPushString, 28, opMessage, opPushString, 31, opMessage, opReturn}
	data := buildScript(code, "..\x00..\x00")
	c := load(t, data)

	recs := c.Records()
	require.Len(t, recs, 2)

	out, err := c.Patch(nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	out, err = c.Patch([]script.Record{{Offset: recs[0].Offset, Kind: script.Message, Text: "Hello"}})
	require.NoError(t, err)
	assert.Equal(t, len(data)+len("Hello")-len(".."), len(out))
	assert.Equal(t, "Hello\x00..\x00", string(out[testCodeOffset+28:]))
}

func TestTranslationEqualToAnotherString(t *testing.T) {
	code := []uint32{opPushString, 28, opMessage, opPushString, 30, opMessage, opReturn}
	data := buildScript(code, "A\x00B\x00")
	c := load(t, data)
	recs := c.Records()
	require.Len(t, recs, 2)

	out, err := c.Patch([]script.Record{{Offset: recs[1].Offset, Kind: script.Message, Text: "A"}})
	require.NoError(t, err)
	assert.Equal(t, len(data), len(out))
	assert.Equal(t, "A\x00A\x00", string(out[testCodeOffset+28:]))
}

func TestUntouchedInvalidShiftJISIsKept(t *testing.T) {
	data := buildScript([]uint32{opPushString, 16, opMessage, opReturn}, "\x81\x20ok\x00")
	c := load(t, data)
	recs := c.Records()
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Text, "\uFFFD")

	out, err := c.Patch(nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	out, err = c.Patch(recs)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = c.Patch([]script.Record{{Offset: recs[0].Offset, Kind: script.Message, Text: recs[0].Text + "!"}})
	assert.ErrorIs(t, err, textenc.ErrInvalidText)
}

func TestScenarioChoicesInPushOrder(t *testing.T) {
	code := []uint32{opPushString, 32, opPushString, 34, opPushString, 36, opChoice, opReturn}
	c := load(t, buildScript(code, "A\x00B\x00C\x00"))

	recs := c.Records()
	require.Len(t, recs, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, want, recs[i].Text)
		assert.Equal(t, script.Message, recs[i].Kind)
	}
}

func TestSelectExCall(t *testing.T) {
	code := []uint32{opPushString, 32, opPushString, 35, opPushString, 38, opCallUser, opReturn}
	c := load(t, buildScript(code, "Go\x00Up\x00_SelectEx\x00"))

	recs := c.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, script.Record{Offset: testCodeOffset + 20, Kind: script.Internal, Text: "_SelectEx", Original: "_SelectEx"}, recs[0])
	assert.Equal(t, "Go", recs[1].Text)
	assert.Equal(t, script.Message, recs[1].Kind)
	assert.Equal(t, "Up", recs[2].Text)
	assert.Equal(t, script.Message, recs[2].Kind)
}

func TestOtherUserCallLeavesStack(t *testing.T) {
	code := []uint32{opPushString, 24, opPushString, 28, opCallUser, opReturn}
	c := load(t, buildScript(code, "arg\x00_Wait\x00"))

	recs := c.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "_Wait", recs[0].Text)
	assert.Equal(t, script.Internal, recs[0].Kind)
	// Drained at the end of the script.
	assert.Equal(t, "arg", recs[1].Text)
	assert.Equal(t, script.Internal, recs[1].Kind)
}

func TestEmptyMessageIsInternal(t *testing.T) {
	code := []uint32{opPushString, 24, opPushString, 25, opMessageEx, opReturn}
	c := load(t, buildScript(code, "\x00Hi\x00"))

	recs := c.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, script.Internal, recs[0].Kind)
	assert.Equal(t, script.Message, recs[1].Kind)
}

func TestWatermarkKeepsDecodingPastReturn(t *testing.T) {
	// 0x00 push_code 0x14; 0x08 ret; 0x0c push_string; 0x14 message; 0x18 ret
	code := []uint32{opPushCode, 0x14, opReturn, opPushString, 28, opMessage, opReturn}
	c := load(t, buildScript(code, "late\x00"))

	recs := c.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "late", recs[0].Text)
	assert.Equal(t, testCodeOffset+28, c.Decoded().CodeEnd)
	assert.Equal(t, 0x14, c.Decoded().Watermark)
}

func TestUnknownOpcodeFails(t *testing.T) {
	c := NewCodec(script.NewRun(), binfmt.Options{})
	err := c.LoadBytes(buildScript([]uint32{0x0999, opReturn}, ""))
	assert.ErrorIs(t, err, disasm.ErrUnknownOpcode)
}

func TestPatchRejectsBadRecords(t *testing.T) {
	data := buildScript([]uint32{opPushString, 16, opMessage, opReturn}, "Hello\x00")
	c := load(t, data)

	_, err := c.Patch([]script.Record{{Offset: testCodeOffset + 4, Kind: script.CharacterName, Text: "x"}})
	assert.ErrorIs(t, err, script.ErrKindMismatch)

	_, err = c.Patch([]script.Record{{Offset: testCodeOffset, Kind: script.Message, Text: "x"}})
	assert.ErrorIs(t, err, script.ErrUnknownOffset)
}

func TestPatchTunnelsUnmappableRunes(t *testing.T) {
	run := script.NewRun()
	c := NewCodec(run, binfmt.Options{})
	require.NoError(t, c.LoadBytes(buildScript([]uint32{opPushString, 16, opMessage, opReturn}, "Hello\x00")))

	out, err := c.Patch([]script.Record{{Offset: testCodeOffset + 4, Kind: script.Message, Text: "café"}})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Tunnel.Len())
	assert.Equal(t, []byte{'c', 'a', 'f', 0xF0, 0x40, 0}, out[testCodeOffset+16:])

	c2 := NewCodec(run, binfmt.Options{})
	require.NoError(t, c2.LoadBytes(out))
	assert.Equal(t, "café", c2.Records()[0].Text)
}

func TestNoStringsPatchCopies(t *testing.T) {
	data := buildScript([]uint32{opPushInt, 1, opReturn}, "")
	c := load(t, data)
	assert.Empty(t, c.Records())
	out, err := c.Patch(nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestParseHeader(t *testing.T) {
	data := append([]byte(nil), Magic...)
	body := binary.LittleEndian.AppendUint32(nil, 1)
	body = append(body, "common\x00"...)
	body = binary.LittleEndian.AppendUint32(body, 1)
	body = append(body, "start\x00"...)
	body = binary.LittleEndian.AppendUint32(body, 0x10)
	data = binary.LittleEndian.AppendUint32(data, uint32(4+len(body)))
	data = append(data, body...)

	h, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, "1.00", h.Version.Original())
	assert.Equal(t, len(data), h.CodeOffset)
	assert.Equal(t, []string{"common"}, h.Referenced)
	assert.Equal(t, []Label{{Name: "start", Address: 0x10}}, h.Labels)
	assert.Empty(t, h.Diagnostics)
}

func TestParseHeaderErrors(t *testing.T) {
	_, err := ParseHeader([]byte("not a script at all, really not"))
	assert.ErrorIs(t, err, ErrBadMagic)

	v2 := []byte(magicPrefix + "2.00\x00")
	v2 = binary.LittleEndian.AppendUint32(v2, 4)
	_, err = ParseHeader(v2)
	assert.ErrorContains(t, err, "unsupported script version")

	short := append([]byte(nil), Magic...)
	short = binary.LittleEndian.AppendUint32(short, 400)
	_, err = ParseHeader(short)
	assert.Error(t, err)
}

func TestParseHeaderTruncatedTables(t *testing.T) {
	data := append([]byte(nil), Magic...)
	data = binary.LittleEndian.AppendUint32(data, 8)
	data = binary.LittleEndian.AppendUint32(data, 5) // five names, none present

	h, err := ParseHeader(data)
	require.NoError(t, err)
	require.Len(t, h.Diagnostics, 1)
	assert.Equal(t, binfmt.DiagTruncated, h.Diagnostics[0].Kind)
}

type dirCollection struct{ dir string }

func (d dirCollection) Name() string                          { return d.dir }
func (d dirCollection) Path(name string) string               { return filepath.Join(d.dir, name) }
func (d dirCollection) Scripts() ([]string, error)            { return nil, nil }
func (d dirCollection) Exists(string) (bool, error)           { return true, nil }
func (d dirCollection) Add(string) error                      { return nil }
func (d dirCollection) AddCopy(string, script.Location) error { return nil }
func (d dirCollection) Codec() (script.Codec, error)          { return nil, nil }

func TestCodecFiles(t *testing.T) {
	dir := t.TempDir()
	data := buildScript([]uint32{opPushString, 16, opMessage, opReturn}, "Hello\x00")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s01"), data, 0o644))

	col := dirCollection{dir: dir}
	c := NewCodec(script.NewRun(), binfmt.Options{})
	assert.Equal(t, "", c.Extension())
	require.NoError(t, c.Load(script.Location{Collection: col, Name: "s01"}))

	recs := c.Records()
	recs[0].Text = "Bye"
	require.NoError(t, c.WritePatched(recs, script.Location{Collection: col, Name: "s01.out"}))

	out, err := os.ReadFile(filepath.Join(dir, "s01.out"))
	require.NoError(t, err)
	assert.Equal(t, "Bye\x00", string(out[testCodeOffset+16:]))

	err = c.Load(script.Location{Collection: col, Name: "missing"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestV1Table(t *testing.T) {
	tpl, ok := V1.Templates[0x007B]
	require.True(t, ok)
	assert.Equal(t, "iii", tpl.String())
	assert.True(t, V1.Terminators[opExit])
	assert.True(t, V1.Boundaries[opStatement])
	assert.Equal(t, "message", V1.Mnemonic(opMessage))
	assert.True(t, Detect(buildScript(nil, "")))
}

func TestCallsFromTrace(t *testing.T) {
	code := []uint32{opPushString, 28, opCallUser, opPushString, 28, opCallUser, opReturn}
	data := buildScript(code, "_Wait\x00")
	d, err := Disassemble(data, textenc.NewTunnel(), binfmt.Options{Trace: true})
	require.NoError(t, err)
	calls := d.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, disasm.Call{Offset: testCodeOffset + 8, Callee: "_Wait"}, calls[0])
	assert.Equal(t, testCodeOffset+20, calls[1].Offset)
}
