package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_TextRoundTrip(t *testing.T) {
	for _, k := range []Kind{CharacterName, Message, Internal} {
		b, err := json.Marshal(k)
		require.NoError(t, err)
		var back Kind
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, k, back)
	}
	_, err := ParseKind("bogus")
	assert.Error(t, err)
	assert.Equal(t, "kind(7)", Kind(7).String())
}

func TestStatistics_CountsMessagesOnly(t *testing.T) {
	var s Statistics
	s.Count([]Record{
		{Kind: Message, Flags: Flags{Translated: true, Checked: true}},
		{Kind: Message, Flags: Flags{Translated: true, Edited: true}},
		{Kind: Message},
		{Kind: CharacterName, Flags: Flags{Translated: true}},
		{Kind: Internal, Flags: Flags{Translated: true}},
	})
	assert.Equal(t, Statistics{Total: 3, Translated: 2, Checked: 1, Edited: 1}, s)
	assert.InDelta(t, 66.67, s.Percent(s.Translated), 0.01)

	s.Reset()
	assert.Equal(t, Statistics{}, s)
	assert.Zero(t, s.Percent(1))
}

func TestTextName(t *testing.T) {
	assert.Equal(t, "scene01.json", TextName("scene01", "", ".json"))
	assert.Equal(t, "dir/scene01.json", TextName("dir/scene01.bin", ".bin", ".json"))
	assert.Equal(t, "scene01", TextName("scene01.bin", ".bin", ""))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, SeverityFatal, Classify(fmt.Errorf("open: %w", ErrUnsupportedFormat)))
	assert.Equal(t, SeverityFatal, Classify(ErrCollectionMismatch))
	assert.Equal(t, SeveritySkip, Classify(fmt.Errorf("x: %w", ErrKindMismatch)))
	assert.Equal(t, SeveritySkip, Classify(os.ErrNotExist))
}

func TestRun_FlushPersistsTables(t *testing.T) {
	dir := t.TempDir()
	tunnelPath := filepath.Join(dir, "sjis_ext.bin")
	namesPath := filepath.Join(dir, "names.yaml")

	r, err := OpenRun(tunnelPath, namesPath)
	require.NoError(t, err)
	_, err = r.Tunnel.Encode("é")
	require.NoError(t, err)
	r.Names.Add("太郎")
	require.NoError(t, r.Flush())

	again, err := OpenRun(tunnelPath, namesPath)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Tunnel.Len())
	assert.Equal(t, 1, again.Names.Len())
}

func TestLocation_FilePath(t *testing.T) {
	_, err := Location{Name: "x"}.FilePath()
	assert.Error(t, err)
}
