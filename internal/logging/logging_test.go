package logging

import (
	"bytes"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "warn"))
	t.Cleanup(func() { _ = Setup(&bytes.Buffer{}, "info") })

	log.Info("hidden")
	log.WithField("script", "a.bin").Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "a.bin")
}

func TestSetupBadLevel(t *testing.T) {
	err := Setup(&bytes.Buffer{}, "loud")
	assert.Error(t, err)
}
