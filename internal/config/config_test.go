package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnpatch/internal/binfmt"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestDefaults(t *testing.T) {
	c, err := Load(flags(t))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
	assert.Equal(t, binfmt.DefaultMaxSteps, c.DecodeOptions().MaxSteps)
	assert.Equal(t, 5*time.Second, c.RetryPolicy().Delay)
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "vnpatch.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
format: ethornell
names: names.yaml
log:
  level: warn
retry:
  delay: 2s
  attempts: 3
`), 0o644))

	t.Setenv("VNPATCH_LOG_LEVEL", "error")
	t.Setenv("VNPATCH_TUNNEL", "env.bin")

	c, err := Load(flags(t, "--config", file, "--log-level", "debug", "--max-steps", "99"))
	require.NoError(t, err)
	assert.Equal(t, "ethornell", c.Format)
	assert.Equal(t, "names.yaml", c.Names)
	assert.Equal(t, "env.bin", c.Tunnel)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 99, c.MaxSteps)
	assert.Equal(t, 2*time.Second, c.Retry.Delay)
	assert.Equal(t, 3, c.Retry.Attempts)
}

func TestEnvOverridesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(file, []byte("log:\n  level: warn\n"), 0o644))
	t.Setenv("VNPATCH_LOG_LEVEL", "error")

	c, err := Load(flags(t, "--config", file))
	require.NoError(t, err)
	assert.Equal(t, "error", c.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(flags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)

	_, err = Load(flags(t, "--max-steps", "-1"))
	assert.ErrorContains(t, err, "max_steps")
}
