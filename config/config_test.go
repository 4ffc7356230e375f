package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuvokd.toml")
	contents := `
[server]
listen_address = "0.0.0.0:9090"
worker_ranks = 4

[cache]
capacity_bytes = 1073741824

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.ListenAddress)
	assert.Equal(t, 4, cfg.Server.WorkerRanks)
	assert.Equal(t, uint64(1073741824), cfg.Cache.CapacityBytes)
	assert.Equal(t, "debug", cfg.Log.Level)
	// BatchSize was not set in the file; it keeps Default's value.
	assert.Equal(t, uint32(64), cfg.Server.BatchSize)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"bogus", "INFO"},
	} {
		assert.Equal(t, tc.want, parseLevel(tc.in).String())
	}
}
