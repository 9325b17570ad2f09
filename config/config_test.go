package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Compression, cfg.Compression)
	assert.Equal(t, Default().PruneKeepLast, cfg.PruneKeepLast)
}

func TestLoadFromOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	toml := `
compression = "gzip"
split_files = 500
dedup = false
excludes = [".git/**", "*.tmp"]
`
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "gzip", cfg.Compression)
	assert.Equal(t, 500, cfg.SplitFiles)
	assert.False(t, cfg.Dedup)
	assert.Equal(t, []string{".git/**", "*.tmp"}, cfg.Excludes)
	// Fields absent from the file keep the built-in default.
	assert.Equal(t, Default().CompressionLevel, cfg.CompressionLevel)
}

func TestLoadFromRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestAppConfigDirUsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")
	assert.Equal(t, "/tmp/xdgtest/archivum", AppConfigDir())
}

func TestAppConfigDirFallsBackToHomeConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/.config/archivum", AppConfigDir())
}
