package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFrom_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfigFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 48, cfg.Store.PageSize)
	assert.Equal(t, "live-tv", cfg.UI.DefaultView)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 5000, cfg.Notifications.DurationMS)
}

func TestLoadConfigFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "store:\n  page_size: 24\nbackend:\n  latency_ms: 0\n  data_dir: \"\"\nui:\n  default_view: movies\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("REBOOTV_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfigFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Store.PageSize)
	assert.Zero(t, cfg.Backend.Latency())
	assert.Empty(t, cfg.Backend.DataDir)
	assert.Equal(t, "movies", cfg.UI.DefaultView)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2000, cfg.Backend.RefreshMS)
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("ui:\n  default_view: settings\n"), 0644))

	_, err := LoadConfigFrom(dir)
	assert.ErrorContains(t, err, "default_view")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Store.PageSize = 12
	cfg.Backend.Seed = 42

	require.NoError(t, SaveConfig(cfg, dir))

	loaded, err := LoadConfigFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Store.PageSize)
	assert.Equal(t, uint64(42), loaded.Backend.Seed)
}
