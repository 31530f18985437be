package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmcdole/rebootv/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("Error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo+2, ParseLevel("info+2"))
}

func TestSetup_WritesJSONAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rebootv.log")
	logger, closeFn, err := Setup(&config.LoggingConfig{File: path, Level: "WARN"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "kind", "channels")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "channels", entry["kind"])
	assert.EqualValues(t, os.Getpid(), entry["pid"])
}

func TestSetup_DisabledWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rebootv.log")

	for _, cfg := range []config.LoggingConfig{
		{File: "", Level: "DEBUG"},
		{File: path, Level: "off"},
	} {
		logger, closeFn, err := Setup(&cfg)
		require.NoError(t, err)
		logger.Error("ignored")
		require.NoError(t, closeFn())
	}

	assert.NoFileExists(t, path)
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(slog.New(slog.NewJSONHandler(&buf, nil)), "store")
	logger.Info("fetched", "kind", "movies")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "store", entry["component"])
	assert.Equal(t, "movies", entry["kind"])
}
