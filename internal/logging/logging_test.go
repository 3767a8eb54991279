package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
	assert.True(t, ValidLevel("warning"))
	assert.False(t, ValidLevel("trace"))
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only logging config
	path := filepath.Join(t.TempDir(), "podsearch.log")
	cfg := DefaultConfig()
	cfg.FilePath = path
	cfg.WriteToStderr = false

	// When: logging an event
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Info("rankings_cache_hit", slog.String("region", "tw"))
	cleanup()

	// Then: the file holds one JSON record with the attrs
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "rankings_cache_hit", rec["msg"])
	assert.Equal(t, "tw", rec["region"])
}

func TestSetup_DebugFilteredAtInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podsearch.log")
	cfg := Config{Level: "info", Format: "text", FilePath: path}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Debug("hidden")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSetup_RejectsUnknownFormat(t *testing.T) {
	_, _, err := Setup(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestRotatingWriter_Rotates(t *testing.T) {
	// Given: a writer with a 1MB limit and a file already near it
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	chunk := make([]byte, 600*1024)
	for i := 0; i < 4; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	// Then: current file plus at most two rotated files exist
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}
