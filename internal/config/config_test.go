package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config lookup at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, 100, cfg.Search.Window)
	assert.Equal(t, "lexical", cfg.Search.DefaultMode)
	assert.False(t, cfg.Search.FallbackWarning)
	assert.Equal(t, time.Hour, cfg.Rankings.TTL)
	assert.Equal(t, []string{"tw", "us"}, cfg.Rankings.Regions)
	assert.Equal(t, "tw", cfg.Rankings.DefaultRegion)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "episodes", cfg.Index.EpisodesIndex)
	assert.Equal(t, "shows", cfg.Index.ShowsIndex)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// Given: a project config that only sets a few keys
	isolate(t)
	path := writeFile(t, t.TempDir(), "podsearch.yaml", `
search:
  rrf_constant: 30
  fallback_warning: true
rankings:
  ttl: 15m
index:
  backend: local
`)

	// When: loading it
	cfg, err := Load(path)

	// Then: set keys change and everything else keeps its default
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Search.RRFConstant)
	assert.True(t, cfg.Search.FallbackWarning)
	assert.Equal(t, 15*time.Minute, cfg.Rankings.TTL)
	assert.Equal(t, "local", cfg.Index.Backend)
	assert.Equal(t, 100, cfg.Search.Window)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_UserConfigThenProjectConfig(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	writeFile(t, xdg, "podsearch/config.yaml", "search:\n  window: 50\nlogging:\n  level: debug\n")
	project := writeFile(t, t.TempDir(), "p.yaml", "logging:\n  level: warn\n")

	cfg, err := Load(project)

	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Search.Window)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "podsearch.yaml", "embedding:\n  provider: remote\n")
	t.Setenv("PODSEARCH_EMBEDDING_PROVIDER", "openai")
	t.Setenv("PODSEARCH_RRF_CONSTANT", "10")
	t.Setenv("PODSEARCH_RANKINGS_TTL", "90s")
	t.Setenv("PODSEARCH_REGIONS", "tw, us ,jp")
	t.Setenv("PODSEARCH_FALLBACK_WARNING", "true")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 10, cfg.Search.RRFConstant)
	assert.Equal(t, 90*time.Second, cfg.Rankings.TTL)
	assert.Equal(t, []string{"tw", "us", "jp"}, cfg.Rankings.Regions)
	assert.True(t, cfg.Search.FallbackWarning)
}

func TestLoad_BadEnvValue(t *testing.T) {
	isolate(t)
	t.Setenv("PODSEARCH_SEARCH_WINDOW", "lots")

	_, err := Load("")
	assert.ErrorContains(t, err, "PODSEARCH_SEARCH_WINDOW")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "not found")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Index.Backend = "solr" }, "index.backend"},
		{"zero rrf constant", func(c *Config) { c.Search.RRFConstant = 0 }, "rrf_constant"},
		{"zero window", func(c *Config) { c.Search.Window = 0 }, "search.window"},
		{"bad mode", func(c *Config) { c.Search.DefaultMode = "fuzzy" }, "default_mode"},
		{"bad provider", func(c *Config) { c.Embedding.Provider = "ollama" }, "embedding.provider"},
		{"zero ttl", func(c *Config) { c.Rankings.TTL = 0 }, "rankings.ttl"},
		{"charts url without verbs", func(c *Config) { c.Rankings.ChartsURL = "http://x/feed.json" }, "charts_url"},
		{"default region outside list", func(c *Config) { c.Rankings.DefaultRegion = "jp" }, "default_region"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	cfg := NewConfig()
	cfg.Search.Window = 80
	path := filepath.Join(t.TempDir(), "out.yaml")

	require.NoError(t, cfg.WriteYAML(path))
	loaded, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 80, loaded.Search.Window)
}
