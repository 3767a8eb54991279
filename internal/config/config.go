// Package config loads podsearch configuration from defaults, YAML files and
// PODSEARCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/podsearch/internal/logging"
)

// DefaultFileName is the project config file looked up in the working directory.
const DefaultFileName = "podsearch.yaml"

// DefaultChartsURL is the Apple marketing tools top-100 feed. The verbs are
// region, then feed kind ("podcasts" or "podcast-episodes").
const DefaultChartsURL = "https://rss.applemarketingtools.com/api/v2/%s/podcasts/top/100/%s.json"

// Config represents the complete podsearch configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Rankings  RankingsConfig  `yaml:"rankings" json:"rankings"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// RateLimit is requests per second per client IP. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`

	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
}

// IndexConfig selects and configures the search index backend.
type IndexConfig struct {
	// Backend is "elastic" (remote _search API) or "local" (bleve + hnsw).
	Backend string `yaml:"backend" json:"backend"`

	URL      string        `yaml:"url" json:"url"`
	Username string        `yaml:"username" json:"username"`
	Password string        `yaml:"password" json:"-"`
	APIKey   string        `yaml:"api_key" json:"-"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`

	ShowsIndex    string `yaml:"shows_index" json:"shows_index"`
	EpisodesIndex string `yaml:"episodes_index" json:"episodes_index"`
	VectorField   string `yaml:"vector_field" json:"vector_field"`

	// LocalPath is the on-disk directory of the local backend. Empty keeps
	// the local indexes in memory.
	LocalPath string `yaml:"local_path" json:"local_path"`

	BreakerFailures int           `yaml:"breaker_failures" json:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset" json:"breaker_reset"`
}

// SearchConfig configures query dispatch and fusion.
type SearchConfig struct {
	// RRFConstant is the RRF smoothing parameter (k). Default: 60.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// Window is the candidate count fetched per list for vector and hybrid queries.
	Window int `yaml:"window" json:"window"`

	// DefaultMode applies when a request names no mode.
	DefaultMode string `yaml:"default_mode" json:"default_mode"`

	// FallbackWarning reports a degraded vector/hybrid request as
	// partial_success instead of a plain ok.
	FallbackWarning bool `yaml:"fallback_warning" json:"fallback_warning"`
}

// EmbeddingConfig configures the query embedding provider.
type EmbeddingConfig struct {
	// Provider is "remote", "openai", "static" or "none".
	Provider string `yaml:"provider" json:"provider"`
	// URL is the remote embedding service.
	URL string `yaml:"url" json:"url"`
	// BaseURL overrides the OpenAI API endpoint for compatible servers.
	BaseURL    string        `yaml:"base_url" json:"base_url,omitempty"`
	Model      string        `yaml:"model" json:"model"`
	APIKey     string        `yaml:"api_key" json:"-"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size"`
}

// RankingsConfig configures the charts feed and its cache.
type RankingsConfig struct {
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
	ChartsURL     string        `yaml:"charts_url" json:"charts_url"`
	Regions       []string      `yaml:"regions" json:"regions"`
	DefaultRegion string        `yaml:"default_region" json:"default_region"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`

	BreakerFailures int           `yaml:"breaker_failures" json:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset" json:"breaker_reset"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	Format    string `yaml:"format" json:"format"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
			CORSOrigins:     []string{"*"},
		},
		Index: IndexConfig{
			Backend:         "elastic",
			URL:             "http://localhost:9200",
			Timeout:         10 * time.Second,
			ShowsIndex:      "shows",
			EpisodesIndex:   "episodes",
			VectorField:     "embedding",
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
		},
		Search: SearchConfig{
			RRFConstant: 60,
			Window:      100,
			DefaultMode: "lexical",
		},
		Embedding: EmbeddingConfig{
			Provider:   "static",
			URL:        "http://localhost:8081",
			Model:      "text-embedding-3-small",
			Dimensions: 384,
			Timeout:    5 * time.Second,
			CacheSize:  1000,
		},
		Rankings: RankingsConfig{
			TTL:             time.Hour,
			ChartsURL:       DefaultChartsURL,
			Regions:         []string{"tw", "us"},
			DefaultRegion:   "tw",
			Timeout:         30 * time.Second,
			MaxRetries:      1,
			BreakerFailures: 3,
			BreakerReset:    time.Minute,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// UserConfigPath returns ~/.config/podsearch/config.yaml, honouring XDG_CONFIG_HOME.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "podsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "podsearch", "config.yaml")
}

// Load builds the configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/podsearch/config.yaml)
//  3. path, or ./podsearch.yaml when path is empty
//  4. Environment variables (PODSEARCH_*)
//
// An explicit path that does not exist is an error; the implicit files are optional.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if user := UserConfigPath(); user != "" && fileExists(user) {
		if err := cfg.loadYAML(user); err != nil {
			return nil, err
		}
	}

	switch {
	case path != "":
		if !fileExists(path) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	case fileExists(DefaultFileName):
		if err := cfg.loadYAML(DefaultFileName); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML decodes path over the current values, so keys absent from the
// file keep whatever an earlier layer set.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies PODSEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		"PODSEARCH_ADDR":               &c.Server.Addr,
		"PODSEARCH_INDEX_BACKEND":      &c.Index.Backend,
		"PODSEARCH_INDEX_URL":          &c.Index.URL,
		"PODSEARCH_INDEX_USERNAME":     &c.Index.Username,
		"PODSEARCH_INDEX_PASSWORD":     &c.Index.Password,
		"PODSEARCH_INDEX_API_KEY":      &c.Index.APIKey,
		"PODSEARCH_INDEX_PATH":         &c.Index.LocalPath,
		"PODSEARCH_SEARCH_MODE":        &c.Search.DefaultMode,
		"PODSEARCH_EMBEDDING_PROVIDER": &c.Embedding.Provider,
		"PODSEARCH_EMBEDDING_URL":      &c.Embedding.URL,
		"PODSEARCH_EMBEDDING_MODEL":    &c.Embedding.Model,
		"PODSEARCH_EMBEDDING_API_KEY":  &c.Embedding.APIKey,
		"PODSEARCH_CHARTS_URL":         &c.Rankings.ChartsURL,
		"PODSEARCH_LOG_LEVEL":          &c.Logging.Level,
		"PODSEARCH_LOG_FORMAT":         &c.Logging.Format,
		"PODSEARCH_LOG_FILE":           &c.Logging.File,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PODSEARCH_RRF_CONSTANT":         &c.Search.RRFConstant,
		"PODSEARCH_SEARCH_WINDOW":        &c.Search.Window,
		"PODSEARCH_EMBEDDING_DIMENSIONS": &c.Embedding.Dimensions,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("PODSEARCH_FALLBACK_WARNING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PODSEARCH_FALLBACK_WARNING: %w", err)
		}
		c.Search.FallbackWarning = b
	}
	if v := os.Getenv("PODSEARCH_RANKINGS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PODSEARCH_RANKINGS_TTL: %w", err)
		}
		c.Rankings.TTL = d
	}
	if v := os.Getenv("PODSEARCH_REGIONS"); v != "" {
		c.Rankings.Regions = splitList(v)
	}
	// The OpenAI SDK convention, used when nothing podsearch-specific is set.
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case "elastic":
		if c.Index.URL == "" {
			return fmt.Errorf("index.url is required for the elastic backend")
		}
	case "local":
	default:
		return fmt.Errorf("index.backend must be 'elastic' or 'local', got %q", c.Index.Backend)
	}
	if c.Index.ShowsIndex == "" || c.Index.EpisodesIndex == "" {
		return fmt.Errorf("index.shows_index and index.episodes_index are required")
	}

	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.Window <= 0 {
		return fmt.Errorf("search.window must be positive, got %d", c.Search.Window)
	}
	switch strings.ToLower(c.Search.DefaultMode) {
	case "lexical", "vector", "hybrid", "bm25", "knn":
	default:
		return fmt.Errorf("search.default_mode must be 'lexical', 'vector' or 'hybrid', got %q", c.Search.DefaultMode)
	}

	switch c.Embedding.Provider {
	case "remote", "openai", "static", "none":
	default:
		return fmt.Errorf("embedding.provider must be 'remote', 'openai', 'static' or 'none', got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}

	if c.Rankings.TTL <= 0 {
		return fmt.Errorf("rankings.ttl must be positive, got %s", c.Rankings.TTL)
	}
	if strings.Count(c.Rankings.ChartsURL, "%s") != 2 {
		return fmt.Errorf("rankings.charts_url must contain two %%s verbs (region, kind), got %q", c.Rankings.ChartsURL)
	}
	if len(c.Rankings.Regions) == 0 {
		return fmt.Errorf("rankings.regions must not be empty")
	}
	if !slices.Contains(c.Rankings.Regions, c.Rankings.DefaultRegion) {
		return fmt.Errorf("rankings.default_region %q is not in rankings.regions", c.Rankings.DefaultRegion)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// LoggingSetup converts the logging section to a logging.Config.
func (c *Config) LoggingSetup(stderr bool) logging.Config {
	return logging.Config{
		Level:         c.Logging.Level,
		Format:        c.Logging.Format,
		FilePath:      c.Logging.File,
		MaxSizeMB:     c.Logging.MaxSizeMB,
		MaxFiles:      c.Logging.MaxFiles,
		WriteToStderr: stderr,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
