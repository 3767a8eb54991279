package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// RemoteConfig configures a RemoteEmbedder.
type RemoteConfig struct {
	// URL is the base URL of the embedding service, e.g. http://localhost:8081.
	URL string

	// Timeout bounds each request. Zero selects DefaultTimeout.
	Timeout time.Duration

	// Dimensions is used until the health probe reports the real value.
	Dimensions int
}

// RemoteEmbedder calls an HTTP embedding service exposing
// POST /embed {"texts": [...]} and GET /health.
type RemoteEmbedder struct {
	cfg       RemoteConfig
	client    *http.Client
	transport *http.Transport
	logger    *slog.Logger

	dims      atomic.Int64
	model     atomic.Value // string
	available atomic.Bool
	closed    atomic.Bool
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// NewRemoteEmbedder creates a remote embedder and probes /health once.
// A failed probe is logged, not returned: the embedder starts unavailable
// and becomes available after its first successful call.
func NewRemoteEmbedder(ctx context.Context, cfg RemoteConfig, logger *slog.Logger) (*RemoteEmbedder, error) {
	if cfg.URL == "" {
		return nil, errors.New("remote embedder: url is required")
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        8,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     30 * time.Second,
	}
	e := &RemoteEmbedder{
		cfg:       cfg,
		client:    &http.Client{Transport: transport},
		transport: transport,
		logger:    logger,
	}
	e.dims.Store(int64(cfg.Dimensions))
	e.model.Store("remote")

	if err := e.Probe(ctx); err != nil {
		logger.Warn("embedding_service_unavailable",
			slog.String("url", cfg.URL),
			slog.String("error", err.Error()))
	}
	return e, nil
}

// Probe calls /health and records the reported model and dimensions.
func (e *RemoteEmbedder) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.URL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.available.Store(false)
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.available.Store(false)
		return fmt.Errorf("health returned status %d", resp.StatusCode)
	}
	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		e.available.Store(false)
		return fmt.Errorf("decode health: %w", err)
	}
	if h.Dimensions > 0 {
		e.dims.Store(int64(h.Dimensions))
	}
	if h.Model != "" {
		e.model.Store(h.Model)
	}
	e.available.Store(true)
	e.logger.Info("embedding_service_connected",
		slog.String("model", e.ModelName()),
		slog.Int("dimensions", e.Dimensions()))
	return nil
}

// Embed posts text to /embed and returns the first embedding.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.Dimensions()), nil
	}

	vec, err := e.doEmbed(ctx, text)
	if err != nil {
		e.available.Store(false)
		return nil, err
	}
	e.available.Store(true)
	return vec, nil
}

func (e *RemoteEmbedder) doEmbed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Texts: []string{text}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, errors.New("embed response has no embeddings")
	}

	vec := make([]float32, len(out.Embeddings[0]))
	for i, v := range out.Embeddings[0] {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions returns the last known dimension.
func (e *RemoteEmbedder) Dimensions() int { return int(e.dims.Load()) }

// ModelName returns the model reported by the service.
func (e *RemoteEmbedder) ModelName() string { return e.model.Load().(string) }

// Available reports the outcome of the most recent probe or call.
func (e *RemoteEmbedder) Available(context.Context) bool {
	return !e.closed.Load() && e.available.Load()
}

// Close releases idle connections.
func (e *RemoteEmbedder) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.transport.CloseIdleConnections()
	return nil
}

var _ Embedder = (*RemoteEmbedder)(nil)
