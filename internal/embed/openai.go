package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	cfg       OpenAIConfig
	available atomic.Bool
	closed    atomic.Bool
}

// NewOpenAIEmbedder creates an embedder. The API key is required.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	e := &OpenAIEmbedder{client: &client, cfg: cfg}
	e.available.Store(true)
	return e, nil
}

// Embed requests a single embedding at the configured dimension.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.cfg.Dimensions), nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(e.cfg.Model),
		Dimensions: openai.Int(int64(e.cfg.Dimensions)),
	})
	if err != nil {
		e.available.Store(false)
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		e.available.Store(false)
		return nil, errors.New("openai embeddings: empty response")
	}
	e.available.Store(true)

	src := resp.Data[0].Embedding
	vec := make([]float32, len(src))
	for i, v := range src {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions returns the requested dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.cfg.Dimensions }

// ModelName returns the configured model.
func (e *OpenAIEmbedder) ModelName() string { return e.cfg.Model }

// Available reports the outcome of the most recent call.
func (e *OpenAIEmbedder) Available(context.Context) bool {
	return !e.closed.Load() && e.available.Load()
}

// Close marks the embedder closed.
func (e *OpenAIEmbedder) Close() error {
	e.closed.Store(true)
	return nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
