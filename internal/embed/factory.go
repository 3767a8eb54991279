package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderRemote calls an HTTP embedding service.
	ProviderRemote ProviderType = "remote"

	// ProviderOpenAI calls an OpenAI-compatible embeddings API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderStatic produces deterministic vectors without a model.
	ProviderStatic ProviderType = "static"

	// ProviderNone disables embeddings; vector search falls back to lexical.
	ProviderNone ProviderType = "none"
)

// Options selects and configures a provider.
type Options struct {
	Provider   ProviderType
	URL        string
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
	CacheSize  int
	Logger     *slog.Logger
}

// NewEmbedder creates the configured provider wrapped in a query cache.
// ProviderNone returns a nil Embedder and no error.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		e   Embedder
		err error
	)
	switch ProviderType(strings.ToLower(string(opts.Provider))) {
	case ProviderNone:
		logger.Info("embedding_disabled")
		return nil, nil
	case ProviderRemote:
		e, err = NewRemoteEmbedder(ctx, RemoteConfig{
			URL:        opts.URL,
			Timeout:    opts.Timeout,
			Dimensions: opts.Dimensions,
		}, logger)
	case ProviderOpenAI:
		e, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     opts.APIKey,
			BaseURL:    opts.BaseURL,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
			Timeout:    opts.Timeout,
		})
	case ProviderStatic, "":
		logger.Warn("static_embedder_in_use", slog.String("note", "vectors are not semantically meaningful"))
		e = NewStaticEmbedder(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(e, opts.CacheSize), nil
}
