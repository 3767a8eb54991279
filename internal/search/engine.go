package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/podsearch/internal/embed"
	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/query"
	"github.com/Aman-CERP/podsearch/internal/response"
	"github.com/Aman-CERP/podsearch/internal/store"
	"github.com/Aman-CERP/podsearch/internal/telemetry"
)

// DefaultWindow is the oversized candidate window used by vector and
// hybrid retrieval.
const DefaultWindow = 100

// fallbackWarning is attached when fallback warnings are enabled.
const fallbackWarning = "embedding service unavailable; lexical results served"

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Index executes query documents against a named collection.
type Index interface {
	Search(ctx context.Context, index string, q *query.Query) (*store.Result, error)
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	EpisodesIndex   string
	ShowsIndex      string
	Window          int
	RRFConstant     int
	DefaultMode     Mode
	FallbackWarning bool
}

// DefaultEngineConfig returns the stock configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		EpisodesIndex: "episodes",
		ShowsIndex:    "shows",
		Window:        DefaultWindow,
		RRFConstant:   DefaultRRFConstant,
		DefaultMode:   ModeLexical,
	}
}

// Engine dispatches searches to the index in the requested mode.
type Engine struct {
	index    Index
	gate     *embed.Gate
	builder  *query.Builder
	fusion   *RRFFusion
	episodes *Mapper[EpisodeItem]
	shows    *Mapper[ShowItem]
	config   EngineConfig
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	queries  *telemetry.QueryMetrics
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithQueryMetrics sets the in-memory query pattern collector.
func WithQueryMetrics(q *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.queries = q
	}
}

// WithVectorField overrides the dense-vector field name.
func WithVectorField(name string) EngineOption {
	return func(e *Engine) {
		e.builder = query.NewBuilder(query.WithVectorField(name), query.WithNumCandidates(e.config.Window))
	}
}

// NewEngine creates an engine. gate may wrap a nil embedder, in which case
// every vector or hybrid request falls back to lexical.
func NewEngine(index Index, gate *embed.Gate, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: index is required", ErrNilDependency)
	}
	if gate == nil {
		return nil, fmt.Errorf("%w: embedding gate is required", ErrNilDependency)
	}
	def := DefaultEngineConfig()
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.EpisodesIndex == "" {
		config.EpisodesIndex = def.EpisodesIndex
	}
	if config.ShowsIndex == "" {
		config.ShowsIndex = def.ShowsIndex
	}
	if config.DefaultMode == "" {
		config.DefaultMode = def.DefaultMode
	}

	e := &Engine{
		index:   index,
		gate:    gate,
		builder: query.NewBuilder(query.WithNumCandidates(config.Window)),
		fusion:  NewRRFFusion(config.RRFConstant),
		config:  config,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.episodes = NewEpisodeMapper(e.logger)
	e.shows = NewShowMapper(e.logger)
	return e, nil
}

// EpisodeEnvelope is the response of an episode search.
type EpisodeEnvelope = response.Envelope[response.SearchData[EpisodeItem]]

// ShowEnvelope is the response of a show search.
type ShowEnvelope = response.Envelope[response.SearchData[ShowItem]]

// SearchEpisodes runs an episode search. Vector and hybrid requests fall
// back to lexical when the embedder is unavailable or fails to encode the
// query. Page numbers above one are rejected for vector and hybrid modes
// because their windows always start at offset zero.
func (e *Engine) SearchEpisodes(ctx context.Context, req EpisodeRequest) (*EpisodeEnvelope, error) {
	start := time.Now()

	text, page, size, err := validatePage(req.Query, req.Page, req.Size, DefaultEpisodeSize)
	if err != nil {
		return nil, err
	}
	requested := req.Mode
	if requested == "" {
		requested = e.config.DefaultMode
	}
	if requested != ModeLexical && page > 1 {
		return nil, perrors.New(perrors.ErrCodePaginationUnsupported,
			fmt.Sprintf("%s search supports page 1 only", requested), nil).
			WithDetail("parameter", "page").
			WithSuggestion("use mode=lexical to page through results")
	}

	params := query.Params{
		Target:    query.TargetEpisodes,
		Text:      text,
		From:      (page - 1) * size,
		Size:      size,
		Languages: normalizeLanguages(req.Languages),
		Sort:      req.Sort,
	}

	mode := requested
	var vec []float32
	if mode != ModeLexical {
		vec, err = e.encode(ctx, text)
		if err != nil && ctx.Err() != nil {
			return nil, perrors.New(perrors.ErrCodeUpstreamTimeout, "search cancelled", ctx.Err())
		}
		if err != nil {
			e.logger.Warn("search_mode_fallback",
				slog.String("requested", string(requested)),
				slog.String("reason", err.Error()))
			e.metrics.SearchFallback(string(requested))
			mode = ModeLexical
		}
	}

	var env *EpisodeEnvelope
	switch mode {
	case ModeVector:
		env, err = e.vectorEpisodes(ctx, params, vec, page, size)
	case ModeHybrid:
		env, err = e.hybridEpisodes(ctx, params, vec, page, size)
	default:
		env, err = e.lexicalEpisodes(ctx, params, page, size)
	}

	fellBack := mode != requested
	if err == nil && fellBack && e.config.FallbackWarning {
		env.AddWarning(fallbackWarning)
	}
	status, total := summarize(env, err)
	e.record(string(query.TargetEpisodes), text, mode, fellBack, status, total, start)
	return env, err
}

// SearchShows runs a lexical show search.
func (e *Engine) SearchShows(ctx context.Context, req ShowRequest) (*ShowEnvelope, error) {
	start := time.Now()

	text, page, size, err := validatePage(req.Query, req.Page, req.Size, DefaultShowSize)
	if err != nil {
		return nil, err
	}
	q := e.builder.Lexical(query.Params{
		Target:    query.TargetShows,
		Text:      text,
		From:      (page - 1) * size,
		Size:      size,
		Languages: normalizeLanguages(req.Languages),
	})

	var env *ShowEnvelope
	result, err := e.index.Search(ctx, e.config.ShowsIndex, q)
	if err == nil {
		env, err = e.shows.Map(result, page, size)
		if err == nil {
			e.countSkipped(string(query.TargetShows), result.Hits, len(env.Data.Items))
		}
	}
	status, total := summarize(env, err)
	e.record(string(query.TargetShows), text, ModeLexical, false, status, total, start)
	return env, err
}

// encode returns the query vector or the reason vector search cannot run.
func (e *Engine) encode(ctx context.Context, text string) ([]float32, error) {
	if !e.gate.Available() {
		return nil, perrors.New(perrors.ErrCodeEmbeddingUnavailable, "embedding service unavailable", nil)
	}
	vec, err := e.gate.Embed(ctx, text)
	if err != nil {
		return nil, perrors.UnavailableError(perrors.ErrCodeEmbeddingUnavailable, "query embedding failed", err)
	}
	return vec, nil
}

func (e *Engine) lexicalEpisodes(ctx context.Context, p query.Params, page, size int) (*EpisodeEnvelope, error) {
	result, err := e.index.Search(ctx, e.config.EpisodesIndex, e.builder.Lexical(p))
	if err != nil {
		return nil, err
	}
	env, err := e.episodes.Map(result, page, size)
	if err == nil {
		e.countSkipped(string(query.TargetEpisodes), result.Hits, len(env.Data.Items))
	}
	return env, err
}

func (e *Engine) vectorEpisodes(ctx context.Context, p query.Params, vec []float32, page, size int) (*EpisodeEnvelope, error) {
	p.From = 0
	result, err := e.index.Search(ctx, e.config.EpisodesIndex, e.builder.Vector(p, vec))
	if err != nil {
		return nil, err
	}
	env, err := e.episodes.Map(result, page, size)
	if err == nil {
		e.countSkipped(string(query.TargetEpisodes), result.Hits, len(env.Data.Items))
	}
	return env, err
}

// hybridEpisodes runs lexical and vector retrieval over the full window
// concurrently and fuses the two lists down to one page.
func (e *Engine) hybridEpisodes(ctx context.Context, p query.Params, vec []float32, page, size int) (*EpisodeEnvelope, error) {
	windowed := p
	windowed.From = 0
	windowed.Size = e.config.Window

	var lexical, vector *store.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := e.index.Search(gctx, e.config.EpisodesIndex, e.builder.Lexical(windowed))
		if err != nil {
			return fmt.Errorf("lexical: %w", err)
		}
		lexical = r
		return nil
	})
	g.Go(func() error {
		r, err := e.index.Search(gctx, e.config.EpisodesIndex, e.builder.Vector(windowed, vec))
		if err != nil {
			return fmt.Errorf("vector: %w", err)
		}
		vector = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if lexical.Hits == nil || vector.Hits == nil {
		return nil, perrors.ParseError(perrors.ErrCodeParseMissingHits, "index response has no hits container", nil)
	}

	fused := Hits(e.fusion.Fuse(size, lexical.Hits, vector.Hits))
	total := min(resultTotal(lexical)+resultTotal(vector), int64(2*e.config.Window))

	e.logger.Debug("hybrid_fused",
		slog.Int("lexical_hits", len(lexical.Hits)),
		slog.Int("vector_hits", len(vector.Hits)),
		slog.Int("fused", len(fused)),
		slog.Int64("total", total))

	env, err := e.episodes.MapFused(fused, total, page, size)
	if err == nil {
		e.countSkipped(string(query.TargetEpisodes), fused, len(env.Data.Items))
	}
	return env, err
}

// resultTotal is the index estimate, else the hit count.
func resultTotal(r *store.Result) int64 {
	if r == nil {
		return 0
	}
	if r.Total != nil {
		return *r.Total
	}
	return int64(len(r.Hits))
}

func (e *Engine) countSkipped(target string, hits []store.Hit, kept int) {
	e.metrics.ItemsSkipped(target, len(hits)-kept)
}

// summarize reports the envelope status and total for telemetry.
func summarize[T any](env *response.Envelope[response.SearchData[T]], err error) (string, int64) {
	if err != nil || env == nil || env.Data == nil {
		return string(response.StatusError), 0
	}
	return string(env.Status), env.Data.Total
}

func (e *Engine) record(target, text string, mode Mode, fellBack bool, status string, total int64, start time.Time) {
	elapsed := time.Since(start)
	e.metrics.ObserveSearch(target, string(mode), status, elapsed)
	e.queries.Record(telemetry.QueryEvent{
		Query:       text,
		Target:      target,
		Mode:        string(mode),
		Fallback:    fellBack,
		ResultCount: total,
		Latency:     elapsed,
	})
	e.logger.Debug("search_completed",
		slog.String("target", target),
		slog.String("mode", string(mode)),
		slog.String("status", status),
		slog.Int64("total", total),
		slog.Duration("duration", elapsed))
}
