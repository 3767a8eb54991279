package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/podsearch/internal/embed"
	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/search"
	"github.com/Aman-CERP/podsearch/internal/telemetry"
	"github.com/Aman-CERP/podsearch/pkg/version"
)

// ServerName is the implementation name announced to clients.
const ServerName = "podsearch"

// Searcher runs episode and show searches.
type Searcher interface {
	SearchEpisodes(ctx context.Context, req search.EpisodeRequest) (*search.EpisodeEnvelope, error)
	SearchShows(ctx context.Context, req search.ShowRequest) (*search.ShowEnvelope, error)
}

// Rankings serves chart rankings.
type Rankings interface {
	Get(ctx context.Context, req rankings.Request) (*rankings.Result, error)
}

// Server is the MCP server for podsearch. It exposes search and rankings
// as tools to AI clients.
type Server struct {
	mcp      *mcp.Server
	search   Searcher
	rankings Rankings
	gate     *embed.Gate
	queries  *telemetry.QueryMetrics
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGate reports the embedding gate through search_status.
func WithGate(g *embed.Gate) Option {
	return func(s *Server) { s.gate = g }
}

// WithQueryMetrics exposes query statistics as a resource.
func WithQueryMetrics(q *telemetry.QueryMetrics) Option {
	return func(s *Server) { s.queries = q }
}

// NewServer creates a new MCP server.
func NewServer(searcher Searcher, ranks Rankings, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if ranks == nil {
		return nil, errors.New("rankings service is required")
	}

	s := &Server{
		search:   searcher,
		rankings: ranks,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: version.Version},
		nil, // capabilities are inferred from registered tools/resources
	)
	s.registerTools()
	if s.queries != nil {
		s.registerQueryMetricsResource()
	}
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "search_episodes",
		Description: "Search podcast episodes. Lexical mode matches keywords in titles and descriptions; " +
			"vector mode matches by meaning; hybrid fuses both with reciprocal rank fusion. " +
			"Vector and hybrid fall back to lexical when the embedding service is down.",
	}, s.searchEpisodesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_shows",
		Description: "Search podcast shows by keyword in their title, publisher and description.",
	}, s.searchShowsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_rankings",
		Description: "Get the current Apple Podcasts top chart for a region, for shows or episodes. Served from a cache refreshed hourly.",
	}, s.getRankingsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_status",
		Description: "Report whether vector search is available and how many searches fell back to lexical.",
	}, s.searchStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 4))
}

func (s *Server) searchEpisodesHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchEpisodesInput) (
	*mcp.CallToolResult,
	EpisodesOutput,
	error,
) {
	start := time.Now()
	req, err := search.NewEpisodeRequest(in.Query, in.Page, in.Size, in.Sort, in.Mode, in.Languages...)
	if err != nil {
		return nil, EpisodesOutput{}, MapError(err)
	}
	env, err := s.search.SearchEpisodes(ctx, req)
	if err != nil {
		s.logToolError("search_episodes", start, err)
		return nil, EpisodesOutput{}, MapError(err)
	}

	out := EpisodesOutput{
		Status:  string(env.Status),
		Warning: env.Warning,
		Mode:    string(req.Mode),
		Items:   []search.EpisodeItem{},
	}
	if env.Data != nil {
		out.Page, out.Size, out.Total = env.Data.Page, env.Data.Size, env.Data.Total
		out.Items = episodeItems(env.Data.Items)
	}
	s.logToolDone("search_episodes", start, len(out.Items))
	return textResult(FormatEpisodes(in.Query, out)), out, nil
}

func (s *Server) searchShowsHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchShowsInput) (
	*mcp.CallToolResult,
	ShowsOutput,
	error,
) {
	start := time.Now()
	env, err := s.search.SearchShows(ctx, search.ShowRequest{
		Query:     in.Query,
		Page:      in.Page,
		Size:      in.Size,
		Languages: in.Languages,
	})
	if err != nil {
		s.logToolError("search_shows", start, err)
		return nil, ShowsOutput{}, MapError(err)
	}

	out := ShowsOutput{Status: string(env.Status), Warning: env.Warning, Items: []search.ShowItem{}}
	if env.Data != nil {
		out.Page, out.Size, out.Total = env.Data.Page, env.Data.Size, env.Data.Total
		out.Items = showItems(env.Data.Items)
	}
	s.logToolDone("search_shows", start, len(out.Items))
	return textResult(FormatShows(in.Query, out)), out, nil
}

func (s *Server) getRankingsHandler(ctx context.Context, _ *mcp.CallToolRequest, in GetRankingsInput) (
	*mcp.CallToolResult,
	RankingsOutput,
	error,
) {
	start := time.Now()
	res, err := s.rankings.Get(ctx, rankings.Request{Country: in.Country, Type: in.Type, Limit: in.Limit})
	if err != nil {
		s.logToolError("get_rankings", start, err)
		return nil, RankingsOutput{}, MapError(err)
	}

	out := RankingsOutput{
		Region:    res.Region,
		Type:      string(res.Type),
		UpdatedAt: res.UpdatedAt.UTC().Format(time.RFC3339),
		Items:     rankingItems(res.Items),
	}
	s.logToolDone("get_rankings", start, len(out.Items))
	return textResult(FormatRankings(out)), out, nil
}

func (s *Server) searchStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ SearchStatusInput) (
	*mcp.CallToolResult,
	SearchStatusOutput,
	error,
) {
	out := SearchStatusOutput{VectorSearch: "lexical fallback"}
	if s.gate.Available() {
		out.VectorSearch = "available"
	}
	if e := s.gate.Embedder(); e != nil {
		out.Embedder = e.ModelName()
		out.Dimensions = e.Dimensions()
	}
	if s.queries != nil {
		snap := s.queries.Snapshot()
		out.Queries = snap.TotalQueries
		out.Fallbacks = snap.FallbackCount
	}
	return nil, out, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func (s *Server) logToolDone(tool string, start time.Time, n int) {
	s.logger.Info("mcp_tool_completed",
		slog.String("tool", tool),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", n))
}

func (s *Server) logToolError(tool string, start time.Time, err error) {
	s.logger.Warn("mcp_tool_failed",
		slog.String("tool", tool),
		slog.Duration("duration", time.Since(start)),
		slog.String("error", err.Error()))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
