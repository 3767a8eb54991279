package rankings

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Aman-CERP/podsearch/internal/charts"
	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/response"
	"github.com/Aman-CERP/podsearch/internal/telemetry"
)

// Limits for the number of returned items.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// DefaultRegions are the storefronts served when none are configured.
var DefaultRegions = []string{"tw", "us"}

// Source fetches a chart. Failures are treated as unavailability.
type Source interface {
	Fetch(ctx context.Context, region string, t charts.Type) (*charts.Feed, error)
}

// Item is one ranked show or episode. ShowID carries a namespaced
// identifier: show:apple:<id> for podcasts, episode:apple:<id> for episodes.
type Item struct {
	Rank         int               `json:"rank"`
	ShowID       string            `json:"show_id,omitempty"`
	Title        string            `json:"title"`
	Publisher    string            `json:"publisher,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	Language     string            `json:"language,omitempty"`
	EpisodeCount *int              `json:"episode_count,omitempty"`
	Genres       []string          `json:"genres,omitempty"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// Request is a rankings query as received from a caller.
type Request struct {
	Country string
	Type    string
	Limit   int
}

// Served says where a result came from.
type Served string

const (
	ServedCache Served = "cache"
	ServedFetch Served = "fetch"
	ServedStale Served = "stale"
	ServedEmpty Served = "empty"
)

// Result is the outcome of Get.
type Result struct {
	Region    string
	Type      charts.Type
	Items     []Item
	UpdatedAt time.Time
	Served    Served
}

// RankingsEnvelope is the response of a rankings request.
type RankingsEnvelope = response.Envelope[response.RankingsData[Item]]

// Envelope wraps r for the wire. Stale and empty results are ok.
func (r *Result) Envelope() *RankingsEnvelope {
	return response.OK(response.RankingsData[Item]{
		Region:    r.Region,
		Type:      string(r.Type),
		Items:     r.Items,
		UpdatedAt: r.UpdatedAt,
	})
}

// Service aggregates chart rankings.
type Service struct {
	source        Source
	cache         *Cache
	regions       []string
	defaultRegion string
	now           func() time.Time
	logger        *slog.Logger
	metrics       *telemetry.Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRegions restricts the accepted regions. The first is the default
// unless WithDefaultRegion says otherwise.
func WithRegions(regions ...string) ServiceOption {
	return func(s *Service) {
		var rs []string
		for _, r := range regions {
			if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
				rs = append(rs, r)
			}
		}
		if len(rs) > 0 {
			s.regions = rs
			s.defaultRegion = rs[0]
		}
	}
}

// WithDefaultRegion sets the region used when a request names none.
func WithDefaultRegion(region string) ServiceOption {
	return func(s *Service) {
		if region != "" {
			s.defaultRegion = strings.ToLower(region)
		}
	}
}

// WithServiceClock replaces time.Now for response timestamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceMetrics sets the Prometheus collectors.
func WithServiceMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a rankings service.
func NewService(source Source, cache *Cache, opts ...ServiceOption) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("rankings: source is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("rankings: cache is required")
	}
	s := &Service{
		source:        source,
		cache:         cache,
		regions:       DefaultRegions,
		defaultRegion: DefaultRegions[0],
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Regions returns the accepted regions.
func (s *Service) Regions() []string { return slices.Clone(s.regions) }

// Validate normalizes req and returns the region, type and limit it names.
func (s *Service) Validate(req Request) (string, charts.Type, int, error) {
	region := strings.ToLower(strings.TrimSpace(req.Country))
	if region == "" {
		region = s.defaultRegion
	}
	if !slices.Contains(s.regions, region) {
		return "", "", 0, perrors.ValidationError("country",
			fmt.Sprintf("country must be one of %s", strings.Join(s.regions, ", ")))
	}
	t, err := charts.ParseType(req.Type)
	if err != nil {
		return "", "", 0, perrors.ValidationError("type", err.Error())
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return "", "", 0, perrors.ValidationError("limit", fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	return region, t, limit, nil
}

// Get returns up to limit ranked items. A fresh cache entry is served as
// is; otherwise the chart is fetched. When the fetch fails the last cached
// entry is served with its original timestamp, and with no cached entry
// the result is empty. Feed unavailability is never returned as an error.
func (s *Service) Get(ctx context.Context, req Request) (*Result, error) {
	region, t, limit, err := s.Validate(req)
	if err != nil {
		return nil, err
	}

	// Snapshot before Get, which evicts an expired entry.
	stale, hasStale := s.cache.GetStale(region, t)

	if e, ok := s.cache.fresh(Key{Region: region, Type: t}); ok {
		return s.result(region, t, e.Items, limit, e.CachedAt, ServedCache), nil
	}

	feed, err := s.source.Fetch(ctx, region, t)
	if err == nil {
		items := Parse(feed, t)
		at := s.cache.Put(region, t, items)
		s.logger.Info("rankings_refreshed",
			slog.String("region", region),
			slog.String("type", string(t)),
			slog.Int("items", len(items)))
		return s.result(region, t, items, limit, at, ServedFetch), nil
	}

	s.metrics.UpstreamError("charts")
	if hasStale {
		s.logger.Warn("rankings_stale_served",
			slog.String("region", region),
			slog.String("type", string(t)),
			slog.Time("cached_at", stale.CachedAt),
			slog.String("error", err.Error()))
		return s.result(region, t, stale.Items, limit, stale.CachedAt, ServedStale), nil
	}

	s.logger.Warn("rankings_unavailable",
		slog.String("region", region),
		slog.String("type", string(t)),
		slog.String("error", err.Error()))
	return s.result(region, t, []Item{}, limit, s.now(), ServedEmpty), nil
}

func (s *Service) result(region string, t charts.Type, items []Item, limit int, at time.Time, served Served) *Result {
	s.metrics.RankingsServed(string(served))
	if len(items) > limit {
		items = items[:limit]
	}
	return &Result{
		Region:    region,
		Type:      t,
		Items:     slices.Clone(items),
		UpdatedAt: at,
		Served:    served,
	}
}

// Warm fetches every configured region and type into the cache. Failures
// are logged and skipped.
func (s *Service) Warm(ctx context.Context) int {
	var warmed int
	for _, region := range s.regions {
		for _, t := range []charts.Type{charts.TypePodcast, charts.TypeEpisode} {
			feed, err := s.source.Fetch(ctx, region, t)
			if err != nil {
				s.logger.Warn("rankings_warm_failed",
					slog.String("region", region),
					slog.String("type", string(t)),
					slog.String("error", err.Error()))
				continue
			}
			s.cache.Put(region, t, Parse(feed, t))
			warmed++
		}
	}
	return warmed
}
