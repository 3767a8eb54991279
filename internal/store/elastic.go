package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/query"
)

// ElasticConfig configures the Elasticsearch-compatible backend.
type ElasticConfig struct {
	URL      string
	Username string
	Password string
	APIKey   string
	Timeout  time.Duration

	// VectorField is excluded from returned sources.
	VectorField string
}

// Elastic queries an Elasticsearch (or OpenSearch) cluster over its
// _search REST API.
type Elastic struct {
	base    *url.URL
	cfg     ElasticConfig
	client  *http.Client
	breaker *perrors.CircuitBreaker
	logger  *slog.Logger
}

// ElasticOption configures an Elastic backend.
type ElasticOption func(*Elastic)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ElasticOption {
	return func(e *Elastic) { e.client = c }
}

// WithBreaker sets the circuit breaker guarding requests.
func WithBreaker(cb *perrors.CircuitBreaker) ElasticOption {
	return func(e *Elastic) { e.breaker = cb }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ElasticOption {
	return func(e *Elastic) { e.logger = l }
}

// NewElastic creates a backend for the cluster at cfg.URL.
func NewElastic(cfg ElasticConfig, opts ...ElasticOption) (*Elastic, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid index url %q", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.VectorField == "" {
		cfg.VectorField = VectorField
	}

	e := &Elastic{
		base:    base,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: perrors.NewCircuitBreaker("index"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// esResponse uses pointers so a missing container can be told apart from
// an empty one.
type esResponse struct {
	Hits *struct {
		Total *struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string              `json:"_id"`
			Score     *float64            `json:"_score"`
			Source    json.RawMessage     `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search implements Backend.
func (e *Elastic) Search(ctx context.Context, index string, q *query.Query) (*Result, error) {
	body, err := json.Marshal(RenderDSL(q, e.cfg.VectorField))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	start := time.Now()
	data, err := perrors.Execute(e.breaker, func() ([]byte, error) {
		data, err := e.do(ctx, http.MethodPost, "/"+url.PathEscape(index)+"/_search", body)
		if err != nil && (ctx.Err() != nil || rejected(err)) {
			return nil, perrors.Uncounted(err)
		}
		return data, err
	})
	if err != nil {
		return nil, e.classify(err, index)
	}

	var resp esResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, perrors.ParseError(perrors.ErrCodeParseDocument, "search response is not valid JSON", err).
			WithDetail("index", index)
	}

	e.logger.Debug("index_search",
		slog.String("index", index),
		slog.String("kind", string(q.Kind)),
		slog.Duration("took", time.Since(start)))

	result := &Result{}
	if resp.Hits == nil {
		return result, nil
	}
	if resp.Hits.Total != nil {
		result.Total = int64Ptr(resp.Hits.Total.Value)
	}
	if resp.Hits.Hits == nil {
		return result, nil
	}

	result.Hits = make([]Hit, 0, len(resp.Hits.Hits))
	for i, h := range resp.Hits.Hits {
		hit := Hit{ID: h.ID, Source: h.Source, Highlight: h.Highlight, Rank: i}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// Ping implements Backend by requesting the cluster root.
func (e *Elastic) Ping(ctx context.Context) error {
	_, err := e.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return e.classify(err, "")
	}
	return nil
}

// Close implements Backend.
func (e *Elastic) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// statusError is a non-2xx response.
type statusError struct {
	code int
	body string
}

func (s *statusError) Error() string {
	return fmt.Sprintf("index returned %d: %s", s.code, s.body)
}

func (e *Elastic) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	u := *e.base
	u.Path = strings.TrimRight(u.Path, "/") + path

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case e.cfg.APIKey != "":
		req.Header.Set("Authorization", "ApiKey "+e.cfg.APIKey)
	case e.cfg.Username != "":
		req.SetBasicAuth(e.cfg.Username, e.cfg.Password)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		msg := string(data)
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return nil, &statusError{code: resp.StatusCode, body: msg}
	}
	return data, nil
}

// rejected reports a 4xx answer other than 429: the index is up and
// refused this particular request.
func rejected(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code >= 400 && se.code < 500 && se.code != http.StatusTooManyRequests
}

// classify maps a transport failure onto a PodError.
func (e *Elastic) classify(err error, index string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		err = perrors.New(perrors.ErrCodeUpstreamTimeout, "search index timed out", err)
	case errors.Is(err, context.Canceled):
		err = perrors.New(perrors.ErrCodeUpstreamTimeout, "search index request cancelled", err)
	case rejected(err):
		err = perrors.New(perrors.ErrCodeSearchFailed, "search index rejected the query", err)
	default:
		err = perrors.UnavailableError(perrors.ErrCodeIndexUnavailable, "search index unavailable", err)
	}
	e.logger.Warn("index_request_failed",
		slog.String("index", index),
		slog.String("breaker", e.breaker.State().String()),
		slog.String("error", err.Error()))
	return err
}

// RenderDSL translates q into an Elasticsearch request body.
func RenderDSL(q *query.Query, vectorField string) map[string]any {
	body := map[string]any{
		"_source": map[string]any{"excludes": []string{vectorField}},
	}

	var langFilter map[string]any
	if len(q.Languages) > 0 {
		langFilter = map[string]any{"terms": map[string]any{"language": q.Languages}}
	}

	switch q.Kind {
	case query.KindVector:
		field := q.VectorField
		if field == "" {
			field = vectorField
		}
		knn := map[string]any{
			"field":          field,
			"query_vector":   q.Vector,
			"k":              q.K,
			"num_candidates": q.NumCandidates,
		}
		if langFilter != nil {
			knn["filter"] = langFilter
		}
		body["knn"] = knn
		body["size"] = q.K

	default:
		fields := make([]string, 0, len(q.Fields))
		for _, f := range q.Fields {
			if f.Boost > 0 && f.Boost != 1 {
				fields = append(fields, fmt.Sprintf("%s^%g", f.Name, f.Boost))
			} else {
				fields = append(fields, f.Name)
			}
		}
		boolQuery := map[string]any{
			"must": []any{map[string]any{
				"multi_match": map[string]any{
					"query":  q.Text,
					"fields": fields,
					"type":   "best_fields",
				},
			}},
		}
		if langFilter != nil {
			boolQuery["filter"] = []any{langFilter}
		}
		body["query"] = map[string]any{"bool": boolQuery}
		body["from"] = q.From
		body["size"] = q.Size
		body["track_total_hits"] = true

		if len(q.Highlight) > 0 {
			hl := make(map[string]any, len(q.Highlight))
			for _, f := range q.Highlight {
				hl[f] = map[string]any{}
			}
			body["highlight"] = map[string]any{"fields": hl}
		}
		if q.DateField != "" {
			body["sort"] = []any{
				map[string]any{q.DateField: map[string]any{"order": "desc"}},
				"_score",
			}
		}
	}
	return body
}

var _ Backend = (*Elastic)(nil)
