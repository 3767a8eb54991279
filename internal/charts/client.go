package charts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
)

// DefaultURLTemplate takes the region and the feed name.
const DefaultURLTemplate = "https://rss.applemarketingtools.com/api/v2/%s/podcasts/top/100/%s.json"

// DefaultTimeout bounds one chart request.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a chart response is read.
const maxBody = 8 << 20

// ErrUnavailable matches every error returned by Fetch when the chart
// could not be obtained.
var ErrUnavailable error = &perrors.PodError{Code: perrors.ErrCodeChartsUnavailable}

// Client fetches charts over HTTP behind a circuit breaker and a retry
// policy.
type Client struct {
	urlTemplate string
	http        *http.Client
	breaker     *perrors.CircuitBreaker
	retry       perrors.RetryConfig
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithURLTemplate overrides DefaultURLTemplate. The template must contain
// two %s verbs: region, then feed name.
func WithURLTemplate(tmpl string) Option {
	return func(c *Client) {
		if tmpl != "" {
			c.urlTemplate = tmpl
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithBreaker replaces the circuit breaker.
func WithBreaker(cb *perrors.CircuitBreaker) Option {
	return func(c *Client) {
		if cb != nil {
			c.breaker = cb
		}
	}
}

// WithRetry replaces the retry policy. Only transient failures are retried
// regardless of cfg.ShouldRetry.
func WithRetry(cfg perrors.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a chart client.
func NewClient(opts ...Option) *Client {
	retry := perrors.DefaultRetryConfig()
	retry.MaxRetries = 1
	c := &Client{
		urlTemplate: DefaultURLTemplate,
		http:        &http.Client{Timeout: DefaultTimeout},
		breaker: perrors.NewCircuitBreaker("charts",
			perrors.WithMaxFailures(3),
			perrors.WithResetTimeout(time.Minute)),
		retry:  retry,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.ShouldRetry = transient
	return c
}

// Breaker exposes the client's circuit breaker for health reporting.
func (c *Client) Breaker() *perrors.CircuitBreaker { return c.breaker }

// URL returns the chart URL for region and t.
func (c *Client) URL(region string, t Type) string {
	return fmt.Sprintf(c.urlTemplate, strings.ToLower(region), t.feedName())
}

// Fetch downloads and decodes a chart. Every failure, including an open
// circuit and an undecodable body, matches ErrUnavailable.
func (c *Client) Fetch(ctx context.Context, region string, t Type) (*Feed, error) {
	url := c.URL(region, t)
	start := time.Now()

	feed, err := perrors.Execute(c.breaker, func() (*Feed, error) {
		feed, err := perrors.RetryWithResult(ctx, c.retry, func() (*Feed, error) {
			return c.fetchOnce(ctx, url)
		})
		if err != nil && ctx.Err() != nil {
			// The caller gave up; the upstream may be fine.
			return nil, perrors.Uncounted(err)
		}
		return feed, err
	})
	if err != nil {
		c.logger.Warn("charts_fetch_failed",
			slog.String("region", region),
			slog.String("type", string(t)),
			slog.String("breaker", c.breaker.State().String()),
			slog.String("error", err.Error()))
		return nil, perrors.UnavailableError(perrors.ErrCodeChartsUnavailable,
			fmt.Sprintf("%s chart for %s unavailable", t, region), err)
	}

	c.logger.Info("charts_fetched",
		slog.String("region", region),
		slog.String("type", string(t)),
		slog.Int("entries", len(feed.Results)),
		slog.Duration("duration", time.Since(start)))
	return feed, nil
}

// statusError is a non-200 chart response.
type statusError struct {
	code int
	body string
}

func (s *statusError) Error() string {
	return fmt.Sprintf("charts returned status %d: %s", s.code, s.body)
}

func (c *Client) fetchOnce(ctx context.Context, url string) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(snippet)}
	}
	return Decode(body)
}

// transient reports whether err is worth another attempt: network errors,
// timeouts, 429 and 5xx responses.
func transient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded)
}
