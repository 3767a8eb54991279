package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/response"
	"github.com/Aman-CERP/podsearch/internal/search"
)

// GET /api/search/episodes?q=&page=&size=&sort=&lang=&mode=
func (s *Server) searchEpisodes(c echo.Context) error {
	page, err := intParam(c, "page")
	if err != nil {
		return err
	}
	size, err := intParam(c, "size")
	if err != nil {
		return err
	}
	req, err := search.NewEpisodeRequest(c.QueryParam("q"), page, size,
		c.QueryParam("sort"), c.QueryParam("mode"), languages(c)...)
	if err != nil {
		return err
	}
	env, err := s.search.SearchEpisodes(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, env)
}

// GET /api/search/shows?q=&page=&size=&lang=
func (s *Server) searchShows(c echo.Context) error {
	page, err := intParam(c, "page")
	if err != nil {
		return err
	}
	size, err := intParam(c, "size")
	if err != nil {
		return err
	}
	env, err := s.search.SearchShows(c.Request().Context(), search.ShowRequest{
		Query:     c.QueryParam("q"),
		Page:      page,
		Size:      size,
		Languages: languages(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, env)
}

func (s *Server) searchStats(c echo.Context) error {
	if s.queries == nil {
		return perrors.New(perrors.ErrCodeNotFound, "query statistics are disabled", nil)
	}
	return c.JSON(http.StatusOK, response.OK(s.queries.Snapshot()))
}

// GET /api/rankings?country=&type=&limit=
func (s *Server) getRankings(c echo.Context) error {
	res, err := s.rankingsResult(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res.Envelope())
}

// GET /api/rankings/feed?country=&type=&limit=&format=rss|atom|json
func (s *Server) rankingsFeed(c echo.Context) error {
	format, err := rankings.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return err
	}
	res, err := s.rankingsResult(c)
	if err != nil {
		return err
	}
	self := fmt.Sprintf("%s://%s%s", c.Scheme(), c.Request().Host, c.Request().RequestURI)
	body, contentType, err := rankings.Render(rankings.BuildFeed(res, self), format)
	if err != nil {
		return perrors.InternalError("failed to render feed", err)
	}
	return c.Blob(http.StatusOK, contentType, []byte(body))
}

func (s *Server) rankingsResult(c echo.Context) (*rankings.Result, error) {
	limit, err := intParam(c, "limit")
	if err != nil {
		return nil, err
	}
	return s.rankings.Get(c.Request().Context(), rankings.Request{
		Country: c.QueryParam("country"),
		Type:    c.QueryParam("type"),
		Limit:   limit,
	})
}

type healthReport struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// GET /health. 503 when a critical dependency fails.
func (s *Server) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	report := healthReport{Status: "ok", Version: s.version, Checks: make(map[string]string, len(s.checks))}
	code := http.StatusOK
	for _, hc := range s.checks {
		if err := hc.Check(ctx); err != nil {
			report.Checks[hc.Name] = err.Error()
			if hc.Critical {
				report.Status = "unhealthy"
				code = http.StatusServiceUnavailable
			} else if report.Status == "ok" {
				report.Status = "degraded"
			}
			continue
		}
		report.Checks[hc.Name] = "ok"
	}
	return c.JSON(code, report)
}

func intParam(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, perrors.ValidationError(name, fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}

// languages accepts repeated or comma separated lang and languages params.
func languages(c echo.Context) []string {
	q := c.QueryParams()
	return append(q["lang"], q["languages"]...)
}
