// Package search executes podcast and episode searches against the index.
// Episode searches run in lexical, vector or hybrid mode; hybrid results are
// merged with Reciprocal Rank Fusion.
package search

import (
	"fmt"
	"slices"
	"strings"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/query"
)

// Mode is an episode retrieval strategy.
type Mode string

const (
	ModeLexical Mode = "lexical"
	ModeVector  Mode = "vector"
	ModeHybrid  Mode = "hybrid"
)

// ParseMode accepts lexical, vector and hybrid in any case, plus the
// aliases bm25 and knn. An empty string yields def.
func ParseMode(s string, def Mode) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		if def == "" {
			return ModeLexical, nil
		}
		return def, nil
	case "lexical", "bm25":
		return ModeLexical, nil
	case "vector", "knn":
		return ModeVector, nil
	case "hybrid":
		return ModeHybrid, nil
	default:
		return "", fmt.Errorf("unknown search mode %q: want lexical, vector or hybrid", s)
	}
}

// Page size limits shared by every search surface.
const (
	MaxPageSize        = 100
	DefaultEpisodeSize = 20
	DefaultShowSize    = 10
)

// EpisodeRequest is a validated-on-use episode search.
type EpisodeRequest struct {
	Query     string
	Page      int
	Size      int
	Sort      query.Sort
	Languages []string
	// Mode is empty for the configured default.
	Mode Mode
}

// ShowRequest is a show search. Shows are searched lexically.
type ShowRequest struct {
	Query     string
	Page      int
	Size      int
	Languages []string
}

// NewEpisodeRequest builds an episode request from caller-supplied strings.
// Unknown sort or mode values are reported as validation errors; the
// remaining checks happen in SearchEpisodes.
func NewEpisodeRequest(q string, page, size int, sort, mode string, languages ...string) (EpisodeRequest, error) {
	s, err := query.ParseSort(sort)
	if err != nil {
		return EpisodeRequest{}, perrors.ValidationError("sort", err.Error())
	}
	var m Mode
	if strings.TrimSpace(mode) != "" {
		if m, err = ParseMode(mode, ""); err != nil {
			return EpisodeRequest{}, perrors.ValidationError("mode", err.Error())
		}
	}
	return EpisodeRequest{
		Query:     q,
		Page:      page,
		Size:      size,
		Sort:      s,
		Languages: languages,
		Mode:      m,
	}, nil
}

// validatePage fills defaults and checks the shared paging rules.
func validatePage(text string, page, size, defSize int) (string, int, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, 0, perrors.New(perrors.ErrCodeQueryEmpty, "q must not be empty", nil).
			WithDetail("parameter", "q")
	}
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return "", 0, 0, perrors.ValidationError("page", "page must be >= 1")
	}
	if size == 0 {
		size = defSize
	}
	if size < 1 || size > MaxPageSize {
		return "", 0, 0, perrors.ValidationError("size", fmt.Sprintf("size must be between 1 and %d", MaxPageSize))
	}
	return text, page, size, nil
}

// normalizeLanguages lowercases, trims and de-duplicates language codes.
func normalizeLanguages(langs []string) []string {
	var out []string
	for _, l := range langs {
		for part := range strings.SplitSeq(l, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" && !slices.Contains(out, part) {
				out = append(out, part)
			}
		}
	}
	return out
}
