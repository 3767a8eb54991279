package search

import (
	"fmt"
	"log/slog"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/response"
	"github.com/Aman-CERP/podsearch/internal/store"
)

// DecodeFunc turns one index hit into a response item.
type DecodeFunc[T any] func(store.Hit) (T, error)

// Mapper converts raw index results into response envelopes. Hits that
// fail to decode are dropped and reported in the envelope warning.
type Mapper[T any] struct {
	decode DecodeFunc[T]
	kind   string
	logger *slog.Logger
}

// NewMapper creates a Mapper. kind names the item type in log records.
func NewMapper[T any](kind string, decode DecodeFunc[T], logger *slog.Logger) *Mapper[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper[T]{decode: decode, kind: kind, logger: logger}
}

// NewEpisodeMapper returns the mapper for episode hits.
func NewEpisodeMapper(logger *slog.Logger) *Mapper[EpisodeItem] {
	return NewMapper("episode", DecodeEpisode, logger)
}

// NewShowMapper returns the mapper for show hits.
func NewShowMapper(logger *slog.Logger) *Mapper[ShowItem] {
	return NewMapper("show", DecodeShow, logger)
}

// Map builds the envelope for result. A result without a hits container
// fails with ERR_201_PARSE_MISSING_HITS. When every hit of a non-empty
// list fails to decode the call fails with ERR_202_PARSE_DOCUMENT.
func (m *Mapper[T]) Map(result *store.Result, page, size int) (*response.Envelope[response.SearchData[T]], error) {
	if result == nil || result.Hits == nil {
		return nil, perrors.ParseError(perrors.ErrCodeParseMissingHits, "index response has no hits container", nil)
	}
	return m.build(result.Hits, result.Total, page, size)
}

// MapFused builds the envelope for a fused hit list. Fused lists never
// lack a container, so only the all-failed case is an error.
func (m *Mapper[T]) MapFused(hits []store.Hit, total int64, page, size int) (*response.Envelope[response.SearchData[T]], error) {
	if hits == nil {
		hits = []store.Hit{}
	}
	return m.build(hits, &total, page, size)
}

func (m *Mapper[T]) build(hits []store.Hit, total *int64, page, size int) (*response.Envelope[response.SearchData[T]], error) {
	items := make([]T, 0, len(hits))
	var skipped int
	var lastErr error
	for _, hit := range hits {
		item, err := m.decode(hit)
		if err != nil {
			skipped++
			lastErr = err
			m.logger.Warn("search_item_skipped",
				slog.String("kind", m.kind),
				slog.String("id", hit.ID),
				slog.String("error", err.Error()))
			continue
		}
		items = append(items, item)
	}

	if len(hits) > 0 && len(items) == 0 {
		return nil, perrors.ParseError(perrors.ErrCodeParseDocument,
			fmt.Sprintf("all %d %s hit(s) failed to parse", len(hits), m.kind), lastErr)
	}

	n := int64(len(items))
	if total != nil && *total >= 0 {
		n = *total
	}

	data := response.SearchData[T]{
		Page:  page,
		Size:  size,
		Total: n,
		Items: items,
	}
	if skipped > 0 {
		return response.Partial(data, fmt.Sprintf("%d item(s) skipped due to parse errors", skipped)), nil
	}
	return response.OK(data), nil
}
