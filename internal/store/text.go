package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/podsearch/internal/query"
)

// TextIndex is a bleve-backed BM25 index over podcast documents.
// The raw source of every document is kept in bleve's internal store so
// hits can be returned verbatim.
type TextIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// NewTextIndex opens the index at path, creating it if needed.
// An empty path creates an in-memory index.
func NewTextIndex(path string) (*TextIndex, error) {
	m := newTextMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open text index: %w", err)
	}
	return &TextIndex{index: idx, path: path}, nil
}

// newTextMapping indexes every string field with the standard analyzer,
// except language (exact keyword) and published_at (datetime, sortable).
func newTextMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name
	im.DefaultMapping.AddFieldMappingsAt("language", bleve.NewKeywordFieldMapping())
	im.DefaultMapping.AddFieldMappingsAt("published_at", bleve.NewDateTimeFieldMapping())
	return im
}

// Index adds or replaces docs in one batch.
func (t *TextIndex) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	batch := t.index.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		var fields map[string]any
		if err := json.Unmarshal(doc.Source, &fields); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		// Language filters arrive lowercased.
		if lang, ok := fields["language"].(string); ok {
			fields["language"] = strings.ToLower(strings.TrimSpace(lang))
		}
		if err := batch.Index(doc.ID, fields); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
		batch.SetInternal([]byte(doc.ID), doc.Source)
	}
	if err := t.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search runs a lexical query and returns its hits and total match count.
func (t *TextIndex) Search(ctx context.Context, q *query.Query) ([]Hit, int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, 0, ErrClosed
	}

	if strings.TrimSpace(q.Text) == "" || q.Size <= 0 {
		return []Hit{}, 0, nil
	}

	req := bleve.NewSearchRequestOptions(lexicalQuery(q), q.Size, q.From, false)
	req.Highlight = bleve.NewHighlightWithStyle(html.Name)
	for _, f := range q.Highlight {
		req.Highlight.AddField(f)
	}
	if q.DateField != "" {
		req.SortBy([]string{"-" + q.DateField, "-_score"})
	}

	res, err := t.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for i, h := range res.Hits {
		src, err := t.index.GetInternal([]byte(h.ID))
		if err != nil {
			return nil, 0, fmt.Errorf("load source %s: %w", h.ID, err)
		}
		hit := Hit{ID: h.ID, Source: src, Rank: i, Score: h.Score}
		if len(h.Fragments) > 0 {
			hit.Highlight = map[string][]string(h.Fragments)
		}
		hits = append(hits, hit)
	}
	return hits, int64(res.Total), nil
}

func lexicalQuery(q *query.Query) bq.Query {
	fields := make([]bq.Query, 0, len(q.Fields))
	for _, f := range q.Fields {
		mq := bleve.NewMatchQuery(q.Text)
		mq.SetField(f.Name)
		if f.Boost > 0 {
			mq.SetBoost(f.Boost)
		}
		fields = append(fields, mq)
	}
	text := bleve.NewDisjunctionQuery(fields...)
	if len(q.Languages) == 0 {
		return text
	}

	langs := bleve.NewDisjunctionQuery()
	for _, l := range q.Languages {
		tq := bleve.NewTermQuery(l)
		tq.SetField("language")
		langs.AddQuery(tq)
	}
	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(text)
	boolQuery.AddMust(langs)
	return boolQuery
}

// Count returns the number of indexed documents.
func (t *TextIndex) Count() (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return 0, ErrClosed
	}
	return t.index.DocCount()
}

// Close closes the index.
func (t *TextIndex) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.index.Close()
}

// Source returns the stored source of id, or nil if it was never indexed.
func (t *TextIndex) Source(id string) (json.RawMessage, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, ErrClosed
	}
	return t.index.GetInternal([]byte(id))
}
