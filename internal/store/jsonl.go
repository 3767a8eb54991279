package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"
)

// VectorField is the source key holding a document's embedding.
const VectorField = "embedding"

// ParseDocument turns one JSON object into a Document. The id is read from
// idField; the embedding is lifted out of the stored source.
func ParseDocument(line []byte, idField string) (Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Document{}, err
	}

	var doc Document
	raw, ok := fields[idField]
	if !ok {
		return Document{}, fmt.Errorf("missing %s", idField)
	}
	if err := json.Unmarshal(raw, &doc.ID); err != nil || doc.ID == "" {
		return Document{}, fmt.Errorf("%s must be a non-empty string", idField)
	}

	if raw, ok := fields[VectorField]; ok {
		if err := json.Unmarshal(raw, &doc.Vector); err != nil {
			return Document{}, fmt.Errorf("%s: %w", VectorField, err)
		}
		delete(fields, VectorField)
	}
	if raw, ok := fields["language"]; ok {
		_ = json.Unmarshal(raw, &doc.Language)
	}

	src, err := json.Marshal(fields)
	if err != nil {
		return Document{}, err
	}
	doc.Source = src
	return doc, nil
}

// EmbedFunc turns text into a vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

type loadConfig struct {
	embed       EmbedFunc
	textFields  []string
	concurrency int
}

// LoadOption configures LoadJSONL.
type LoadOption func(*loadConfig)

// WithEmbedding computes vectors for documents that carry none, from the
// named source fields joined by blank lines. Default fields are title and
// description.
func WithEmbedding(fn EmbedFunc, fields ...string) LoadOption {
	return func(c *loadConfig) {
		c.embed = fn
		if len(fields) > 0 {
			c.textFields = fields
		}
	}
}

// WithEmbedConcurrency bounds the embedding calls in flight per batch.
func WithEmbedConcurrency(n int) LoadOption {
	return func(c *loadConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// LoadJSONL reads newline-delimited documents from r into the named
// collection in batches and returns how many were indexed.
func (l *Local) LoadJSONL(ctx context.Context, index string, r io.Reader, idField string, batchSize int, opts ...LoadOption) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	cfg := loadConfig{textFields: []string{"title", "description"}, concurrency: 4}
	for _, opt := range opts {
		opt(&cfg)
	}

	sc := bufio.NewScanner(r)
	// Lines carry full embeddings.
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)

	var (
		batch []Document
		total int
		line  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if cfg.embed != nil {
			if err := cfg.embedMissing(ctx, batch); err != nil {
				return fmt.Errorf("%s: %w", index, err)
			}
		}
		if err := l.Add(ctx, index, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		doc, err := ParseDocument(b, idField)
		if err != nil {
			return total, fmt.Errorf("%s line %d: %w", index, line, err)
		}
		batch = append(batch, doc)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return total, fmt.Errorf("%s: %w", index, err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// embedMissing fills the vector of every document in batch that has none.
func (c loadConfig) embedMissing(ctx context.Context, batch []Document) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range batch {
		if len(batch[i].Vector) > 0 {
			continue
		}
		doc := &batch[i]
		g.Go(func() error {
			text, err := sourceText(doc.Source, c.textFields)
			if err != nil {
				return fmt.Errorf("document %s: %w", doc.ID, err)
			}
			vec, err := c.embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed %s: %w", doc.ID, err)
			}
			doc.Vector = vec
			return nil
		})
	}
	return g.Wait()
}

// sourceText joins the string fields of src.
func sourceText(src json.RawMessage, fields []string) (string, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(src, &m); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		var v string
		if raw, ok := m[f]; ok && json.Unmarshal(raw, &v) == nil && strings.TrimSpace(v) != "" {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
