// Package query builds the typed query documents executed by an index backend.
//
// A Query says what to retrieve, never how a particular backend spells it:
// the Elasticsearch client renders it to _search DSL and the local backend
// translates it to bleve and hnsw calls.
package query

import (
	"fmt"
	"strings"
)

// Kind is the retrieval strategy of a single query document.
type Kind string

const (
	// KindLexical is term-based BM25 retrieval.
	KindLexical Kind = "lexical"
	// KindVector is approximate nearest-neighbour retrieval.
	KindVector Kind = "vector"
)

// Sort orders lexical results.
type Sort string

const (
	SortRelevance Sort = "relevance"
	SortDate      Sort = "date"
)

// ParseSort accepts "", "relevance" or "date".
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortRelevance:
		return SortRelevance, nil
	case SortDate:
		return SortDate, nil
	default:
		return "", fmt.Errorf("unknown sort %q: want relevance or date", s)
	}
}

// Target names the document collection a query is built for.
type Target string

const (
	TargetEpisodes Target = "episodes"
	TargetShows    Target = "shows"
)

// Field is a searchable field and its relevance boost.
type Field struct {
	Name  string
	Boost float64
}

// Query is a backend-neutral query document.
type Query struct {
	Kind   Kind
	Target Target

	// Lexical
	Text      string
	Fields    []Field
	Highlight []string
	Sort      Sort
	DateField string

	// Vector
	Vector        []float32
	VectorField   string
	K             int
	NumCandidates int

	// Shared
	From      int
	Size      int
	Languages []string
}

// Params are the inputs a query is built from.
type Params struct {
	Target    Target
	Text      string
	From      int
	Size      int
	Languages []string
	Sort      Sort
}
