package search

import (
	"slices"

	"github.com/Aman-CERP/podsearch/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// FusedResult is one document after RRF fusion.
type FusedResult struct {
	ID string
	// Hit is the hit from whichever list introduced the ID first.
	Hit store.Hit
	// Score is the raw RRF sum, not normalised.
	Score float64
}

// RRFFusion combines ranked lists using Reciprocal Rank Fusion:
//
//	score(d) = Σ 1 / (k + rank_i(d) + 1)
//
// where rank_i is the zero-based position of d in list i.
type RRFFusion struct {
	K int
}

// NewRRFFusion creates a fusion with the given k. If k <= 0, defaults to 60.
func NewRRFFusion(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse merges lists into at most limit results ordered by descending score.
// Ties keep first-encounter order: earlier lists win, then earlier positions.
// A document's payload is taken from its first sighting and never replaced.
func (f *RRFFusion) Fuse(limit int, lists ...[]store.Hit) []FusedResult {
	if limit <= 0 {
		return []FusedResult{}
	}

	capacity := 0
	for _, l := range lists {
		capacity += len(l)
	}
	order := make([]*FusedResult, 0, capacity)
	byID := make(map[string]*FusedResult, capacity)

	for _, list := range lists {
		for rank, hit := range list {
			r, ok := byID[hit.ID]
			if !ok {
				r = &FusedResult{ID: hit.ID, Hit: hit}
				byID[hit.ID] = r
				order = append(order, r)
			}
			r.Score += 1 / float64(f.K+rank+1)
		}
	}

	// order is first-encounter order, so a stable sort keeps it for ties.
	slices.SortStableFunc(order, func(a, b *FusedResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	n := min(limit, len(order))
	out := make([]FusedResult, n)
	for i := range n {
		out[i] = *order[i]
		out[i].Hit.Rank = i
	}
	return out
}

// Hits returns the fused payloads in fused order.
func Hits(fused []FusedResult) []store.Hit {
	hits := make([]store.Hit, len(fused))
	for i, r := range fused {
		hits[i] = r.Hit
	}
	return hits
}
