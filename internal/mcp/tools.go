package mcp

import (
	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/search"
)

// SearchEpisodesInput defines the input schema for the search_episodes tool.
type SearchEpisodesInput struct {
	Query     string   `json:"query" jsonschema:"the search text"`
	Mode      string   `json:"mode,omitempty" jsonschema:"retrieval strategy: lexical, vector or hybrid (aliases bm25, knn); defaults to the server setting"`
	Page      int      `json:"page,omitempty" jsonschema:"1-based page, default 1; vector and hybrid support page 1 only"`
	Size      int      `json:"size,omitempty" jsonschema:"results per page, 1 to 100, default 20"`
	Sort      string   `json:"sort,omitempty" jsonschema:"relevance or date (newest first), default relevance"`
	Languages []string `json:"languages,omitempty" jsonschema:"restrict to these language codes, e.g. zh-tw, en"`
}

// SearchShowsInput defines the input schema for the search_shows tool.
type SearchShowsInput struct {
	Query     string   `json:"query" jsonschema:"the search text"`
	Page      int      `json:"page,omitempty" jsonschema:"1-based page, default 1"`
	Size      int      `json:"size,omitempty" jsonschema:"results per page, 1 to 100, default 10"`
	Languages []string `json:"languages,omitempty" jsonschema:"restrict to these language codes"`
}

// GetRankingsInput defines the input schema for the get_rankings tool.
type GetRankingsInput struct {
	Country string `json:"country,omitempty" jsonschema:"two-letter storefront region, default from the server setting"`
	Type    string `json:"type,omitempty" jsonschema:"podcast or episode, default podcast"`
	Limit   int    `json:"limit,omitempty" jsonschema:"number of entries, 1 to 100, default 20"`
}

// SearchStatusInput defines the input schema for the search_status tool (no parameters).
type SearchStatusInput struct{}

// EpisodesOutput defines the output schema for the search_episodes tool.
type EpisodesOutput struct {
	Status  string               `json:"status" jsonschema:"ok or partial_success"`
	Warning string               `json:"warning,omitempty" jsonschema:"why the result is partial"`
	Mode    string               `json:"mode,omitempty" jsonschema:"requested retrieval strategy"`
	Page    int                  `json:"page"`
	Size    int                  `json:"size"`
	Total   int64                `json:"total" jsonschema:"total matches reported by the index"`
	Items   []search.EpisodeItem `json:"items"`
}

// ShowsOutput defines the output schema for the search_shows tool.
type ShowsOutput struct {
	Status  string            `json:"status"`
	Warning string            `json:"warning,omitempty"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
	Total   int64             `json:"total"`
	Items   []search.ShowItem `json:"items"`
}

// RankingsOutput defines the output schema for the get_rankings tool.
type RankingsOutput struct {
	Region    string          `json:"region"`
	Type      string          `json:"type"`
	UpdatedAt string          `json:"updated_at" jsonschema:"RFC 3339 time the chart was fetched"`
	Items     []rankings.Item `json:"items"`
}

// SearchStatusOutput defines the output schema for the search_status tool.
type SearchStatusOutput struct {
	// VectorSearch is "available" or "lexical fallback". Agents can skip
	// asking for vector or hybrid mode when it reports the fallback.
	VectorSearch string `json:"vector_search"`
	Embedder     string `json:"embedder,omitempty"`
	Dimensions   int    `json:"dimensions,omitempty"`
	Queries      int64  `json:"queries_served"`
	Fallbacks    int64  `json:"fallbacks"`
}
