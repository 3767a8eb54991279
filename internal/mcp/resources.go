package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// QueryMetricsURI is the URI of the query statistics resource.
const QueryMetricsURI = "podsearch://query_metrics"

// QueryMetricsOutput is the JSON structure for the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	ModeCounts          map[string]int64    `json:"mode_counts"`
	TargetCounts        map[string]int64    `json:"target_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	Since         string  `json:"since"`
	ZeroResultPct float64 `json:"zero_result_pct"`
	Fallbacks     int64   `json:"fallbacks"`
	ExactRepeats  int64   `json:"exact_repeats"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// registerQueryMetricsResource registers the query_metrics resource.
func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         QueryMetricsURI,
			Description: "Search query statistics since the server started",
			MIMEType:    "application/json",
		},
		s.readQueryMetrics,
	)
}

func (s *Server) readQueryMetrics(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if s.queries == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}
	snapshot := s.queries.Snapshot()

	output := QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:  snapshot.TotalQueries,
			Since:         snapshot.Since.UTC().Format(time.RFC3339),
			ZeroResultPct: snapshot.ZeroResultPercentage(),
			Fallbacks:     snapshot.FallbackCount,
			ExactRepeats:  snapshot.ExactRepeatCount,
		},
		ModeCounts:          snapshot.ModeCounts,
		TargetCounts:        snapshot.TargetCounts,
		TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
		ZeroResultQueries:   snapshot.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snapshot.LatencyDistribution)),
	}
	for _, tc := range snapshot.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for bucket, count := range snapshot.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}

	content, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      QueryMetricsURI,
			MIMEType: "application/json",
			Text:     string(content),
		}},
	}, nil
}
