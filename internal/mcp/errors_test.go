package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{
			name:    "validation",
			err:     perrors.ValidationError("size", "size must be between 1 and 100"),
			code:    ErrCodeInvalidParams,
			message: "[ERR_401_INVALID_PARAMETER] size must be between 1 and 100",
		},
		{
			name: "suggestion appended",
			err: perrors.New(perrors.ErrCodePaginationUnsupported, "vector search supports page 1 only", nil).
				WithSuggestion("use mode=lexical to page through results"),
			code:    ErrCodeInvalidParams,
			message: "[ERR_403_PAGINATION_UNSUPPORTED] vector search supports page 1 only. use mode=lexical to page through results",
		},
		{
			name:    "index down",
			err:     fmt.Errorf("search: %w", perrors.UnavailableError(perrors.ErrCodeIndexUnavailable, "index unavailable", nil)),
			code:    ErrCodeUpstreamUnavailable,
			message: "[ERR_302_INDEX_UNAVAILABLE] index unavailable",
		},
		{
			name:    "parse",
			err:     perrors.New(perrors.ErrCodeParseDocument, "all 5 episode hit(s) failed to parse", nil),
			code:    ErrCodeUpstreamParse,
			message: "[ERR_202_PARSE_DOCUMENT] all 5 episode hit(s) failed to parse",
		},
		{
			name:    "cancelled search",
			err:     perrors.New(perrors.ErrCodeUpstreamTimeout, "search cancelled", context.Canceled),
			code:    ErrCodeTimeout,
			message: "[ERR_301_UPSTREAM_TIMEOUT] search cancelled",
		},
		{name: "deadline", err: context.DeadlineExceeded, code: ErrCodeTimeout, message: "Request timed out."},
		{name: "resource", err: ErrResourceNotFound, code: ErrCodeMethodNotFound, message: "Resource not found."},
		{name: "unknown", err: errors.New("boom"), code: ErrCodeInternalError, message: "Internal server error."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.message, got.Message)
		})
	}

	assert.Nil(t, MapError(nil))
}

func TestMCPError_Error(t *testing.T) {
	err := NewInvalidParamsError("query is required")
	assert.Equal(t, "MCP error -32602: query is required", err.Error())
}
