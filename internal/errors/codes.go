// Package errors provides structured error handling for podsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Upstream document parse errors
//   - 3XX: Upstream availability errors (index, charts, embeddings)
//   - 4XX: Request validation errors
//   - 5XX: Internal errors
package errors

import "net/http"

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryParse indicates a malformed document from an upstream service.
	CategoryParse Category = "PARSE"
	// CategoryUpstream indicates an unreachable or failing collaborator.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates caller input errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Parse errors (200-299)
	ErrCodeParseMissingHits = "ERR_201_PARSE_MISSING_HITS"
	ErrCodeParseDocument    = "ERR_202_PARSE_DOCUMENT"
	ErrCodeParseFeed        = "ERR_203_PARSE_FEED"

	// Upstream errors (300-399)
	ErrCodeUpstreamTimeout      = "ERR_301_UPSTREAM_TIMEOUT"
	ErrCodeIndexUnavailable     = "ERR_302_INDEX_UNAVAILABLE"
	ErrCodeChartsUnavailable    = "ERR_303_CHARTS_UNAVAILABLE"
	ErrCodeEmbeddingUnavailable = "ERR_304_EMBEDDING_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidParameter      = "ERR_401_INVALID_PARAMETER"
	ErrCodeQueryEmpty            = "ERR_402_QUERY_EMPTY"
	ErrCodePaginationUnsupported = "ERR_403_PAGINATION_UNSUPPORTED"
	ErrCodeNotFound              = "ERR_404_NOT_FOUND"
	ErrCodeRateLimited           = "ERR_429_RATE_LIMITED"

	// Internal errors (500-599)
	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeRankingsFailed = "ERR_502_RANKINGS_FAILED"
	ErrCodeSearchFailed   = "ERR_503_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "201" from "ERR_201_PARSE_MISSING_HITS"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryParse
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	if code == ErrCodeConfigInvalid || code == ErrCodeConfigNotFound {
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeUpstreamTimeout, ErrCodeIndexUnavailable, ErrCodeChartsUnavailable, ErrCodeEmbeddingUnavailable, ErrCodeRateLimited:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error code to the status the HTTP API responds with.
func HTTPStatus(code string) int {
	switch code {
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	}

	switch categoryFromCode(code) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryParse:
		return http.StatusBadGateway
	case CategoryUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
