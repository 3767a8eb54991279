package errors

import (
	"errors"
	"fmt"
)

// PodError is the structured error type for podsearch.
// The Code and Message pair is what API callers see in an error envelope.
type PodError struct {
	// Code is the unique error code (e.g., "ERR_201_PARSE_MISSING_HITS").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint for the caller.
	Suggestion string
}

// Error implements the error interface.
func (e *PodError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PodError) Unwrap() error {
	return e.Cause
}

// Is matches another PodError by code so errors.Is works against the
// exported sentinel values below.
func (e *PodError) Is(target error) bool {
	if t, ok := target.(*PodError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *PodError) WithDetail(key, value string) *PodError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the caller.
func (e *PodError) WithSuggestion(suggestion string) *PodError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PodError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *PodError {
	return &PodError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a PodError from an existing error.
func Wrap(code string, err error) *PodError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is comparisons.
var (
	ErrMissingHits       = &PodError{Code: ErrCodeParseMissingHits}
	ErrDocumentParse     = &PodError{Code: ErrCodeParseDocument}
	ErrIndexUnavailable  = &PodError{Code: ErrCodeIndexUnavailable}
	ErrInvalidParameter  = &PodError{Code: ErrCodeInvalidParameter}
	ErrPaginationInvalid = &PodError{Code: ErrCodePaginationUnsupported}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *PodError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ParseError creates an upstream document parse error.
func ParseError(code, message string, cause error) *PodError {
	return New(code, message, cause)
}

// UnavailableError creates an upstream availability error.
func UnavailableError(code, message string, cause error) *PodError {
	return New(code, message, cause)
}

// ValidationError creates a request validation error for a named parameter.
func ValidationError(param, message string) *PodError {
	return New(ErrCodeInvalidParameter, message, nil).WithDetail("parameter", param)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *PodError {
	return New(ErrCodeInternal, message, cause)
}

// As extracts a PodError from an error chain.
func As(err error) (*PodError, bool) {
	var pe *PodError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable checks if an error anywhere in the chain is retryable.
func IsRetryable(err error) bool {
	if pe, ok := As(err); ok {
		return pe.Retryable
	}
	return false
}

// GetCode extracts the error code from a PodError chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if pe, ok := As(err); ok {
		return pe.Code
	}
	return ""
}

// GetCategory extracts the category from a PodError chain.
func GetCategory(err error) Category {
	if pe, ok := As(err); ok {
		return pe.Category
	}
	return ""
}
