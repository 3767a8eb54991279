// Package response defines the JSON envelope every podsearch API answer uses.
package response

import (
	"time"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
)

// Status is the outcome of a request.
type Status string

const (
	StatusOK             Status = "ok"
	StatusPartialSuccess Status = "partial_success"
	StatusError          Status = "error"
)

// Error is the caller-facing error descriptor.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// Envelope wraps a payload. Exactly one of Data and Error is set; Warning
// is set only when Status is partial_success.
type Envelope[T any] struct {
	Status  Status `json:"status"`
	Data    *T     `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// OK wraps data with status ok.
func OK[T any](data T) *Envelope[T] {
	return &Envelope[T]{Status: StatusOK, Data: &data}
}

// Partial wraps data with status partial_success and a warning.
// An empty warning yields a plain ok envelope.
func Partial[T any](data T, warning string) *Envelope[T] {
	if warning == "" {
		return OK(data)
	}
	return &Envelope[T]{Status: StatusPartialSuccess, Data: &data, Warning: warning}
}

// Fail builds an error envelope.
func Fail[T any](code, message string) *Envelope[T] {
	return &Envelope[T]{Status: StatusError, Error: &Error{Code: code, Message: message}}
}

// FromError builds an error envelope from err. Errors without a PodError
// in their chain are reported as internal errors with a generic message.
func FromError(err error) *Envelope[struct{}] {
	if pe, ok := perrors.As(err); ok {
		return Fail[struct{}](pe.Code, pe.Message)
	}
	return Fail[struct{}](perrors.ErrCodeInternal, "internal error")
}

// AddWarning appends w to the envelope's warning and downgrades an ok
// envelope to partial_success. Error envelopes are left untouched.
func (e *Envelope[T]) AddWarning(w string) {
	if w == "" || e.Status == StatusError {
		return
	}
	if e.Warning == "" {
		e.Warning = w
	} else {
		e.Warning += "; " + w
	}
	e.Status = StatusPartialSuccess
}

// SearchData is the payload of a search response.
type SearchData[T any] struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

// RankingsData is the payload of a rankings response.
type RankingsData[T any] struct {
	Region    string    `json:"region"`
	Type      string    `json:"type"`
	Items     []T       `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}
