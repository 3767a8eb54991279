// Package mcp implements the Model Context Protocol server for podsearch.
package mcp

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
)

// Custom MCP error codes for podsearch.
const (
	// ErrCodeUpstreamUnavailable indicates the index, charts feed or
	// embedding service could not be reached.
	ErrCodeUpstreamUnavailable = -32001

	// ErrCodeUpstreamParse indicates an upstream answered with a body that
	// could not be used.
	ErrCodeUpstreamParse = -32002

	// ErrCodeTimeout indicates the request timed out or was cancelled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrResourceNotFound indicates the requested resource does not exist.
var ErrResourceNotFound = errors.New("resource not found")

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors. PodErrors keep their
// code in the message so agents can branch on it.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	if pe, ok := perrors.As(err); ok {
		return mapPodError(pe)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Resource not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

func mapPodError(pe *perrors.PodError) *MCPError {
	message := fmt.Sprintf("[%s] %s", pe.Code, pe.Message)
	if pe.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", message, pe.Suggestion)
	}

	if pe.Code == perrors.ErrCodeUpstreamTimeout {
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	}
	switch pe.Category {
	case perrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case perrors.CategoryUpstream:
		return &MCPError{Code: ErrCodeUpstreamUnavailable, Message: message}
	case perrors.CategoryParse:
		return &MCPError{Code: ErrCodeUpstreamParse, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
