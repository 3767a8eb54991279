// Package logging configures the process-wide slog logger for podsearch.
//
// Logs go to stderr by default. When a file path is configured they are also
// written to a size-rotated file. Stdout is never used so the MCP stdio
// transport stays clean.
package logging
