package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is "json" (default) or "text".
	Format string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr whether to also write to stderr.
	WriteToStderr bool
}

// DefaultConfig returns stderr-only JSON logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		Format:        "json",
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// Setup builds a logger from cfg and returns it with a cleanup function
// that flushes and closes the log file, if any.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	cleanup := func() {}

	if cfg.FilePath != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxFiles := cfg.MaxFiles
		if maxFiles <= 0 {
			maxFiles = 5
		}
		w, err := NewRotatingWriter(cfg.FilePath, maxSize, maxFiles)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, w)
		cleanup = func() {
			_ = w.Sync()
			_ = w.Close()
		}
	}
	if cfg.WriteToStderr || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	handler, err := newHandler(io.MultiWriter(writers...), cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return slog.New(handler), cleanup, nil
}

// SetupDefault configures logging from cfg and installs it as slog's default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

func newHandler(w io.Writer, cfg Config) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is one Setup understands.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
