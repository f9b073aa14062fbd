// Package logging provides the structured logger every other package logs
// through, grounded on the teacher's slog-based lexer/decorator loggers
// (runtime/lexer/lexer.go, runtime/decorators/logging.go): a component-scoped
// slog.Logger whose handler redacts secret-shaped substrings before they
// reach the sink.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Format selects the slog handler used to render log records.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config controls where and how logs are written.
type Config struct {
	Format Format
	Level  slog.Level
	Output io.Writer
}

// New builds a root logger per cfg, wrapping its handler in redactHandler so
// that output bytes and resolved variable values never reach a sink
// unredacted.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(&redactHandler{next: h})
}

// Component scopes a logger under a component name, the way the teacher's
// lexer and decorator loggers each carry their own named logger.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("component", name)
}

// NewCorrelationID returns a fresh per-exec() correlation ID for log lines,
// independent of any POSIX job-control id the script itself observes.
func NewCorrelationID() string {
	return uuid.NewString()
}
