// Package logger builds the zerolog loggers used across microgl.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger.
type ContextKey string

// LoggerKey is the context key for the logger instance.
const LoggerKey ContextKey = "logger"

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures a logger.
type Options struct {
	Level  string // zerolog level name, default info
	Format string // console or json, default console
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// NewWithWriter creates a JSON logger at debug level, for tests.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// ParseLevel parses a level name. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parsing log level: %w", err)
	}
	return level, nil
}

// WithContext adds the logger to the context.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context, or a console logger on stderr.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	l, _ := New(os.Stderr, Options{})
	return l
}
