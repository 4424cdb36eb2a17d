// Package logging provides the structured logger shared by the CLI, the
// engine and the job server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gcbaptista/go-letor/config"
)

// Logger wraps slog.Logger with dataset-operation helpers so field names
// stay consistent across commands.
type Logger struct {
	*slog.Logger
}

// New creates a Logger from settings, writing to w (stderr when nil).
func New(settings config.LoggingSettings, w io.Writer) (*Logger, error) {
	settings.ApplyDefaults()
	if w == nil {
		w = os.Stderr
	}

	level, err := ParseLevel(settings.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch settings.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", settings.Format)
	}
	return &Logger{Logger: slog.New(handler)}, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Noop returns a Logger that discards everything.
func Noop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// WithOperation tags entries with the dataset operation (split, fold, ...).
func (l *Logger) WithOperation(op string) *Logger {
	return &Logger{Logger: l.Logger.With("operation", op)}
}

// WithJob tags entries with an async job ID.
func (l *Logger) WithJob(jobID string) *Logger {
	return &Logger{Logger: l.Logger.With("job_id", jobID)}
}

// LogRead logs the result of loading a source.
func (l *Logger) LogRead(ctx context.Context, source string, records, groups int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read failed",
			"source", source,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "read completed",
		"source", source,
		"records", records,
		"groups", groups,
		"elapsed", elapsed,
	)
}

// LogPartition logs the outcome of assigning groups to subsets.
func (l *Logger) LogPartition(ctx context.Context, subsets map[string]int, seed uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "partition failed",
			"seed", seed,
			"error", err,
		)
		return
	}
	args := []any{"seed", seed}
	for name, groups := range subsets {
		args = append(args, name+"_groups", groups)
	}
	l.InfoContext(ctx, "partition completed", args...)
}

// LogWrite logs a single written output.
func (l *Logger) LogWrite(ctx context.Context, location string, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"location", location,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "write completed",
		"location", location,
		"records", records,
	)
}
