// Package logger wraps slog.Logger with the index's structured log events.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with consistent field names for index events.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at Info.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewWriterLogger(os.Stderr, level)
}

// NewWriterLogger creates a text Logger writing to w.
func NewWriterLogger(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop creates a Logger that discards all output.
func Noop() *Logger {
	return NewWriterLogger(io.Discard, slog.Level(1000))
}

// WithIndex tags every event with the index name.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{Logger: l.Logger.With("index", name)}
}

// LogOpen logs an index being opened or created.
func (l *Logger) LogOpen(globalDepth int, recordsPerBucket int, buckets int64, created bool) {
	l.Info("index opened",
		"created", created,
		"global_depth", globalDepth,
		"records_per_bucket", recordsPerBucket,
		"buckets", buckets,
	)
}

// LogDouble logs the directory doubling.
func (l *Logger) LogDouble(globalDepth int, err error) {
	if err != nil {
		l.Error("directory doubling failed",
			"global_depth", globalDepth,
			"error", err,
		)
		return
	}
	l.Debug("directory doubled",
		"global_depth", globalDepth,
		"size", 1<<globalDepth,
	)
}

// LogSplit logs a bucket split.
func (l *Logger) LogSplit(bucket, sibling int64, localDepth int, moved int) {
	l.Debug("bucket split",
		"bucket", bucket,
		"sibling", sibling,
		"local_depth", localDepth,
		"moved", moved,
	)
}

// LogDuplicationLimit logs an insertion abandoned by the split guard.
func (l *Logger) LogDuplicationLimit(bucket int64, localDepth int, splits int) {
	l.Warn("insertion abandoned: bucket still full after splitting",
		"bucket", bucket,
		"local_depth", localDepth,
		"splits", splits,
	)
}

// LogMismatch logs a reopened file whose contents disagree with the caller.
func (l *Logger) LogMismatch(what string, want, got int64) {
	l.Warn("stored value differs from argument, using stored value",
		"field", what,
		"argument", want,
		"stored", got,
	)
}
