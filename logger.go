package cmxrt

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/cmxrt/config"
	"github.com/hupe1980/cmxrt/mempool"
)

// Logger wraps slog.Logger with runtime-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewLoggerFromConfig builds a text or JSON logger writing to w.
func NewLoggerFromConfig(cfg config.LogConfig, w io.Writer) (*Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return NewLogger(slog.NewTextHandler(w, opts)), nil
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRunID adds a run_id field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// LogPoolInit logs the memory pool initialization.
func (l *Logger) LogPoolInit(ctx context.Context, layout mempool.Layout, mapped bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "memory pool initialization failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "runtime initialized",
		"pool_total", layout.Total,
		"tensor", layout.Tensor.Size,
		"temp_buffer", layout.TempBuffer.Size,
		"general", layout.General.Size,
		"mapped", mapped,
	)
}

// LogRun logs the outcome of one pass.
func (l *Logger) LogRun(ctx context.Context, res *RunResult, err error) {
	if res == nil {
		l.DebugContext(ctx, "run rejected",
			"error", err,
		)
		return
	}

	switch {
	case err != nil:
		l.WarnContext(ctx, "run failed",
			"run_id", res.RunID,
			"steps", len(res.Steps),
			"completed", res.Completed,
			"failed", res.Failed,
			"duration", res.Duration,
			"error", err,
		)
	default:
		l.DebugContext(ctx, "run completed",
			"run_id", res.RunID,
			"steps", len(res.Steps),
			"duration", res.Duration,
			"peak_bytes", res.Memory.PeakUsage,
		)
	}
}

// LogTaskFailure logs a failed step.
func (l *Logger) LogTaskFailure(ctx context.Context, runID string, step StepResult) {
	l.DebugContext(ctx, "step failed",
		"run_id", runID,
		"step", step.Name,
		"task_id", step.TaskID,
		"error", step.Err,
	)
}

// LogShutdown logs runtime shutdown.
func (l *Logger) LogShutdown(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "runtime shutdown failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "runtime shut down")
}
