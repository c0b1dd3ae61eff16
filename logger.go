package phantom

import (
	"context"
	"log/slog"
	"os"

	"github.com/DRuanli/PHANTOM/convergence"
)

// Logger wraps slog.Logger with mining-specific context. This provides
// structured logging with consistent field names across the
// coordinator, the worker miners, and the CLI.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, uses the default text handler to stderr.
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

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogMineStart logs the start of a mining run.
func (l *Logger) LogMineStart(ctx context.Context, items, transactions, k, processors int) {
	l.InfoContext(ctx, "mining started",
		"items", items,
		"transactions", transactions,
		"k", k,
		"processors", processors,
	)
}

// LogWorkerDone logs a worker's completion.
func (l *Logger) LogWorkerDone(ctx context.Context, partitionID int, processed int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "worker exited",
			"partition", partitionID,
			"processed", processed,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "worker completed",
		"partition", partitionID,
		"processed", processed,
	)
}

// LogConvergence logs a convergence-monitor poll result.
func (l *Logger) LogConvergence(ctx context.Context, result convergence.Result) {
	l.DebugContext(ctx, "convergence poll",
		"stable", result.Stable,
		"bounds_ok", result.BoundsOK,
		"exhausted", result.Exhausted,
		"confident", result.Confident,
		"confidence", result.Confidence,
		"converged", result.Converged,
	)
}

// LogRebalance logs a load-rebalance transfer between partitions.
func (l *Logger) LogRebalance(ctx context.Context, donor, recipient, moved int) {
	l.InfoContext(ctx, "rebalanced partitions",
		"donor", donor,
		"recipient", recipient,
		"items_moved", moved,
	)
}

// LogTopKDrop logs the number of candidates dropped to contention over
// the lifetime of a mining run.
func (l *Logger) LogTopKDrop(ctx context.Context, dropped uint64) {
	if dropped == 0 {
		return
	}
	l.WarnContext(ctx, "top-k candidates dropped to contention",
		"dropped", dropped,
	)
}
