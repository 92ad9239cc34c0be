// Package logging provides utilities for structured logging.
package logging

import (
	"log/slog"
	"os"
)

// NewLogger creates the process-wide slog logger. level comes from
// TRIAGE_LOG_LEVEL (debug, info, warn, error); the default is info.
func NewLogger() *slog.Logger {
	var level slog.Level
	switch os.Getenv("TRIAGE_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// TemporalAdapter adapts a *slog.Logger to go.temporal.io/sdk/log.Logger.
type TemporalAdapter struct {
	logger *slog.Logger
}

// NewTemporalAdapter creates a Temporal-compatible logger backed by the
// given *slog.Logger.
func NewTemporalAdapter(l *slog.Logger) *TemporalAdapter {
	return &TemporalAdapter{logger: l}
}

func (a *TemporalAdapter) Debug(msg string, keyvals ...interface{}) {
	a.logger.Debug(msg, pairs(keyvals)...)
}

func (a *TemporalAdapter) Info(msg string, keyvals ...interface{}) {
	a.logger.Info(msg, pairs(keyvals)...)
}

func (a *TemporalAdapter) Warn(msg string, keyvals ...interface{}) {
	a.logger.Warn(msg, pairs(keyvals)...)
}

func (a *TemporalAdapter) Error(msg string, keyvals ...interface{}) {
	a.logger.Error(msg, pairs(keyvals)...)
}

// pairs converts Temporal's alternating key-value varargs to slog args.
// A trailing key without a value is kept under a sentinel key rather than
// dropped.
func pairs(keyvals []interface{}) []any {
	if len(keyvals) == 0 {
		return nil
	}
	args := make([]any, 0, len(keyvals))
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, _ := keyvals[i].(string)
		args = append(args, slog.Any(key, keyvals[i+1]))
	}
	if len(keyvals)%2 != 0 {
		args = append(args, slog.Any("MISSING_VALUE", keyvals[len(keyvals)-1]))
	}
	return args
}
