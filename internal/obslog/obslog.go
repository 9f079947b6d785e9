// Package obslog wires up the structured logger shared by the CLI, the
// index store, the session registry, and the grid server. Construction
// never fails the caller's startup path: if zap's config cannot build a
// logger (e.g. an unwritable sink), New falls back to a no-op logger rather
// than aborting, and an unrecognized level string falls back to info.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is a zapcore level name ("debug", "info", "warn", "error").
	// Empty defaults to "info".
	Level string
	// Development selects zap's human-readable console encoding over the
	// default JSON encoding; `gridlex serve` sets it from log.development.
	Development bool
}

// New builds a *zap.Logger per opts. Callers should defer logger.Sync() at
// the top of main.
func New(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			level = zapcore.InfoLevel
		}
	}

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Named returns a child logger scoped to component, e.g. obslog.Named(base,
// "indexstore").
func Named(base *zap.Logger, component string) *zap.Logger {
	return base.Named(component)
}
