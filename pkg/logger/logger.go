// Package logger is the shared structured-logging setup. Everything logs
// through slog; call-scoped attributes (session id, provider call id) are
// attached by the code that owns them, not here.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// New returns the process-wide JSON logger. Local and dev environments log
// at debug so live-call turn traces are visible.
func New(appEnv string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch appEnv {
	case "local", "dev":
		opts.Level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(h).With(slog.String("service", "salesvoice"))
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ShutdownFlush exists so main has a single flush point if a buffered
// handler is ever swapped in. The JSON handler writes through, so this is
// currently a no-op.
func ShutdownFlush(_ context.Context, _ time.Duration) error { return nil }
