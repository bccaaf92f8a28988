package engine

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

var slogCtxKey = ctxKey{}

// LoggingContext attaches logger to ctx. Engine operations called with the
// returned context log through it instead of the engine's own logger.
func LoggingContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, slogCtxKey, logger)
}

func (e *Engine) logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(slogCtxKey).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return e.log
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (n noopHandler) WithAttrs([]slog.Attr) slog.Handler { return n }

func (n noopHandler) WithGroup(string) slog.Handler { return n }
