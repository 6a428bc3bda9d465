package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	traceIDKey
)

const (
	TraceIDField   = "trace_id"
	AccountIDField = "account_id"
)

// NewContext stores l as the request logger.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, l)
}

// With returns a context whose logger carries the extra fields.
func With(ctx context.Context, fields ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return NewContext(ctx, From(ctx).With(fields...))
}

// WithTraceID tags the request logger with the trace id and keeps the raw
// value so it can be echoed or attached to events.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	ctx = With(ctx, TraceIDField, traceID)
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithAccountID tags the request logger with the authenticated account.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return With(ctx, AccountIDField, accountID)
}

func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// From returns the request logger, or the global one outside a request.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return LoggerWrapper()
}
