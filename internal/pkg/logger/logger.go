package logger

import (
	"context"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// AddFields adds fields to the logger in context and returns new context
func AddFields(ctx context.Context, fields ...zap.Field) context.Context {
	logger := ctxzap.Extract(ctx)
	return ctxzap.ToContext(ctx, logger.With(fields...))
}

// WithAction tags the context logger with the flow being executed
func WithAction(ctx context.Context, action string, fields ...zap.Field) context.Context {
	return AddFields(ctx, append([]zap.Field{zap.String("action", action)}, fields...)...)
}

// Detached keeps the request logger but drops the request's deadline and
// cancellation. Used for cleanup that has to finish after the client went away.
func Detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
