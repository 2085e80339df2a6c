package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithFields attaches request-scoped fields to the context. They are
// added to whichever component logger FromContext is asked for.
func ContextWithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	if prev, ok := ctx.Value(ctxKey{}).([]zap.Field); ok {
		fields = append(append([]zap.Field{}, prev...), fields...)
	}
	return context.WithValue(ctx, ctxKey{}, fields)
}

// FromContext returns logger enriched with the fields stored in ctx. A nil
// logger resolves to zap.L().
func FromContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.L()
	}
	if ctx != nil {
		if fields, ok := ctx.Value(ctxKey{}).([]zap.Field); ok {
			return logger.With(fields...)
		}
	}
	return logger
}
