package logging

import (
	"context"
	"maps"

	"github.com/goliatone/go-mesh/pkg/interfaces"
)

type fieldsKey struct{}

// ContextWithFields stores request scoped fields, such as the request id, on
// ctx. Fields already present are kept unless fields overrides them.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}
	merged := ContextFields(ctx)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// ContextFields returns a copy of the fields stored on ctx, or nil.
func ContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).(map[string]any)
	return maps.Clone(fields)
}

// WithFields attaches fields when logger implements interfaces.FieldsLogger.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	if with, ok := logger.(interfaces.FieldsLogger); ok {
		return with.WithFields(maps.Clone(fields))
	}
	return logger
}
