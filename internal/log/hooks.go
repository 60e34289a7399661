package log

import "context"

// Hook enriches log entries with fields derived from the context before
// they are written.
type Hook interface {
	Apply(ctx context.Context, msg string, fields ...Field) []Field
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, msg string, fields ...Field) []Field

// Apply implements Hook.
func (f HookFunc) Apply(ctx context.Context, msg string, fields ...Field) []Field {
	return f(ctx, msg, fields...)
}
