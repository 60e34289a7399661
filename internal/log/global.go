package log

import (
	"context"
	"sync"
)

var (
	globalMu sync.RWMutex
	global   = New(DefaultConfig())
)

// SetGlobalConfig rebuilds the global logger from config. Called once at
// startup; hooks registered on the previous logger are not carried over.
func SetGlobalConfig(config Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	global = New(config)
}

// GetGlobalLogger returns the process-wide logger.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	return global
}

// Debug logs a debug entry on the global logger.
func Debug(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().Debug(ctx, msg, fields...)
}

// Info logs an info entry on the global logger.
func Info(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().Info(ctx, msg, fields...)
}

// Warn logs a warning entry on the global logger.
func Warn(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().Warn(ctx, msg, fields...)
}

// Error logs an error entry on the global logger.
func Error(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().Error(ctx, msg, fields...)
}
