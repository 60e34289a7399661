package log

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a context-aware structured logger backed by zap. Hooks run on
// every entry and may append fields derived from the context (trace IDs,
// operation names).
type Logger struct {
	zl *zap.Logger

	mu    sync.RWMutex
	hooks []Hook
}

// New builds a Logger from the given config. Invalid levels fall back to
// info, invalid formats to json.
func New(config Config) *Logger {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if config.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var sink zapcore.WriteSyncer
	if config.File.Path != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.File.Path,
			MaxSize:    config.File.MaxSizeMB,
			MaxBackups: config.File.MaxBackups,
			MaxAge:     config.File.MaxAgeDays,
			Compress:   config.File.Compress,
		})
	} else {
		sink = zapcore.AddSync(os.Stderr)
	}

	core := zapcore.NewCore(encoder, sink, level)

	zl := zap.New(core)
	if config.Name != "" {
		zl = zl.Named(config.Name)
	}

	return &Logger{zl: zl}
}

// AddHook registers a hook that runs on every subsequent entry.
func (l *Logger) AddHook(hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hooks = append(l.hooks, hook)
}

func (l *Logger) applyHooks(ctx context.Context, msg string, fields []Field) []Field {
	l.mu.RLock()
	hooks := l.hooks
	l.mu.RUnlock()

	for _, hook := range hooks {
		fields = hook.Apply(ctx, msg, fields...)
	}

	return fields
}

// Debug logs a debug entry.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.zl.Debug(msg, l.applyHooks(ctx, msg, fields)...)
}

// Info logs an info entry.
func (l *Logger) Info(ctx context.Context, msg string, fields ...Field) {
	l.zl.Info(msg, l.applyHooks(ctx, msg, fields)...)
}

// Warn logs a warning entry.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.zl.Warn(msg, l.applyHooks(ctx, msg, fields)...)
}

// Error logs an error entry.
func (l *Logger) Error(ctx context.Context, msg string, fields ...Field) {
	l.zl.Error(msg, l.applyHooks(ctx, msg, fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}
