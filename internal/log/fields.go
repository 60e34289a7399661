package log

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured log field.
type Field = zapcore.Field

// String constructs a string field.
func String(key, value string) Field {
	return zap.String(key, value)
}

// Strings constructs a string slice field.
func Strings(key string, values []string) Field {
	return zap.Strings(key, values)
}

// Int constructs an int field.
func Int(key string, value int) Field {
	return zap.Int(key, value)
}

// Int64 constructs an int64 field.
func Int64(key string, value int64) Field {
	return zap.Int64(key, value)
}

// Bool constructs a bool field.
func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

// Duration constructs a duration field.
func Duration(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

// Any constructs a field with an arbitrary value.
func Any(key string, value any) Field {
	return zap.Any(key, value)
}

// Cause constructs a field carrying the error that caused the entry.
func Cause(err error) Field {
	return zap.NamedError("cause", err)
}
