package tracing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guardpost/guardpost/internal/tracing"
)

func TestTraceFieldsHooks(t *testing.T) {
	t.Run("with trace ID", func(t *testing.T) {
		ctx := tracing.WithTraceID(context.Background(), "gp-test-trace-id")
		fields := tracing.TraceFieldsHooks(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "trace_id", fields[0].Key)
		assert.Equal(t, "gp-test-trace-id", fields[0].String)
	})

	t.Run("with operation name", func(t *testing.T) {
		ctx := tracing.WithOperationName(context.Background(), "test-operation-name")
		fields := tracing.TraceFieldsHooks(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "operation_name", fields[0].Key)
		assert.Equal(t, "test-operation-name", fields[0].String)
	})

	t.Run("with trace and request ID", func(t *testing.T) {
		ctx := tracing.WithTraceID(context.Background(), "gp-test-trace-id")
		ctx = tracing.WithRequestID(ctx, "gpr-test-request-id")
		fields := tracing.TraceFieldsHooks(ctx, "test message")
		assert.Len(t, fields, 2)
		assert.Equal(t, "trace_id", fields[0].Key)
		assert.Equal(t, "request_id", fields[1].Key)
	})

	t.Run("with empty context", func(t *testing.T) {
		fields := tracing.TraceFieldsHooks(context.Background(), "test message")
		assert.Len(t, fields, 0)
	})

	t.Run("with nil context", func(t *testing.T) {
		fields := tracing.TraceFieldsHooks(nil, "test message")
		assert.Len(t, fields, 0)
	})
}
