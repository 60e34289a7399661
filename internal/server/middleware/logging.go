package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guardpost/guardpost/internal/tracing"
)

// WithLoggingTracing saves the trace ID and request ID to the request context.
// So the logger can log the trace ID and request ID in the next logs.
func WithLoggingTracing(config tracing.Config) gin.HandlerFunc {
	traceHeader := config.TraceHeader
	if traceHeader == "" {
		traceHeader = "GP-Trace-Id"
	}

	requestHeader := config.RequestHeader
	if requestHeader == "" {
		requestHeader = "GP-Request-Id"
	}

	return func(c *gin.Context) {
		// Use the trace header from the request first.
		traceID := c.GetHeader(traceHeader)
		if traceID == "" {
			traceID = tracing.GenerateTraceID()
		}

		requestID := tracing.GenerateRequestID()

		c.Header(requestHeader, requestID)

		ctx := tracing.WithTraceID(c.Request.Context(), traceID)
		ctx = tracing.WithRequestID(ctx, requestID)
		ctx = tracing.WithOperationName(ctx, fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()))

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
