package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/guardpost/guardpost/internal/intercept"
	"github.com/guardpost/guardpost/internal/metrics"
	"github.com/guardpost/guardpost/internal/tracing"
)

// WithPermissionCheck guards a route with the interceptor under the given
// operation name. Every request is checked before the handler runs; any
// denial aborts with a generic 403 carrying only the stable code.
func WithPermissionCheck(interceptor *intercept.Interceptor, operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := tracing.WithOperationName(c.Request.Context(), operation)
		c.Request = c.Request.WithContext(ctx)

		err := interceptor.Check(ctx, operation)

		var code string

		var denied *intercept.DeniedError
		if errors.As(err, &denied) {
			code = string(denied.Code)
		}

		metrics.RecordDecision(ctx, err == nil, code)

		if err != nil {
			if denied == nil {
				denied = &intercept.DeniedError{Code: intercept.CodeInternal}
			}

			AbortWithDenial(c, denied)

			return
		}

		c.Next()
	}
}
