package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guardpost/guardpost/internal/log"
)

// Recovery converts handler panics into a generic 500 response. The panic
// value is logged, never returned to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "panic in handler",
					log.String("path", c.Request.URL.Path),
					log.Any("panic", r),
				)

				AbortWithError(c, http.StatusInternalServerError, errors.New("internal error"))
			}
		}()

		c.Next()
	}
}
