package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guardpost/guardpost/internal/intercept"
	"github.com/guardpost/guardpost/internal/objects"
)

// AbortWithError aborts the request with a JSON error response and adds the error to gin context for access logging.
func AbortWithError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, objects.ErrorResponse{
		Error: objects.Error{
			Type:    http.StatusText(status),
			Message: err.Error(),
		},
	})
}

// AbortWithDenial aborts with 403 and the denial's stable code. The message
// is generic; internal reasons stay in the server log.
func AbortWithDenial(c *gin.Context, denied *intercept.DeniedError) {
	_ = c.Error(denied)
	c.AbortWithStatusJSON(http.StatusForbidden, objects.ErrorResponse{
		Error: objects.Error{
			Type:    http.StatusText(http.StatusForbidden),
			Code:    string(denied.Code),
			Message: "permission denied",
		},
	})
}
