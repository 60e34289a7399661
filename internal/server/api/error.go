package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guardpost/guardpost/internal/intercept"
	"github.com/guardpost/guardpost/internal/objects"
	"github.com/guardpost/guardpost/internal/policy"
	"github.com/guardpost/guardpost/internal/server/biz"
	"github.com/guardpost/guardpost/internal/server/middleware"
)

// JSONError returns a JSON error response and adds the error to gin context for access logging.
func JSONError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, objects.ErrorResponse{
		Error: objects.Error{
			Type:    http.StatusText(status),
			Message: err.Error(),
		},
	})
}

// respondError maps business errors onto HTTP statuses. Denials keep their
// stable code; everything unexpected collapses to a generic 500 so internal
// detail never reaches the client.
func respondError(c *gin.Context, err error) {
	var denied *intercept.DeniedError

	switch {
	case errors.As(err, &denied):
		middleware.AbortWithDenial(c, denied)
	case errors.Is(err, biz.ErrInvalidRequest):
		JSONError(c, http.StatusBadRequest, err)
	case errors.Is(err, policy.ErrUnknownService):
		JSONError(c, http.StatusNotFound, err)
	case errors.Is(err, biz.ErrConfigWrite):
		JSONError(c, http.StatusInternalServerError, biz.ErrConfigWrite)
	default:
		_ = c.Error(err)
		JSONError(c, http.StatusInternalServerError, biz.ErrInternal)
	}
}
