package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guardpost/guardpost/internal/build"
)

// SystemHandlers serves the unauthenticated system endpoints.
type SystemHandlers struct{}

func NewSystemHandlers() *SystemHandlers {
	return &SystemHandlers{}
}

func (handlers *SystemHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (handlers *SystemHandlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, build.GetBuildInfo())
}
