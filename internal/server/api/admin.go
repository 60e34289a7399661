package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/fx"

	"github.com/guardpost/guardpost/internal/policy"
	"github.com/guardpost/guardpost/internal/server/biz"
)

type AdminHandlersParams struct {
	fx.In

	PolicyService *biz.PolicyService
}

// AdminHandlers exposes the administrative operations. Authorization is
// enforced by the permission-check middleware in front of every route here;
// the handlers only translate HTTP to the policy service.
type AdminHandlers struct {
	PolicyService *biz.PolicyService
}

func NewAdminHandlers(params AdminHandlersParams) *AdminHandlers {
	return &AdminHandlers{PolicyService: params.PolicyService}
}

type enableServiceRequest struct {
	PermissionLevel policy.PermissionLevel `json:"permission_level" binding:"required"`
}

func (handlers *AdminHandlers) EnableService(c *gin.Context) {
	var req enableServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, err)
		return
	}

	state, err := handlers.PolicyService.EnableService(c.Request.Context(), c.Param("service"), req.PermissionLevel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (handlers *AdminHandlers) DisableService(c *gin.Context) {
	state, err := handlers.PolicyService.DisableService(c.Request.Context(), c.Param("service"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

type setLevelRequest struct {
	PermissionLevel policy.PermissionLevel `json:"permission_level" binding:"required"`
}

func (handlers *AdminHandlers) SetPermissionLevel(c *gin.Context) {
	var req setLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, err)
		return
	}

	state, err := handlers.PolicyService.SetPermissionLevel(c.Request.Context(), c.Param("service"), req.PermissionLevel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

type setAnonymizationRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (handlers *AdminHandlers) SetAnonymization(c *gin.Context) {
	var req setAnonymizationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		JSONError(c, http.StatusBadRequest, err)
		return
	}

	state, err := handlers.PolicyService.SetAnonymization(c.Request.Context(), c.Param("service"), *req.Enabled)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (handlers *AdminHandlers) ResetService(c *gin.Context) {
	state, err := handlers.PolicyService.ResetService(c.Request.Context(), c.Param("service"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (handlers *AdminHandlers) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services": handlers.PolicyService.ListServices(c.Request.Context()),
	})
}

func (handlers *AdminHandlers) RecentAudit(c *gin.Context) {
	count := cast.ToInt(c.DefaultQuery("count", "50"))
	if count <= 0 {
		count = 50
	}

	entries, err := handlers.PolicyService.RecentAudit(c.Request.Context(), count)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
