package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/guardpost/guardpost/internal/server/biz"
)

type ServiceHandlersParams struct {
	fx.In

	EventLogService   *biz.EventLogService
	FileSearchService *biz.FileSearchService
}

// ServiceHandlers exposes the guarded data services.
type ServiceHandlers struct {
	EventLogService   *biz.EventLogService
	FileSearchService *biz.FileSearchService
}

func NewServiceHandlers(params ServiceHandlersParams) *ServiceHandlers {
	return &ServiceHandlers{
		EventLogService:   params.EventLogService,
		FileSearchService: params.FileSearchService,
	}
}

func (handlers *ServiceHandlers) QueryEvents(c *gin.Context) {
	records, err := handlers.EventLogService.Query(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": records})
}

func (handlers *ServiceHandlers) AppendEvent(c *gin.Context) {
	var record biz.EventRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		JSONError(c, http.StatusBadRequest, err)
		return
	}

	if err := handlers.EventLogService.Append(c.Request.Context(), record); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (handlers *ServiceHandlers) SearchFiles(c *gin.Context) {
	matches, err := handlers.FileSearchService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

type indexFilesRequest struct {
	Paths []string `json:"paths" binding:"required"`
}

func (handlers *ServiceHandlers) IndexFiles(c *gin.Context) {
	var req indexFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, err)
		return
	}

	if err := handlers.FileSearchService.Index(c.Request.Context(), req.Paths...); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}
