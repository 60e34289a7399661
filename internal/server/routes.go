package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/guardpost/guardpost/internal/contexts"
	"github.com/guardpost/guardpost/internal/intercept"
	"github.com/guardpost/guardpost/internal/server/api"
	"github.com/guardpost/guardpost/internal/server/middleware"
)

type Handlers struct {
	fx.In

	Admin    *api.AdminHandlers
	Services *api.ServiceHandlers
	System   *api.SystemHandlers
}

func SetupRoutes(server *Server, handlers Handlers, interceptor *intercept.Interceptor) {
	server.Use(middleware.AccessLog())
	server.Use(middleware.WithLoggingTracing(server.Config.Trace))

	// Setup CORS middleware at server level if enabled
	if server.Config.CORS.Enabled {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = server.Config.CORS.AllowedOrigins
		corsConfig.AllowMethods = server.Config.CORS.AllowedMethods
		corsConfig.AllowHeaders = server.Config.CORS.AllowedHeaders
		corsConfig.ExposeHeaders = server.Config.CORS.ExposedHeaders
		corsConfig.AllowCredentials = server.Config.CORS.AllowCredentials
		corsConfig.MaxAge = server.Config.CORS.MaxAge

		corsHandler := cors.New(corsConfig)
		server.Use(corsHandler)
		server.OPTIONS("*any", corsHandler)
	}

	gate := middleware.NewStaticTokenGate(server.Config.AdminToken)

	check := func(operation string) gin.HandlerFunc {
		return middleware.WithPermissionCheck(interceptor, operation)
	}

	publicGroup := server.Group("", middleware.WithTimeout(server.Config.RequestTimeout))
	{
		publicGroup.GET("/health", check("system.health"), handlers.System.Health)
		publicGroup.GET("/version", check("system.version"), handlers.System.Version)
	}

	dataGroup := server.Group("/v1",
		middleware.WithTimeout(server.Config.RequestTimeout),
		middleware.WithSource(contexts.SourceDataAPI),
	)
	{
		dataGroup.GET("/events", check("eventlog.query"), handlers.Services.QueryEvents)
		dataGroup.POST("/events", check("eventlog.append"), handlers.Services.AppendEvent)
		dataGroup.GET("/files/search", check("filesearch.query"), handlers.Services.SearchFiles)
		dataGroup.POST("/files/index", check("filesearch.index"), handlers.Services.IndexFiles)
	}

	adminGroup := server.Group("/admin",
		middleware.WithTimeout(server.Config.RequestTimeout),
		middleware.WithSource(contexts.SourceAdminAPI),
		middleware.WithAdminGate(gate),
	)
	{
		adminGroup.GET("/services", check("admin.list_services"), handlers.Admin.ListServices)
		adminGroup.POST("/services/:service/enable", check("admin.enable_service"), handlers.Admin.EnableService)
		adminGroup.POST("/services/:service/disable", check("admin.disable_service"), handlers.Admin.DisableService)
		adminGroup.PUT("/services/:service/level", check("admin.set_level"), handlers.Admin.SetPermissionLevel)
		adminGroup.PUT("/services/:service/anonymization", check("admin.set_anonymization"), handlers.Admin.SetAnonymization)
		adminGroup.POST("/services/:service/reset", check("admin.reset_config"), handlers.Admin.ResetService)
		adminGroup.GET("/audit", check("admin.audit_recent"), handlers.Admin.RecentAudit)
	}
}
