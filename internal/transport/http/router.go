package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/app/gate"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(handler *Handler, appService gate.Service, cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	if cfg.Observability.TraceEnabled {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// Forward-auth surface: the upstream proxy declares the required
	// permission per route via the X-Required-Permission header.
	router.Any("/auth/check/*path", handler.Check)

	// In-process tenant-scoped endpoints.
	api := router.Group("/api")
	{
		api.GET("/tenant",
			requireGate(appService, "read:tenant-info"), handler.TenantInfo)
		api.GET("/tenant/datastore/ping",
			requireGate(appService, "read:tenant-data"), handler.DatastorePing)
	}

	return router
}
