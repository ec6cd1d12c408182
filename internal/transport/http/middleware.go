package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/app/gate"
	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/logger"
)

const (
	headerRequestID  = "X-Request-ID"
	tenantContextKey = "tenant_context"
)

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		if status >= 500 {
			logger.ErrorContext(c.Request.Context(), "request failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Duration("duration", duration),
			)
		} else {
			logger.InfoContext(c.Request.Context(), "request completed",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Duration("duration", duration),
			)
		}
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)
		c.Next()
	}
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := origins[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requireGate runs the authorization pipeline for in-process endpoints
// and stores the resolved tenant context for the handler.
func requireGate(appService gate.Service, requiredPermission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		tc, err := appService.Check(c.Request.Context(), rawToken, requiredPermission)
		if err != nil {
			c.AbortWithStatusJSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		c.Set(tenantContextKey, tc)
		c.Next()
	}
}

// TenantContextFrom returns the tenant context stored by requireGate,
// or nil if the middleware did not run.
func TenantContextFrom(c *gin.Context) *gate.TenantContext {
	v, ok := c.Get(tenantContextKey)
	if !ok {
		return nil
	}
	tc, ok := v.(*gate.TenantContext)
	if !ok {
		return nil
	}
	return tc
}
