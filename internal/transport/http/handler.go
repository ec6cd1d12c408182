package http

import (
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/app/gate"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/auth"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/authz"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/tenant"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/infra/datastore"
	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/logger"
	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
)

// Identity headers added to allowed responses for the upstream proxy.
const (
	headerSubjectID   = "x-subject-id"
	headerTenantID    = "x-tenant-id"
	headerPermissions = "x-permissions"
	headerDatastore   = "x-datastore"

	// headerRequiredPermission lets the proxied route declare the
	// permission it requires.
	headerRequiredPermission = "X-Required-Permission"
)

type Handler struct {
	appService gate.Service
	registry   *datastore.Registry
}

func NewHandler(appService gate.Service, registry *datastore.Registry) *Handler {
	return &Handler{
		appService: appService,
		registry:   registry,
	}
}

// Check is the forward-auth surface: it runs the full gate pipeline for
// the upstream proxy and reports the decision through the status code.
func (h *Handler) Check(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.Check")
	defer span.End()

	rawToken, ok := bearerToken(c)
	if !ok {
		span.SetAttributes(attribute.Bool("gate.missing_header", true))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
		return
	}

	tc, err := h.appService.Check(ctx, rawToken, c.GetHeader(headerRequiredPermission))
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.Header(headerSubjectID, tc.Subject)
	c.Header(headerTenantID, tc.TenantID)
	c.Header(headerPermissions, strings.Join(tc.Permissions, ","))
	c.Header(headerDatastore, tc.Datastore.Name)
	c.Status(http.StatusOK)
}

// TenantInfo returns the caller's resolved tenant context. Requires the
// gate middleware to have run.
func (h *Handler) TenantInfo(c *gin.Context) {
	tc := TenantContextFrom(c)
	if tc == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject":     tc.Subject,
		"tenant_id":   tc.TenantID,
		"permissions": tc.Permissions,
		"datastore": gin.H{
			"name": tc.Datastore.Name,
			"role": tc.Datastore.Role,
		},
	})
}

// DatastorePing verifies the caller's tenant datastore is reachable
// through its routed connection pool.
func (h *Handler) DatastorePing(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.DatastorePing")
	defer span.End()

	tc := TenantContextFrom(c)
	if tc == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	pool, err := h.registry.Pool(ctx, tc.Datastore)
	if err != nil {
		span.RecordError(err)
		logger.ErrorContext(ctx, "failed to open datastore pool",
			slog.String("datastore", tc.Datastore.Name),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "datastore unavailable"})
		return
	}

	if err := pool.Ping(ctx); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "datastore unreachable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"datastore": tc.Datastore.Name, "status": "ok"})
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		authHeader = c.GetHeader("authorization")
	}
	if authHeader == "" {
		return "", false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// statusForError keeps "who are you" rejections (401) distinct from
// "you may not do that" rejections (403) for callers and observability.
func statusForError(err error) int {
	switch {
	case errors.Is(err, authz.ErrForbidden), errors.Is(err, tenant.ErrUnknownTenant):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrKeyDiscoveryTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrUnknownSigningKey),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrIssuerMismatch),
		errors.Is(err, auth.ErrAudienceMismatch),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
