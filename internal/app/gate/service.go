package gate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/auth"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/authz"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/tenant"
	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/logger"
	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
)

// TenantContext is the per-request outcome of a fully authorized call:
// who the caller is, which tenant they belong to, what they may do, and
// which datastore their requests route to. Created once per validated
// request and discarded when the request ends.
type TenantContext struct {
	Subject     string
	TenantID    string
	Permissions []string
	Datastore   *tenant.Datastore
}

// Service runs the single-pass authorization pipeline: authenticate the
// bearer token, check the endpoint's required permission, resolve the
// tenant's datastore. Each request is independent; no state survives it.
type Service interface {
	// Check runs the full pipeline. An empty requiredPermission skips
	// the permission check (authenticate-and-route only).
	Check(ctx context.Context, rawToken, requiredPermission string) (*TenantContext, error)
}

type service struct {
	authn   auth.Service
	authz   authz.Service
	tenants tenant.Resolver
}

func NewService(authn auth.Service, authzSvc authz.Service, tenants tenant.Resolver) Service {
	return &service{
		authn:   authn,
		authz:   authzSvc,
		tenants: tenants,
	}
}

func (s *service) Check(ctx context.Context, rawToken, requiredPermission string) (*TenantContext, error) {
	ctx, span := tracer.Start(ctx, "app.gate.Check")
	defer span.End()

	identity, err := s.authn.Authenticate(ctx, rawToken)
	if err != nil {
		span.SetAttributes(
			attribute.String("gate.state", "rejected"),
			attribute.String("gate.rejected_at", rejectionStage(err)),
		)
		logger.WarnContext(ctx, "authentication rejected", slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("gate.tenant_id", identity.TenantID),
		attribute.String("gate.subject", identity.Subject),
	)

	if requiredPermission != "" {
		if err := s.authz.Authorize(identity, requiredPermission); err != nil {
			span.SetAttributes(
				attribute.String("gate.state", "rejected"),
				attribute.String("gate.rejected_at", "authorized"),
			)
			logger.WarnContext(ctx, "authorization denied",
				slog.String("subject", identity.Subject),
				slog.String("tenant_id", identity.TenantID),
				slog.String("required_permission", requiredPermission),
			)
			return nil, err
		}
	}

	ds, err := s.tenants.ResolveDatastore(ctx, identity)
	if err != nil {
		span.SetAttributes(
			attribute.String("gate.state", "rejected"),
			attribute.String("gate.rejected_at", "routed"),
		)
		logger.WarnContext(ctx, "tenant routing failed",
			slog.String("tenant_id", identity.TenantID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("gate.state", "routed"),
		attribute.String("gate.datastore", ds.Name),
	)

	return &TenantContext{
		Subject:     identity.Subject,
		TenantID:    identity.TenantID,
		Permissions: s.authz.EffectivePermissions(identity),
		Datastore:   ds,
	}, nil
}

// rejectionStage names the pipeline stage an authentication error maps
// to, for trace attribution.
func rejectionStage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrMalformedToken):
		return "structure_parsed"
	case errors.Is(err, auth.ErrUnknownSigningKey),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrKeyDiscoveryTimeout):
		return "signature_verified"
	default:
		return "claims_verified"
	}
}
