package tenant

import (
	"context"
	"fmt"

	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/auth"
)

// Catalog looks up the datastore registered for a tenant. Backed by
// either static configuration or an external catalog; read-only from
// the gate's perspective.
type Catalog interface {
	Lookup(ctx context.Context, tenantID string) (*Datastore, error)
}

// Resolver maps a validated identity to its tenant's datastore. Exactly
// one datastore exists per known tenant; resolution is pure given an
// unchanged catalog.
type Resolver interface {
	ResolveDatastore(ctx context.Context, identity *auth.Identity) (*Datastore, error)
}

type resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) Resolver {
	return &resolver{catalog: catalog}
}

func (r *resolver) ResolveDatastore(ctx context.Context, identity *auth.Identity) (*Datastore, error) {
	if identity.TenantID == "" {
		return nil, fmt.Errorf("%w: token carries no tenant id", ErrUnknownTenant)
	}

	ds, err := r.catalog.Lookup(ctx, identity.TenantID)
	if err != nil {
		return nil, err
	}
	return ds, nil
}
