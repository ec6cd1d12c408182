package catalog

import (
	"context"
	"fmt"

	"github.com/reshmi-chandran/tenant-auth-gateway/internal/config"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/tenant"
)

// Static serves tenant -> datastore lookups from configuration loaded at
// process start. The mapping is immutable for the process lifetime.
type Static struct {
	entries map[string]*tenant.Datastore
}

func NewStatic(entries map[string]config.TenantEntry) *Static {
	m := make(map[string]*tenant.Datastore, len(entries))
	for tenantID, entry := range entries {
		m[tenantID] = &tenant.Datastore{
			TenantID: tenantID,
			Name:     entry.DatastoreName,
			DSN:      entry.DSN,
			Role:     entry.DatastoreRole,
		}
	}
	return &Static{entries: m}
}

func (s *Static) Lookup(_ context.Context, tenantID string) (*tenant.Datastore, error) {
	ds, ok := s.entries[tenantID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", tenant.ErrUnknownTenant, tenantID)
	}
	return ds, nil
}
