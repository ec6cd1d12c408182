package tenant

import "errors"

// ErrUnknownTenant means no datastore is registered for the token's
// tenant id. A hard failure, never retried: it indicates misconfiguration
// or a cross-tenant token, not transient unavailability.
var ErrUnknownTenant = errors.New("unknown tenant")

// Datastore is the connection descriptor for one tenant's isolated data
// store. The gate only ever routes to a descriptor; establishing and
// pooling the actual connection belongs to the datastore layer.
type Datastore struct {
	TenantID string
	// Name identifies the datastore in catalog entries and audit logs.
	Name string
	// DSN is the connection string for the tenant's database.
	DSN string
	// Role is the datastore-level role requests run under, enforcing
	// the second, database-side authorization layer.
	Role string
}
