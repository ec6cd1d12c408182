package authz

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/auth"
)

// ErrForbidden means the identity's roles and scopes grant none of the
// mapped permissions matching the endpoint's requirement. Reported
// distinctly from authentication failures.
var ErrForbidden = errors.New("permission denied")

// Service decides whether an already-authenticated identity holds a
// required permission. It never re-inspects the token's cryptographic
// material; it operates purely on validated claims.
type Service interface {
	// Authorize grants iff at least one of the identity's roles or
	// scopes maps to the required permission.
	Authorize(identity *auth.Identity, requiredPermission string) error

	// EffectivePermissions returns the identity's full mapped permission set.
	EffectivePermissions(identity *auth.Identity) []string
}

// Reloadable is the external-control surface for swapping the role
// mapping between requests.
type Reloadable interface {
	Replace(mapping *Mapping)
}

type service struct {
	mapping atomic.Pointer[Mapping]
}

func NewService(mapping *Mapping) Service {
	s := &service{}
	s.mapping.Store(mapping)
	return s
}

func (s *service) Authorize(identity *auth.Identity, requiredPermission string) error {
	mapping := s.mapping.Load()

	// Roles and scopes are both consulted; either can carry the grant.
	if mapping.Grants(identity.Roles, requiredPermission) {
		return nil
	}
	if mapping.Grants(identity.Scopes, requiredPermission) {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrForbidden, requiredPermission)
}

func (s *service) EffectivePermissions(identity *auth.Identity) []string {
	mapping := s.mapping.Load()
	names := make([]string, 0, len(identity.Roles)+len(identity.Scopes))
	names = append(names, identity.Roles...)
	names = append(names, identity.Scopes...)
	return mapping.PermissionsFor(names)
}

func (s *service) Replace(mapping *Mapping) {
	s.mapping.Store(mapping)
}
