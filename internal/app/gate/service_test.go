package gate_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/app/gate"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/config"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/auth"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/authz"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/tenant"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/infra/catalog"
)

type mockAuthn struct {
	identity *auth.Identity
	err      error
}

func (m *mockAuthn) Authenticate(_ context.Context, _ string) (*auth.Identity, error) {
	return m.identity, m.err
}

type countingAuthz struct {
	calls int
	err   error
}

func (m *countingAuthz) Authorize(_ *auth.Identity, _ string) error {
	m.calls++
	return m.err
}

func (m *countingAuthz) EffectivePermissions(_ *auth.Identity) []string {
	return []string{"read:customer-data"}
}

type countingResolver struct {
	calls int
	ds    *tenant.Datastore
	err   error
}

func (m *countingResolver) ResolveDatastore(_ context.Context, _ *auth.Identity) (*tenant.Datastore, error) {
	m.calls++
	return m.ds, m.err
}

func TestService_Check_AuthenticationFailureShortCircuits(t *testing.T) {
	authzSvc := &countingAuthz{}
	resolver := &countingResolver{}
	svc := gate.NewService(&mockAuthn{err: auth.ErrTokenExpired}, authzSvc, resolver)

	_, err := svc.Check(context.Background(), "some-token", "read:customer-data")
	if !errors.Is(err, auth.ErrTokenExpired) {
		t.Fatalf("Check() = %v, want ErrTokenExpired", err)
	}

	if authzSvc.calls != 0 {
		t.Errorf("Authorize called %d times after failed authentication, want 0", authzSvc.calls)
	}
	if resolver.calls != 0 {
		t.Errorf("ResolveDatastore called %d times after failed authentication, want 0", resolver.calls)
	}
}

func TestService_Check_ForbiddenStopsBeforeRouting(t *testing.T) {
	identity := &auth.Identity{Subject: "user-1", TenantID: "tenant-A"}
	authzSvc := &countingAuthz{err: authz.ErrForbidden}
	resolver := &countingResolver{}
	svc := gate.NewService(&mockAuthn{identity: identity}, authzSvc, resolver)

	_, err := svc.Check(context.Background(), "token", "write:billing")
	if !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("Check() = %v, want ErrForbidden", err)
	}
	if resolver.calls != 0 {
		t.Errorf("ResolveDatastore called %d times after denial, want 0", resolver.calls)
	}
}

func TestService_Check_EmptyPermissionSkipsAuthorization(t *testing.T) {
	identity := &auth.Identity{Subject: "user-1", TenantID: "tenant-A"}
	authzSvc := &countingAuthz{err: authz.ErrForbidden}
	resolver := &countingResolver{ds: &tenant.Datastore{TenantID: "tenant-A", Name: "db-a"}}
	svc := gate.NewService(&mockAuthn{identity: identity}, authzSvc, resolver)

	tc, err := svc.Check(context.Background(), "token", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if authzSvc.calls != 0 {
		t.Errorf("Authorize called %d times for empty requirement, want 0", authzSvc.calls)
	}
	if tc.Datastore.Name != "db-a" {
		t.Errorf("Datastore.Name = %q, want %q", tc.Datastore.Name, "db-a")
	}
}

// End-to-end pipeline over real domain services: a validly signed token
// for tenant-A with the CustomerAdmin role passes authentication, the
// billing permission check, and datastore routing.
func TestService_Check_EndToEnd(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	const (
		issuer   = "https://issuer.example.com/"
		audience = "api://tenant-gateway"
	)

	resolver := &staticKeys{keys: map[string]crypto.PublicKey{"key-1": &key.PublicKey}}
	authnSvc := auth.NewService(resolver, issuer, audience, 0)
	authzSvc := authz.NewService(authz.NewMapping(map[string][]string{
		"CustomerAdmin": {"write:billing", "read:customer-data"},
	}))
	tenantResolver := tenant.NewResolver(catalog.NewStatic(map[string]config.TenantEntry{
		"tenant-A": {DatastoreName: "tenant-a-db", DSN: "postgres://gw@db-a:5432/a"},
	}))

	svc := gate.NewService(authnSvc, authzSvc, tenantResolver)

	sign := func(expires time.Time, tenantID string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":   issuer,
			"aud":   audience,
			"sub":   "user-123",
			"tid":   tenantID,
			"roles": []string{"CustomerAdmin"},
			"exp":   expires.Unix(),
		})
		token.Header["kid"] = "key-1"
		signed, signErr := token.SignedString(key)
		if signErr != nil {
			t.Fatalf("failed to sign token: %v", signErr)
		}
		return signed
	}

	t.Run("valid token routes to the tenant datastore", func(t *testing.T) {
		tc, checkErr := svc.Check(context.Background(), sign(time.Now().Add(time.Hour), "tenant-A"), "write:billing")
		if checkErr != nil {
			t.Fatalf("unexpected error: %v", checkErr)
		}
		if tc.Subject != "user-123" || tc.TenantID != "tenant-A" {
			t.Errorf("identity = %q/%q, want user-123/tenant-A", tc.Subject, tc.TenantID)
		}
		if tc.Datastore.Name != "tenant-a-db" {
			t.Errorf("Datastore.Name = %q, want tenant-a-db", tc.Datastore.Name)
		}
	})

	t.Run("expired token is rejected before authorization", func(t *testing.T) {
		_, checkErr := svc.Check(context.Background(), sign(time.Now().Add(-time.Hour), "tenant-A"), "write:billing")
		if !errors.Is(checkErr, auth.ErrTokenExpired) {
			t.Errorf("Check(expired) = %v, want ErrTokenExpired", checkErr)
		}
	})

	t.Run("valid token for unmapped tenant fails routing", func(t *testing.T) {
		_, checkErr := svc.Check(context.Background(), sign(time.Now().Add(time.Hour), "tenant-X"), "write:billing")
		if !errors.Is(checkErr, tenant.ErrUnknownTenant) {
			t.Errorf("Check(tenant-X) = %v, want ErrUnknownTenant", checkErr)
		}
	})
}

type staticKeys struct {
	keys map[string]crypto.PublicKey
}

func (s *staticKeys) ResolveKey(_ context.Context, kid string) (crypto.PublicKey, error) {
	key, ok := s.keys[kid]
	if !ok {
		return nil, errors.New("unknown kid")
	}
	return key, nil
}
