package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/app/gate"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/config"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/auth"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/authz"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/tenant"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/infra/datastore"
	httptransport "github.com/reshmi-chandran/tenant-auth-gateway/internal/transport/http"
)

type mockGateService struct {
	checkFunc func(ctx context.Context, rawToken, requiredPermission string) (*gate.TenantContext, error)
}

func (m *mockGateService) Check(
	ctx context.Context,
	rawToken, requiredPermission string,
) (*gate.TenantContext, error) {
	if m.checkFunc != nil {
		return m.checkFunc(ctx, rawToken, requiredPermission)
	}
	return &gate.TenantContext{
		Subject:     "user-123",
		TenantID:    "tenant-A",
		Permissions: []string{"read:customer-data", "write:billing"},
		Datastore:   &tenant.Datastore{TenantID: "tenant-A", Name: "tenant-a-db"},
	}, nil
}

func newTestRouter(svc gate.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Mode = "test"

	handler := httptransport.NewHandler(svc, datastore.NewRegistry())
	return httptransport.NewRouter(handler, svc, cfg)
}

func TestHandler_Check_MissingAuthorizationHeader(t *testing.T) {
	router := newTestRouter(&mockGateService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/check/some/path", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandler_Check_Allowed(t *testing.T) {
	router := newTestRouter(&mockGateService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/check/some/path", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	req.Header.Set("X-Required-Permission", "read:customer-data")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	if got := w.Header().Get("x-subject-id"); got != "user-123" {
		t.Errorf("x-subject-id = %q, want %q", got, "user-123")
	}
	if got := w.Header().Get("x-tenant-id"); got != "tenant-A" {
		t.Errorf("x-tenant-id = %q, want %q", got, "tenant-A")
	}
	if got := w.Header().Get("x-permissions"); got != "read:customer-data,write:billing" {
		t.Errorf("x-permissions = %q, want joined permission list", got)
	}
	if got := w.Header().Get("x-datastore"); got != "tenant-a-db" {
		t.Errorf("x-datastore = %q, want %q", got, "tenant-a-db")
	}
}

func TestHandler_Check_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"expired token", auth.ErrTokenExpired, http.StatusUnauthorized},
		{"malformed token", auth.ErrMalformedToken, http.StatusUnauthorized},
		{"invalid signature", auth.ErrInvalidSignature, http.StatusUnauthorized},
		{"unknown signing key", auth.ErrUnknownSigningKey, http.StatusUnauthorized},
		{"issuer mismatch", auth.ErrIssuerMismatch, http.StatusUnauthorized},
		{"audience mismatch", auth.ErrAudienceMismatch, http.StatusUnauthorized},
		{"not yet valid", auth.ErrTokenNotYetValid, http.StatusUnauthorized},
		{"forbidden", authz.ErrForbidden, http.StatusForbidden},
		{"unknown tenant", tenant.ErrUnknownTenant, http.StatusForbidden},
		{"discovery timeout", auth.ErrKeyDiscoveryTimeout, http.StatusServiceUnavailable},
		{"unexpected error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockGateService{
				checkFunc: func(_ context.Context, _, _ string) (*gate.TenantContext, error) {
					return nil, tt.err
				},
			})

			req := httptest.NewRequest(http.MethodGet, "/auth/check/x", nil)
			req.Header.Set("Authorization", "Bearer some-token")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandler_Check_PassesRequiredPermissionHeader(t *testing.T) {
	var gotPermission string
	router := newTestRouter(&mockGateService{
		checkFunc: func(_ context.Context, _, requiredPermission string) (*gate.TenantContext, error) {
			gotPermission = requiredPermission
			return nil, authz.ErrForbidden
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/check/x", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	req.Header.Set("X-Required-Permission", "write:billing")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if gotPermission != "write:billing" {
		t.Errorf("required permission = %q, want %q", gotPermission, "write:billing")
	}
}

func TestHandler_TenantInfo(t *testing.T) {
	router := newTestRouter(&mockGateService{})

	req := httptest.NewRequest(http.MethodGet, "/api/tenant", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Subject  string `json:"subject"`
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Subject != "user-123" || body.TenantID != "tenant-A" {
		t.Errorf("body = %+v, want user-123/tenant-A", body)
	}
}

func TestHandler_TenantInfo_Forbidden(t *testing.T) {
	router := newTestRouter(&mockGateService{
		checkFunc: func(_ context.Context, _, _ string) (*gate.TenantContext, error) {
			return nil, authz.ErrForbidden
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tenant", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(&mockGateService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
