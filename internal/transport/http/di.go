package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/reshmi-chandran/tenant-auth-gateway/internal/app/gate"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/config"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/auth"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/authz"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/tenant"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/infra/catalog"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/infra/datastore"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/infra/keyset"
	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/logger"
	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/otel"
	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/tracer"
)

type Server struct {
	httpServer *http.Server
	registry   *datastore.Registry
}

const (
	idleTimeoutMultiplier = 2
	serviceName           = "tenant-auth-gateway"
)

func NewServer(cfg *config.Config) (*Server, error) {
	logger.Init(cfg.Observability.LogLevel, cfg.Observability.Format, cfg.Observability.LogSource)

	otelCfg := otel.Config{
		ServiceName: serviceName,
		EndpointURL: cfg.Observability.TracingEndpointURL,
		Enabled:     cfg.Observability.TraceEnabled,
		SampleRatio: 1.0,
		Insecure:    true,
	}
	if err := tracer.InitTracer(serviceName, otelCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	keyCache := keyset.New(cfg.Auth.JWKSURL, cfg.Auth.KeySetTTL, cfg.Auth.RefreshTimeout)
	authService := auth.NewService(keyCache, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.ClockSkew)
	authzService := authz.NewService(authz.NewMapping(cfg.Roles))

	tenantCatalog, err := newCatalog(cfg)
	if err != nil {
		return nil, err
	}
	tenantResolver := tenant.NewResolver(tenantCatalog)

	registry := datastore.NewRegistry()

	appService := gate.NewService(authService, authzService, tenantResolver)
	handler := NewHandler(appService, registry)
	router := NewRouter(handler, appService, cfg)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * idleTimeoutMultiplier,
	}

	return &Server{
		httpServer: httpServer,
		registry:   registry,
	}, nil
}

func newCatalog(cfg *config.Config) (tenant.Catalog, error) {
	switch cfg.Tenants.Source {
	case "redis":
		client, err := catalog.NewRedisClient(cfg.Tenants.Redis.URL, cfg.Tenants.Redis.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		return catalog.NewRedis(client, cfg.Tenants.Redis.KeyPrefix), nil
	default:
		return catalog.NewStatic(cfg.Tenants.Static), nil
	}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.registry.Close()
	return err
}
