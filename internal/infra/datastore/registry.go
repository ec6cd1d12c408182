package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/tenant"
	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/logger"
)

// Registry owns the per-tenant connection pools. The gate hands it a
// routing decision (a datastore descriptor); the registry establishes
// and reuses the pool for that descriptor. Pools are created lazily on
// first use and shared by all requests routed to the same datastore.
type Registry struct {
	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]*pgxpool.Pool)}
}

// Pool returns the connection pool for the given datastore, creating it
// on first use.
func (r *Registry) Pool(ctx context.Context, ds *tenant.Datastore) (*pgxpool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pool, ok := r.pools[ds.Name]; ok {
		return pool, nil
	}

	cfg, err := pgxpool.ParseConfig(ds.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid DSN for datastore %q: %w", ds.Name, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool for datastore %q: %w", ds.Name, err)
	}

	logger.InfoContext(ctx, "datastore pool created", slog.String("datastore", ds.Name))

	r.pools[ds.Name] = pool
	return pool, nil
}

// Close shuts down every pool. Called once on server shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, pool := range r.pools {
		pool.Close()
		delete(r.pools, name)
	}
}
