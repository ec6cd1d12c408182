package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/domain/tenant"
)

// catalogEntry is the JSON shape a tenant's record takes in the external
// catalog. Provisioning tooling owns writes; the gate only reads.
type catalogEntry struct {
	DatastoreName string `json:"datastore_name"`
	DSN           string `json:"dsn"`
	DatastoreRole string `json:"datastore_role"`
}

// Redis reads the tenant -> datastore mapping from an external Redis
// catalog, one key per tenant under the configured prefix.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisClient(url string, poolSize int) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	opt.PoolSize = poolSize

	client := redis.NewClient(opt)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewRedis(client *redis.Client, keyPrefix string) *Redis {
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) Lookup(ctx context.Context, tenantID string) (*tenant.Datastore, error) {
	val, err := r.client.Get(ctx, r.keyPrefix+tenantID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %q", tenant.ErrUnknownTenant, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant catalog: %w", err)
	}

	var entry catalogEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog entry for %q: %w", tenantID, err)
	}

	return &tenant.Datastore{
		TenantID: tenantID,
		Name:     entry.DatastoreName,
		DSN:      entry.DSN,
		Role:     entry.DatastoreRole,
	}, nil
}
