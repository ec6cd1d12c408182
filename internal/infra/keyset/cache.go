package keyset

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reshmi-chandran/tenant-auth-gateway/pkg/logger"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrKeyNotFound means the key id is absent from the key set even
	// after a refresh. A persistent miss, never retried for the request.
	ErrKeyNotFound = errors.New("signing key not found in key set")

	// ErrDiscoveryTimeout means the bounded refresh did not complete in
	// time. The previously cached key set stays in place.
	ErrDiscoveryTimeout = errors.New("key discovery request timed out")

	// ErrDiscoveryFailed covers non-timeout refresh failures (endpoint
	// unreachable, bad status, unparseable body). Transient like a
	// timeout: the prior key set stays valid for subsequent requests.
	ErrDiscoveryFailed = errors.New("key discovery request failed")
)

// Resolver resolves a token's key id to a public verification key.
type Resolver interface {
	// ResolveKey returns the key for kid, refreshing the cached key set
	// at most once when kid is not present or the set has gone stale.
	ResolveKey(ctx context.Context, kid string) (crypto.PublicKey, error)
}

// Cache holds the signing key set fetched from the discovery endpoint.
// Reads are served under a shared lock from the current set; the only
// writer is the refresh path, and concurrent misses coalesce into a
// single outstanding discovery call.
type Cache struct {
	ttl            time.Duration
	refreshTimeout time.Duration
	fetch          func(ctx context.Context) (map[string]crypto.PublicKey, error)

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]crypto.PublicKey
	fetchedAt time.Time
}

func New(jwksURL string, ttl, refreshTimeout time.Duration) *Cache {
	return &Cache{
		ttl:            ttl,
		refreshTimeout: refreshTimeout,
		fetch: func(ctx context.Context) (map[string]crypto.PublicKey, error) {
			return FetchKeySet(ctx, jwksURL)
		},
	}
}

func (c *Cache) ResolveKey(ctx context.Context, kid string) (crypto.PublicKey, error) {
	if key, ok := c.lookup(kid); ok {
		return key, nil
	}

	// Exactly one refresh-and-retry per triggering request. Requests
	// that arrive while a refresh is in flight join it instead of
	// issuing their own discovery call.
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	key, ok := c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return key, nil
}

// lookup returns the key only when the cached set is still fresh.
func (c *Cache) lookup(kid string) (crypto.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.keys == nil || time.Since(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	key, ok := c.keys[kid]
	return key, ok
}

func (c *Cache) refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		// The refresh is detached from the triggering request so that a
		// caller hanging up does not abort a refresh other requests are
		// waiting on. The discovery call is bounded by its own timeout.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()

		keys, err := c.fetch(fetchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", ErrDiscoveryTimeout, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrDiscoveryFailed, err)
		}

		c.mu.Lock()
		c.keys = keys
		c.fetchedAt = time.Now()
		c.mu.Unlock()

		logger.DebugContext(ctx, "signing key set refreshed", slog.Int("keys", len(keys)))
		return nil, nil
	})
	return err
}
