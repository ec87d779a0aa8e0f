package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

const purgeScanCount = 200

// CacheRepository keeps opaque payloads in Redis. Every key is namespaced so
// several deployments can share one database. With a nil client every load
// misses and every store or purge is a no-op.
type CacheRepository struct {
	client    *redis.Client
	namespace string
}

func NewCacheRepository(client *redis.Client, namespace string) *CacheRepository {
	return &CacheRepository{client: client, namespace: namespace}
}

func (r *CacheRepository) qualify(key string) string {
	if r.namespace == "" {
		return key
	}
	return r.namespace + ":" + key
}

func (r *CacheRepository) disabled() bool {
	return r == nil || r.client == nil
}

// Load returns the stored payload or ErrCacheMiss.
func (r *CacheRepository) Load(ctx context.Context, key string) ([]byte, error) {
	if r.disabled() {
		return nil, appErrors.ErrCacheMiss
	}
	payload, err := r.client.Get(ctx, r.qualify(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, appErrors.ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("cache load %q: %w", key, err)
	}
	return payload, nil
}

func (r *CacheRepository) Store(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if r.disabled() {
		return nil
	}
	if err := r.client.Set(ctx, r.qualify(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache store %q: %w", key, err)
	}
	return nil
}

// Purge unlinks every key under prefix, one SCAN page at a time, and reports
// how many were removed.
func (r *CacheRepository) Purge(ctx context.Context, prefix string) (int, error) {
	if r.disabled() {
		return 0, nil
	}
	match := r.qualify(prefix) + "*"

	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, purgeScanCount).Result()
		if err != nil {
			return removed, fmt.Errorf("cache scan %q: %w", match, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("cache unlink %q: %w", match, err)
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// Ping reports Redis reachability for readiness checks.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.disabled() {
		return nil
	}
	return r.client.Ping(ctx).Err()
}
