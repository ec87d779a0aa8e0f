package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

const analyticsCachePrefix = "analytics"

// CacheStore persists opaque payloads; Load signals absence with ErrCacheMiss.
type CacheStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Purge(ctx context.Context, prefix string) (int, error)
}

// CacheService is a JSON read-through cache over a CacheStore. A nil or
// disabled service behaves as a permanent miss.
type CacheService struct {
	store   CacheStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
	loads   singleflight.Group

	// generation advances on every invalidation; loads that straddle one
	// must not write their result back.
	genMu      sync.RWMutex
	generation uint64
}

func NewCacheService(store CacheStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{store: store, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// AnalyticsKey names one scoped overview: analytics:admin,
// analytics:teacher:<id> or analytics:student:<id>.
func AnalyticsKey(scope, subjectID string) string {
	key := analyticsCachePrefix + ":" + scope
	if subjectID != "" {
		key += ":" + subjectID
	}
	return key
}

func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.store != nil
}

// Get decodes the entry at key into dest and reports whether it was found.
// Undecodable entries count as misses.
func (s *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	start := time.Now()
	payload, err := s.store.Load(ctx, key)
	if err == nil {
		if decodeErr := json.Unmarshal(payload, dest); decodeErr != nil {
			s.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(decodeErr))
			err = appErrors.ErrCacheMiss
		}
	}
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set encodes value under key. A non-positive ttl selects the default.
func (s *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.store.Store(ctx, key, payload, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every entry whose key starts with prefix.
func (s *CacheService) Invalidate(ctx context.Context, prefix string) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	s.genMu.Lock()
	s.generation++
	s.genMu.Unlock()

	n, err := s.store.Purge(ctx, prefix)
	if err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		return n, err
	}
	s.logger.Debug("cache invalidated", zap.String("prefix", prefix), zap.Int("keys", n))
	return n, nil
}

// InvalidateAnalytics drops every cached overview. Attendance and enrollment
// writes call it after commit; failures are logged and swallowed.
func (s *CacheService) InvalidateAnalytics(ctx context.Context) {
	_, _ = s.Invalidate(ctx, analyticsCachePrefix+":")
}

// Remember returns the cached value at key, or runs load, caches its result
// and returns it. Concurrent misses on the same key share a single load. A
// result is not cached when an invalidation ran while it was loading. The
// boolean is true only for a cache hit.
func Remember[T any](ctx context.Context, s *CacheService, key string, load func(context.Context) (T, error)) (T, bool, error) {
	var cached T
	if hit, err := s.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}
	if !s.Enabled() {
		value, err := load(ctx)
		return value, false, err
	}

	gen := s.currentGeneration()
	// The shared load must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	result, err, _ := s.loads.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		value, err := load(shared)
		if err != nil {
			return nil, err
		}
		s.storeIfCurrent(shared, key, value, gen)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return result.(T), false, nil
}

func (s *CacheService) currentGeneration() uint64 {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.generation
}

// storeIfCurrent caches value unless an invalidation happened since gen was
// read. Invalidation waits for the read lock, so its purge always runs after
// any store that passed the check.
func (s *CacheService) storeIfCurrent(ctx context.Context, key string, value any, gen uint64) {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	if s.generation != gen {
		s.logger.Debug("skipping stale cache fill", zap.String("key", key))
		return
	}
	_ = s.Set(ctx, key, value, 0)
}
