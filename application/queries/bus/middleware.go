package bus

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache stores query results. ttl is in seconds.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
}

// CacheKeyer lets a query choose its own cache key
type CacheKeyer interface {
	CacheKey() string
}

// CachingMiddleware serves repeated queries from a Cache. Concurrent misses
// for the same key share one handler call, which is not cancelled when one of
// the waiting callers goes away. Errors are never cached.
type CachingMiddleware struct {
	cache  Cache
	ttl    int
	logger *zap.Logger
	flight singleflight.Group
}

// NewCachingMiddleware creates a caching decorator with a TTL in seconds
func NewCachingMiddleware(cache Cache, ttl int, logger *zap.Logger) *CachingMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingMiddleware{cache: cache, ttl: ttl, logger: logger}
}

// Wrap implements Middleware
func (m *CachingMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		key := cacheKey(query)
		if hit, ok := m.cache.Get(ctx, key); ok {
			return hit, nil
		}

		loadCtx := context.WithoutCancel(ctx)
		ch := m.flight.DoChan(key, func() (interface{}, error) {
			result, err := next.Handle(loadCtx, query)
			if err != nil {
				return nil, err
			}
			if err := m.cache.Set(loadCtx, key, result, m.ttl); err != nil {
				m.logger.Warn("Failed to cache query result",
					zap.String("query", QueryName(query)),
					zap.String("key", key),
					zap.Error(err),
				)
			}
			return result, nil
		})

		select {
		case res := <-ch:
			return res.Val, res.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func cacheKey(query Query) string {
	if k, ok := query.(CacheKeyer); ok {
		return QueryName(query) + ":" + k.CacheKey()
	}
	return fmt.Sprintf("%s:%+v", QueryName(query), query)
}

// Metrics observes handled queries
type Metrics interface {
	ObserveQuery(name string, duration time.Duration, success bool)
}

// MetricsMiddleware reports the latency and outcome of every query
type MetricsMiddleware struct {
	metrics Metrics
	now     func() time.Time
}

// NewMetricsMiddleware creates a metrics decorator
func NewMetricsMiddleware(metrics Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: metrics, now: time.Now}
}

// Wrap implements Middleware
func (m *MetricsMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		start := m.now()
		result, err := next.Handle(ctx, query)
		m.metrics.ObserveQuery(QueryName(query), m.now().Sub(start), err == nil)
		return result, err
	})
}
