package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trendscout/application/ports"
	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
)

// Cache is the subset of the memory cache used by CachingProvider
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
}

// CachingProvider serves repeated searches for a keyword from cache.
// Only successful pages are cached; failures always reach the provider.
type CachingProvider struct {
	next   ports.ContentSearchProvider
	cache  Cache
	ttl    int
	logger *zap.Logger
}

// NewCachingProvider wraps a provider. ttl is in seconds.
func NewCachingProvider(next ports.ContentSearchProvider, cache Cache, ttl int, logger *zap.Logger) *CachingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingProvider{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Search implements ports.ContentSearchProvider
func (p *CachingProvider) Search(ctx context.Context, keyword string, pageSize int) (*entities.SearchResult, error) {
	key := cacheKey(keyword, pageSize)
	if cached, ok := p.cache.Get(ctx, key); ok {
		if result, ok := cached.(*entities.SearchResult); ok {
			return result, nil
		}
	}

	result, err := p.next.Search(ctx, keyword, pageSize)
	if err != nil || result == nil || !result.Success {
		return result, err
	}

	if err := p.cache.Set(ctx, key, result, p.ttl); err != nil {
		p.logger.Warn("Failed to cache search result", zap.String("keyword", keyword), zap.Error(err))
	}
	return result, nil
}

func cacheKey(keyword string, pageSize int) string {
	return fmt.Sprintf("search:%s:%d", valueobjects.NormalizeKeyword(keyword), pageSize)
}
