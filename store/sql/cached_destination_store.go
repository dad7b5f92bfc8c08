package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-lawcast/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const destinationStatsCacheKey = "go-lawcast::destination_stats::v1"

// CachedDestinationStore serves Stats and CountActive from a cache and drops
// the cached entries on every write.
type CachedDestinationStore struct {
	core.DestinationStore
	cache repositorycache.CacheService
}

func NewCachedDestinationStore(
	base core.DestinationStore,
	cacheService repositorycache.CacheService,
) (*CachedDestinationStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base destination store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: destination stats cache service is required")
	}
	return &CachedDestinationStore{DestinationStore: base, cache: cacheService}, nil
}

// NewDestinationStatsCache builds an in-process cache service with ttl.
func NewDestinationStatsCache(ttl time.Duration) (repositorycache.CacheService, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	return repositorycache.NewCacheService(config)
}

func (s *CachedDestinationStore) Stats(ctx context.Context) (core.DestinationStats, error) {
	return repositorycache.GetOrFetch(ctx, s.cache, destinationStatsCacheKey, func(ctx context.Context) (core.DestinationStats, error) {
		return s.DestinationStore.Stats(ctx)
	})
}

func (s *CachedDestinationStore) CountActive(ctx context.Context) (int, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.Active, nil
}

func (s *CachedDestinationStore) Create(ctx context.Context, url string) (core.Destination, error) {
	destination, err := s.DestinationStore.Create(ctx, url)
	if err != nil {
		return core.Destination{}, err
	}
	return destination, s.invalidate(ctx)
}

func (s *CachedDestinationStore) Deactivate(ctx context.Context, id int64) error {
	if err := s.DestinationStore.Deactivate(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedDestinationStore) Reactivate(ctx context.Context, id int64) (core.Destination, error) {
	destination, err := s.DestinationStore.Reactivate(ctx, id)
	if err != nil {
		return core.Destination{}, err
	}
	return destination, s.invalidate(ctx)
}

func (s *CachedDestinationStore) DeactivateMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.DestinationStore.DeactivateMany(ctx, ids); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedDestinationStore) invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, destinationStatsCacheKey)
}
