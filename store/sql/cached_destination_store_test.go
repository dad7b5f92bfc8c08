package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-lawcast/core"
)

type stubDestinationStore struct {
	mu         sync.Mutex
	stats      core.DestinationStats
	statsCalls int
	statsErr   error
}

func (s *stubDestinationStore) ListActive(context.Context) ([]core.Destination, error) {
	return nil, nil
}

func (s *stubDestinationStore) DeactivateMany(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Active -= len(ids)
	s.stats.Inactive += len(ids)
	return nil
}

func (s *stubDestinationStore) Create(_ context.Context, url string) (core.Destination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Total++
	s.stats.Active++
	return core.Destination{ID: int64(s.stats.Total), URL: url, Active: true}, nil
}

func (s *stubDestinationStore) Get(context.Context, int64) (core.Destination, error) {
	return core.Destination{}, core.ErrDestinationNotFound
}

func (s *stubDestinationStore) FindByURL(context.Context, string) (core.Destination, error) {
	return core.Destination{}, core.ErrDestinationNotFound
}

func (s *stubDestinationStore) Deactivate(context.Context, int64) error {
	return s.DeactivateMany(context.Background(), []int64{0})
}

func (s *stubDestinationStore) Reactivate(context.Context, int64) (core.Destination, error) {
	return core.Destination{}, nil
}

func (s *stubDestinationStore) CountActive(context.Context) (int, error) {
	return s.stats.Active, nil
}

func (s *stubDestinationStore) Stats(context.Context) (core.DestinationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsCalls++
	if s.statsErr != nil {
		return core.DestinationStats{}, s.statsErr
	}
	return s.stats, nil
}

func newTestCachedStore(t *testing.T, base *stubDestinationStore) *CachedDestinationStore {
	t.Helper()
	cacheService, err := NewDestinationStatsCache(time.Minute)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	store, err := NewCachedDestinationStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	return store
}

func TestCachedDestinationStore_StatsHitAfterMiss(t *testing.T) {
	ctx := context.Background()
	base := &stubDestinationStore{stats: core.DestinationStats{Total: 2, Active: 2}}
	store := newTestCachedStore(t, base)

	for i := 0; i < 3; i++ {
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.Active != 2 {
			t.Fatalf("unexpected stats %#v", stats)
		}
	}
	if base.statsCalls != 1 {
		t.Fatalf("expected a single base read, got %d", base.statsCalls)
	}
}

func TestCachedDestinationStore_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	base := &stubDestinationStore{stats: core.DestinationStats{Total: 1, Active: 1}}
	store := newTestCachedStore(t, base)

	if _, err := store.Stats(ctx); err != nil {
		t.Fatalf("prime stats: %v", err)
	}
	if _, err := store.Create(ctx, "https://example.org/hook"); err != nil {
		t.Fatalf("create: %v", err)
	}
	count, err := store.CountActive(ctx)
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected fresh count after create, got %d", count)
	}

	if err := store.DeactivateMany(ctx, []int64{1}); err != nil {
		t.Fatalf("deactivate many: %v", err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Active != 1 || stats.Inactive != 1 {
		t.Fatalf("expected invalidated stats, got %#v", stats)
	}
	if base.statsCalls != 3 {
		t.Fatalf("expected three base reads, got %d", base.statsCalls)
	}
}

func TestCachedDestinationStore_PropagatesErrors(t *testing.T) {
	base := &stubDestinationStore{statsErr: errors.New("db down")}
	store := newTestCachedStore(t, base)
	if _, err := store.Stats(context.Background()); err == nil {
		t.Fatalf("expected base error")
	}
}

func TestNewCachedDestinationStore_RequiresDependencies(t *testing.T) {
	if _, err := NewCachedDestinationStore(nil, nil); err == nil {
		t.Fatalf("expected missing base error")
	}
}
