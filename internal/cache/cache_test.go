package cache

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache(1 * time.Hour)
	defer cache.Close()
	ctx := context.Background()

	err := cache.Set(ctx, "sources:20", []byte(`["BBC","CNN"]`))
	if err != nil {
		t.Fatalf("Failed to set cache entry: %v", err)
	}

	retrieved, err := cache.Get(ctx, "sources:20")
	if err != nil {
		t.Fatalf("Failed to get cache entry: %v", err)
	}
	if string(retrieved) != `["BBC","CNN"]` {
		t.Errorf("Unexpected value %s", retrieved)
	}

	_, err = cache.Get(ctx, "non-existent")
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}

	stats, err := cache.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.TotalEntries != 1 || stats.HitCount != 1 || stats.MissCount != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", stats.HitRate)
	}

	if err := cache.Delete(ctx, "sources:20"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := cache.Get(ctx, "sources:20"); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache(10 * time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	cache.Set(ctx, "categories", []byte(`[]`))
	time.Sleep(20 * time.Millisecond)

	if _, err := cache.Get(ctx, "categories"); err != ErrCacheMiss {
		t.Errorf("Expected expired entry to miss, got %v", err)
	}

	cache.Set(ctx, "authors:20", []byte(`[]`))
	time.Sleep(20 * time.Millisecond)
	cache.cleanupExpired()

	stats, _ := cache.GetStats(ctx)
	if stats.TotalEntries != 0 {
		t.Errorf("Expected cleanup to drop expired entries, got %d", stats.TotalEntries)
	}
}

func TestMemoryCacheClear(t *testing.T) {
	cache := NewMemoryCache(time.Hour)
	defer cache.Close()
	ctx := context.Background()

	cache.Set(ctx, "a", []byte("1"))
	cache.Get(ctx, "a")
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats, _ := cache.GetStats(ctx)
	if stats.TotalEntries != 0 || stats.HitCount != 0 {
		t.Errorf("Expected empty stats after clear, got %+v", stats)
	}

	// Close twice must not panic.
	cache.Close()
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryCache(time.Hour))
	defer m.Close()

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"BBC", "CNN"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(ctx, m, "sources:20", load)
		if err != nil {
			t.Fatalf("GetOrLoad failed: %v", err)
		}
		if !reflect.DeepEqual(got, []string{"BBC", "CNN"}) {
			t.Errorf("Unexpected value %v", got)
		}
	}
	if calls != 1 {
		t.Errorf("Expected loader to run once, ran %d times", calls)
	}

	if _, err := Refresh(ctx, m, "sources:20", load); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected refresh to reload, loader ran %d times", calls)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryCache(time.Hour))
	defer m.Close()

	boom := errors.New("database down")
	_, err := GetOrLoad(ctx, m, "categories", func(context.Context) ([]string, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected loader error, got %v", err)
	}

	got, err := GetOrLoad(ctx, m, "categories", func(context.Context) ([]string, error) {
		return []string{"World"}, nil
	})
	if err != nil || len(got) != 1 {
		t.Errorf("Expected fresh load after error, got %v, %v", got, err)
	}
}

func TestDisabledManager(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)

	calls := 0
	for i := 0; i < 2; i++ {
		GetOrLoad(ctx, m, "k", func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
	}
	if calls != 2 {
		t.Errorf("Expected every call to load without a backend, got %d", calls)
	}

	stats, err := m.GetStats(ctx)
	if err != nil || stats.Backend != "none" {
		t.Errorf("Unexpected stats %+v, %v", stats, err)
	}
	if err := m.Clear(ctx); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()

	rc, err := NewRedisCache(ctx, RedisOptions{Addr: addr, Prefix: "article-feed-test:", TTL: time.Minute})
	if err != nil {
		t.Skipf("Redis not reachable at %s: %v", addr, err)
	}
	defer rc.Close()
	defer rc.Clear(ctx)

	if err := rc.Set(ctx, "authors:20", []byte(`["Jane Doe"]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := rc.Get(ctx, "authors:20")
	if err != nil || string(got) != `["Jane Doe"]` {
		t.Fatalf("Get = %s, %v", got, err)
	}
	if _, err := rc.Get(ctx, "missing"); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}

	stats, err := rc.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalEntries != 1 || stats.HitCount != 1 || stats.MissCount != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}
