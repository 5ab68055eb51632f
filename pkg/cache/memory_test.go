package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestMemoryCacheGetSetDelete(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if _, err := mc.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
	if err := mc.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := mc.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("get = %q, %v", got, err)
	}
	_ = mc.Delete(ctx, "k")
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatalf("expected key to be gone")
	}
}

func TestMemoryCacheZeroExpirationNeverExpires(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mc := NewMemoryCache(WithMemoryClock(clk.now))
	defer mc.Close()

	_ = mc.Set(ctx, "forever", "1", 0)
	_ = mc.Set(ctx, "short", "2", time.Minute)

	clk.t = clk.t.Add(365 * 24 * time.Hour)
	if _, err := mc.Get(ctx, "forever"); err != nil {
		t.Fatalf("expected persistent key, got %v", err)
	}
	if _, err := mc.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired key, got %v", err)
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mc := NewMemoryCache(WithMemoryClock(clk.now))
	defer mc.Close()

	if ok, _ := mc.TryLock(ctx, "l", 10*time.Second); !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "l", 10*time.Second); ok {
		t.Fatalf("second lock should fail while held")
	}
	clk.t = clk.t.Add(11 * time.Second)
	if ok, _ := mc.TryLock(ctx, "l", 10*time.Second); !ok {
		t.Fatalf("lock should be free after ttl")
	}
	_ = mc.Unlock(ctx, "l")
	if ok, _ := mc.TryLock(ctx, "l", 10*time.Second); !ok {
		t.Fatalf("lock should be free after unlock")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(clk.now))
	defer mc.Close()

	_ = mc.Set(ctx, "a", "1", 0)
	clk.t = clk.t.Add(time.Second)
	_ = mc.Set(ctx, "b", "2", 0)
	clk.t = clk.t.Add(time.Second)
	_, _ = mc.Get(ctx, "a")
	clk.t = clk.t.Add(time.Second)
	_ = mc.Set(ctx, "c", "3", 0)

	if _, err := mc.Get(ctx, "b"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected b to be evicted")
	}
	if mc.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", mc.Len())
	}
}
