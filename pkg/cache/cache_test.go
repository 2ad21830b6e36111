package cache

import (
	"fmt"
	"testing"
	"time"

	"minerva-ai/minerva/pkg/config"
	"minerva-ai/minerva/pkg/types"
)

func newTestCache(t *testing.T, capacity int) *Cache {
	t.Helper()
	cfg := config.DefaultConfig()
	if capacity > 0 {
		cfg.Cache.Capacity = capacity
	}
	return New(cfg, nil)
}

func TestKeyDeterministic(t *testing.T) {
	t.Run("identical inputs produce identical keys", func(t *testing.T) {
		a := Key("analyze me", 42, "some context")
		b := Key("analyze me", 42, "some context")
		if a != b {
			t.Errorf("keys differ: %q vs %q", a, b)
		}
	})

	t.Run("any input change produces a different key", func(t *testing.T) {
		base := Key("analyze me", 42, "some context")
		variants := map[string]string{
			"prompt":  Key("analyze me!", 42, "some context"),
			"user":    Key("analyze me", 43, "some context"),
			"context": Key("analyze me", 42, "other context"),
		}
		for name, key := range variants {
			if key == base {
				t.Errorf("changing %s did not change the key", name)
			}
		}
	})
}

func TestCacheRoundTrip(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put("analyze me", "result A", 7, "", types.KindExpressAnalysis, nil)

	got, ok := c.Get("analyze me", 7, "", types.KindExpressAnalysis)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got != "result A" {
		t.Errorf("Get() = %q, want %q", got, "result A")
	}

	if _, ok := c.Get("analyze me", 8, "", types.KindExpressAnalysis); ok {
		t.Error("expected a miss for a different user")
	}
	if _, ok := c.Get("analyze me", 7, "other", types.KindExpressAnalysis); ok {
		t.Error("expected a miss for a different context")
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := newTestCache(t, 2)

	c.Put("a", "response a", 1, "", types.KindGeneral, nil)
	c.Put("b", "response b", 1, "", types.KindGeneral, nil)

	// Touch a so b becomes the least recently used.
	if _, ok := c.Get("a", 1, "", types.KindGeneral); !ok {
		t.Fatal("expected hit on a")
	}

	c.Put("c", "response c", 1, "", types.KindGeneral, nil)

	if _, ok := c.Get("b", 1, "", types.KindGeneral); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a", 1, "", types.KindGeneral); !ok {
		t.Error("expected a to survive")
	}
	if _, ok := c.Get("c", 1, "", types.KindGeneral); !ok {
		t.Error("expected c to survive")
	}
	if got := c.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestCacheOverwritePreservesHitCount(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put("p", "first", 1, "", types.KindGeneral, nil)
	c.Get("p", 1, "", types.KindGeneral)
	c.Get("p", 1, "", types.KindGeneral)

	c.Put("p", "second", 1, "", types.KindGeneral, nil)

	popular := c.Popular(1)
	if len(popular) != 1 {
		t.Fatalf("Popular(1) returned %d entries, want 1", len(popular))
	}
	if popular[0].HitCount != 2 {
		t.Errorf("HitCount after overwrite = %d, want 2", popular[0].HitCount)
	}
	if popular[0].Response != "second" {
		t.Errorf("Response after overwrite = %q, want %q", popular[0].Response, "second")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.TTLClasses[string(types.KindConsultation)] = time.Millisecond
	c := New(cfg, nil)

	c.Put("q", "stale soon", 1, "", types.KindConsultation, nil)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("q", 1, "", types.KindConsultation); ok {
		t.Error("expected expired entry to miss")
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len() after eager removal = %d, want 0", got)
	}
}

func TestCacheInvalidateUser(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put("p1", "r1", 1, "", types.KindGeneral, nil)
	c.Put("p2", "r2", 1, "", types.KindGeneral, nil)
	c.Put("p3", "r3", 2, "", types.KindGeneral, nil)

	if removed := c.InvalidateUser(1); removed != 2 {
		t.Errorf("InvalidateUser(1) = %d, want 2", removed)
	}
	if _, ok := c.Get("p3", 2, "", types.KindGeneral); !ok {
		t.Error("expected other user's entry to survive")
	}
}

func TestCacheInvalidatePattern(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put("p1", "You show STRONG ambition", 1, "", types.KindGeneral, nil)
	c.Put("p2", "a calm disposition", 1, "", types.KindGeneral, nil)

	if removed := c.InvalidatePattern("strong"); removed != 1 {
		t.Errorf("InvalidatePattern() = %d, want 1", removed)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestCacheStats(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put("p", "r", 1, "", types.KindGeneral, nil)
	c.Get("p", 1, "", types.KindGeneral)
	c.Get("missing", 1, "", types.KindGeneral)

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.TotalRequests != 2 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, 2 requests", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}

	c.Clear()
	stats = c.Stats()
	if stats.Entries != 0 || stats.TotalRequests != 0 {
		t.Errorf("Stats() after Clear = %+v, want zero", stats)
	}
}

func TestCachePopularOrdering(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put("cold", "cold response", 1, "", types.KindGeneral, nil)
	c.Put("hot", "hot response", 1, "", types.KindGeneral, nil)
	for i := 0; i < 3; i++ {
		c.Get("hot", 1, "", types.KindGeneral)
	}

	popular := c.Popular(10)
	if len(popular) != 2 {
		t.Fatalf("Popular(10) returned %d entries, want 2", len(popular))
	}
	if popular[0].Response != "hot response" {
		t.Errorf("most popular = %q, want the hot entry", popular[0].Response)
	}
}

func TestCacheOptimizeDropsColdEntries(t *testing.T) {
	c := newTestCache(t, 10)

	for i := 0; i < 10; i++ {
		c.Put(fmt.Sprintf("p%d", i), fmt.Sprintf("r%d", i), 1, "", types.KindGeneral, nil)
	}
	// Warm everything except p0 and p1.
	for i := 2; i < 10; i++ {
		c.Get(fmt.Sprintf("p%d", i), 1, "", types.KindGeneral)
	}

	removed := c.Optimize()
	if removed != 2 {
		t.Errorf("Optimize() = %d, want 2", removed)
	}
	if _, ok := c.Get("p0", 1, "", types.KindGeneral); ok {
		t.Error("expected cold entry p0 to be dropped")
	}
	if _, ok := c.Get("p9", 1, "", types.KindGeneral); !ok {
		t.Error("expected warm entry p9 to survive")
	}
}
