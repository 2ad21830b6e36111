package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"minerva-ai/minerva/pkg/config"
	"minerva-ai/minerva/pkg/telemetry/metrics"
	"minerva-ai/minerva/pkg/types"
)

// Entry is one cached completion. Entries are owned exclusively by the
// Cache; no caller holds a reference past the call that returned it.
type Entry struct {
	// Key is the content-addressed cache key.
	Key string

	// Response is the cached completion text.
	Response string

	// CreatedAt is when the entry was stored (or last overwritten).
	CreatedAt time.Time

	// HitCount is how many reads have returned this entry. It survives
	// overwrites of the same key.
	HitCount int

	// UserID is the owning user, used for per-user invalidation.
	UserID int64

	// Kind selects the entry's TTL class.
	Kind types.Kind

	// Metadata carries caller-supplied annotations.
	Metadata map[string]string
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries       int
	Capacity      int
	Hits          int64
	Misses        int64
	Evictions     int64
	TotalRequests int64
	HitRate       float64
}

// Cache is a content-addressed, TTL-aware, LRU-evicted response store.
//
// Keys are deterministic hashes over (prompt, user, context): identical
// inputs always hit the same entry, and any character difference changes
// the key. The cache does no fuzzy matching or normalization; callers
// normalize before calling if they want it.
//
// All operations are safe for concurrent use. Eviction runs synchronously
// inside Put, so the size never exceeds the configured capacity after any
// operation returns.
type Cache struct {
	config  *config.Config
	metrics *metrics.CacheMetrics
	logger  *slog.Logger

	mu      sync.Mutex
	order   *list.List               // front = most recently used
	entries map[string]*list.Element // key -> element holding *Entry

	hits, misses, evictions, requests int64
}

// New creates an empty cache. metrics may be nil to disable reporting.
func New(cfg *config.Config, m *metrics.CacheMetrics) *Cache {
	return &Cache{
		config:  cfg,
		metrics: m,
		logger:  slog.Default().With("component", "cache"),
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Key computes the deterministic cache key for (prompt, user, context).
// The key is stable across calls and processes.
func Key(prompt string, userID int64, context string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%s", prompt, userID, context))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for (prompt, user, context) if present
// and not expired under the kind's TTL class. A hit bumps the entry's hit
// count and moves it to the most-recently-used position. Expired entries
// are removed eagerly.
func (c *Cache) Get(prompt string, userID int64, context string, kind types.Kind) (string, bool) {
	key := Key(prompt, userID, context)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests++

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		c.metrics.Miss()
		return "", false
	}

	entry := elem.Value.(*Entry)
	ttl := c.config.KindTTL(kind)
	if time.Since(entry.CreatedAt) > ttl {
		c.removeLocked(elem)
		c.misses++
		c.metrics.Miss()
		c.logger.Debug("cache entry expired", "key", key, "kind", kind)
		return "", false
	}

	entry.HitCount++
	c.order.MoveToFront(elem)
	c.hits++
	c.metrics.Hit()
	return entry.Response, true
}

// Put stores a response under the deterministic key for (prompt, user,
// context) and returns the key. Overwriting an existing key preserves its
// hit count. New entries enter at the most-recently-used position; if the
// store then exceeds capacity, the least-recently-used entry is evicted
// before Put returns.
func (c *Cache) Put(prompt, response string, userID int64, context string, kind types.Kind, metadata map[string]string) string {
	key := Key(prompt, userID, context)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &Entry{
		Key:       key,
		Response:  response,
		CreatedAt: time.Now(),
		UserID:    userID,
		Kind:      kind,
		Metadata:  metadata,
	}

	if elem, ok := c.entries[key]; ok {
		entry.HitCount = elem.Value.(*Entry).HitCount
		elem.Value = entry
		c.order.MoveToFront(elem)
	} else {
		c.entries[key] = c.order.PushFront(entry)
	}

	for c.order.Len() > c.config.Cache.Capacity {
		c.evictOldestLocked()
	}
	c.metrics.SetEntries(c.order.Len())

	return key
}

// InvalidateUser removes every entry owned by userID and returns how many
// were removed.
func (c *Cache) InvalidateUser(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*Entry).UserID == userID {
			c.removeLocked(elem)
			removed++
		}
		elem = next
	}

	if removed > 0 {
		c.logger.Info("invalidated user cache entries", "user_id", userID, "removed", removed)
	}
	return removed
}

// InvalidatePattern removes every entry whose response text contains the
// substring, case-insensitively. This is an O(n) scan, acceptable with a
// bounded capacity.
func (c *Cache) InvalidatePattern(substr string) int {
	lower := strings.ToLower(substr)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if strings.Contains(strings.ToLower(elem.Value.(*Entry).Response), lower) {
			c.removeLocked(elem)
			removed++
		}
		elem = next
	}

	if removed > 0 {
		c.logger.Info("invalidated cache entries by pattern", "pattern", substr, "removed", removed)
	}
	return removed
}

// CleanupExpired removes every entry past its TTL class and returns how
// many were removed. It runs independently of reads, for periodic
// maintenance.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		entry := elem.Value.(*Entry)
		if now.Sub(entry.CreatedAt) > c.config.KindTTL(entry.Kind) {
			c.removeLocked(elem)
			removed++
		}
		elem = next
	}

	if removed > 0 {
		c.logger.Info("cleaned up expired cache entries", "removed", removed)
	}
	return removed
}

// Clear removes every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.hits, c.misses, c.evictions, c.requests = 0, 0, 0, 0
	c.metrics.SetEntries(0)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Entries:       c.order.Len(),
		Capacity:      c.config.Cache.Capacity,
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		TotalRequests: c.requests,
	}
	if c.requests > 0 {
		stats.HitRate = float64(c.hits) / float64(c.requests)
	}
	return stats
}

// Popular returns up to limit entries ordered by descending hit count.
// Responses are clipped for reporting; the full text stays in the cache.
func (c *Cache) Popular(limit int) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := make([]*Entry, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		all = append(all, elem.Value.(*Entry))
	}

	// Insertion sort by hit count; the cache is small and this runs
	// rarely.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].HitCount > all[j-1].HitCount; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	if limit > len(all) {
		limit = len(all)
	}
	popular := make([]Entry, limit)
	for i := 0; i < limit; i++ {
		popular[i] = *all[i]
		if len(popular[i].Response) > 100 {
			popular[i].Response = popular[i].Response[:100] + "..."
		}
	}
	return popular
}

// Optimize sweeps expired entries and, when the cache is over 80% full,
// drops the coldest 20% of entries by hit count. It returns the number of
// entries removed.
func (c *Cache) Optimize() int {
	removed := c.CleanupExpired()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.order.Len() <= c.config.Cache.Capacity*8/10 {
		return removed
	}

	all := make([]*list.Element, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		all = append(all, elem)
	}
	for i := 1; i < len(all); i++ {
		for j := i; j > 0; j-- {
			if all[j].Value.(*Entry).HitCount < all[j-1].Value.(*Entry).HitCount {
				all[j], all[j-1] = all[j-1], all[j]
			} else {
				break
			}
		}
	}

	drop := len(all) / 5
	for i := 0; i < drop; i++ {
		c.removeLocked(all[i])
		removed++
	}
	c.metrics.SetEntries(c.order.Len())
	return removed
}

// evictOldestLocked removes the least-recently-used entry. Caller holds
// the lock.
func (c *Cache) evictOldestLocked() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeLocked(oldest)
	c.evictions++
	c.metrics.Eviction()
}

// removeLocked unlinks an element from both structures. Caller holds the
// lock.
func (c *Cache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*Entry)
	delete(c.entries, entry.Key)
	c.order.Remove(elem)
	c.metrics.SetEntries(c.order.Len())
}
