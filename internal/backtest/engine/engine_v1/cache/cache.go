package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DefaultTTL is how long fetched bars stay cached.
const DefaultTTL = time.Hour

// Cache is a key/value store for fetched historical bars. A miss is reported as ok == false,
// not as an error. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Reset drops every entry owned by this cache.
	Reset(ctx context.Context) error
}

// BarsKey is the cache key of a bar range: backtest_data:{symbol}:{timeframe}:{start}:{end}.
func BarsKey(symbol string, timeframe types.Timeframe, start time.Time, end time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", KeyPrefix, symbol, timeframe,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
}

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "backtest_data:"

type entry struct {
	value     []byte
	expiresAt time.Time
}

// CacheV1 is an in-process Cache with per-entry expiry.
type CacheV1 struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewCacheV1() Cache {
	return &CacheV1{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements Cache. Expired entries are reported as misses.
func (c *CacheV1) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()

		return nil, false, nil
	}

	return e.value, true, nil
}

// Set implements Cache. A ttl <= 0 keeps the entry until Reset.
func (c *CacheV1) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.entries[key] = entry{value: stored, expiresAt: expiresAt}
	c.mu.Unlock()

	return nil
}

// Reset implements Cache.
func (c *CacheV1) Reset(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	return nil
}

// Len is the number of stored entries, expired ones included.
func (c *CacheV1) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
