package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter"

	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/plan"
)

// MemoryCache acts as the L1 plan cache using a high-performance,
// contention-free algorithm (S3-FIFO) provided by the 'otter' library.
// Plans are keyed by plan.Key, so a changed strategy simply misses.
type MemoryCache struct {
	store otter.Cache[string, *plan.Plan]
}

// NewMemoryCache initializes the in-memory cache with strict limits.
// capacity: Max number of items (Hard Cap to prevent OOM).
// ttl: Time-To-Live for items (Safety net for eventual consistency).
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	cache, err := otter.MustBuilder[string, *plan.Plan](capacity).
		CollectStats().
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &MemoryCache{store: cache}, nil
}

// Get retrieves a plan from memory and records the hit or miss.
func (c *MemoryCache) Get(key string) (*plan.Plan, bool) {
	p, ok := c.store.Get(key)
	if ok {
		observability.PlanCacheL1Hits.Inc()
	} else {
		observability.PlanCacheL1Misses.Inc()
	}
	return p, ok
}

// Set adds or updates a plan in memory.
// The TTL configured in NewMemoryCache is applied automatically.
func (c *MemoryCache) Set(key string, p *plan.Plan) {
	c.store.Set(key, p)
}

// Clear drops every cached plan.
func (c *MemoryCache) Clear() {
	c.store.Clear()
}

// Close gracefully shuts down the cache and its background cleanup goroutines.
func (c *MemoryCache) Close() {
	c.store.Close()
}

// RunMetricsCollector exports otter statistics on every tick until ctx is cancelled.
// Evictions and rejected sets are cumulative in otter; only the growth is added.
func (c *MemoryCache) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastEvicted, lastRejected int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.store.Stats()

			observability.PlanCacheL1Items.Set(float64(c.store.Size()))

			if d := stats.EvictedCount() - lastEvicted; d > 0 {
				observability.PlanCacheL1Evictions.Add(float64(d))
			}
			if d := stats.RejectedSets() - lastRejected; d > 0 {
				observability.PlanCacheL1Dropped.Add(float64(d))
			}

			lastEvicted = stats.EvictedCount()
			lastRejected = stats.RejectedSets()
		}
	}
}
