package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hooksink/hooksink/internal/repository"
)

const statsKey = "stats:aggregate"

// StatsCache keeps the /stats aggregate in Redis for a short TTL so repeated
// dashboard polling does not hammer the store. Misses and Redis failures fall
// through to the repository; the cache is best-effort only.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached aggregate, or (nil, false) on miss or error.
func (c *StatsCache) Get(ctx context.Context) (*repository.Stats, bool) {
	raw, err := c.rdb.Get(ctx, statsKey).Bytes()
	if err != nil {
		return nil, false
	}

	var stats repository.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

// Set stores the aggregate with the configured TTL. Errors are dropped; a
// failed cache write must not fail the request.
func (c *StatsCache) Set(ctx context.Context, stats *repository.Stats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, statsKey, raw, c.ttl)
}
