package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooksink/hooksink/internal/repository"
)

func setupCache(t *testing.T, ttl time.Duration) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewStatsCache(rdb, ttl), mr
}

func TestStatsCache_RoundTrip(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx)
	assert.False(t, ok, "empty cache must miss")

	first := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	last := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	stats := &repository.Stats{
		TotalMessages: 3,
		SendersCount:  2,
		MessagesPerSender: []repository.SenderCount{
			{From: "+1111", Count: 2},
			{From: "+2222", Count: 1},
		},
		FirstMessageTS: &first,
		LastMessageTS:  &last,
	}
	c.Set(ctx, stats)

	got, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, stats.TotalMessages, got.TotalMessages)
	assert.Equal(t, stats.MessagesPerSender, got.MessagesPerSender)
	require.NotNil(t, got.FirstMessageTS)
	assert.True(t, first.Equal(*got.FirstMessageTS))
}

func TestStatsCache_Expiry(t *testing.T) {
	c, mr := setupCache(t, 5*time.Second)
	ctx := context.Background()

	c.Set(ctx, &repository.Stats{TotalMessages: 1})
	_, ok := c.Get(ctx)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	_, ok = c.Get(ctx)
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestStatsCache_RedisDown(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()
	mr.Close()

	// Both paths must degrade to a miss, never an error.
	c.Set(ctx, &repository.Stats{TotalMessages: 1})
	_, ok := c.Get(ctx)
	assert.False(t, ok)
}
