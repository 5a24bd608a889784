package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tickethub/models"
)

const statsCacheTTL = 24 * time.Hour

// StatsCache mirrors the read-optimized per-event aggregates into Redis so
// dashboards read them without touching the datastore. The datastore copy is
// authoritative; the cache is rebuilt alongside it by the stats migration.
type StatsCache struct {
	redis *redis.Client
}

func NewStatsCache(redisClient *redis.Client) *StatsCache {
	return &StatsCache{redis: redisClient}
}

func statsKey(eventID string) string {
	return fmt.Sprintf("stats:event:%s", eventID)
}

func (c *StatsCache) Set(ctx context.Context, stats *models.EventStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, statsKey(stats.EventID), data, statsCacheTTL).Err()
}

// Get returns (nil, nil) on a cache miss.
func (c *StatsCache) Get(ctx context.Context, eventID string) (*models.EventStats, error) {
	data, err := c.redis.Get(ctx, statsKey(eventID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stats models.EventStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// BumpSold nudges the cached sold counter after a purchase so dashboards do
// not lag a full rebuild. Best effort; a miss just waits for the next rebuild.
func (c *StatsCache) BumpSold(ctx context.Context, eventID string) {
	stats, err := c.Get(ctx, eventID)
	if err != nil || stats == nil {
		return
	}
	stats.TicketsSold++
	stats.Confirmed++
	stats.TodaySales++
	_ = c.Set(ctx, stats)
}
