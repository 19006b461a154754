package loyalty

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PointsCache keeps card balances in redis so balance lookups at the till
// do not hit postgres on every keystroke. Settlements invalidate after commit.
type PointsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPointsCache constructs the cache.
func NewPointsCache(client *redis.Client, ttl time.Duration) *PointsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PointsCache{client: client, ttl: ttl}
}

func pointsKey(cardNumber string) string {
	return fmt.Sprintf("loyalty:points:%s", cardNumber)
}

// Get returns the cached balance, or ok=false on a miss.
func (c *PointsCache) Get(ctx context.Context, cardNumber string) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, pointsKey(cardNumber)).Result()
	if err != nil {
		return 0, false
	}
	points, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return points, true
}

// Set stores the balance.
func (c *PointsCache) Set(ctx context.Context, cardNumber string, points int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, pointsKey(cardNumber), points, c.ttl).Err()
}

// Invalidate drops the cached balance after a settlement changes it.
func (c *PointsCache) Invalidate(ctx context.Context, cardNumber string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, pointsKey(cardNumber)).Err()
}
