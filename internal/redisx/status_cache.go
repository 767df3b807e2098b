package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStatus is the cached summary served by the status read path.
type CachedStatus struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StatusCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewStatusCache(rdb redis.UniversalClient, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = TTLStatusCache
	}
	return &StatusCache{rdb: rdb, ttl: ttl}
}

// Get returns ok=false on a cache miss.
func (c *StatusCache) Get(ctx context.Context, orderID string) (CachedStatus, bool, error) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedStatus{}, false, nil
	}
	if err != nil {
		return CachedStatus{}, false, err
	}
	var out CachedStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		return CachedStatus{}, false, err
	}
	return out, true, nil
}

// Set overwrites the cached entry.
func (c *StatusCache) Set(ctx context.Context, st CachedStatus) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(KeyOrderStatus, st.OrderID), b, c.ttl).Err()
}
