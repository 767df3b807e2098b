package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// WebInbox keeps the latest web notifications per user.
type WebInbox struct {
	rdb   redis.UniversalClient
	limit int64
}

func NewWebInbox(rdb redis.UniversalClient) *WebInbox {
	return &WebInbox{rdb: rdb, limit: WebInboxLimit}
}

// Push prepends payload and trims the list to the inbox limit.
func (b *WebInbox) Push(ctx context.Context, userID string, payload []byte) error {
	key := fmt.Sprintf(KeyWebInbox, userID)
	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, payload)
		p.LTrim(ctx, key, 0, b.limit-1)
		return nil
	})
	return err
}

// List returns up to n entries, newest first.
func (b *WebInbox) List(ctx context.Context, userID string, n int64) ([]string, error) {
	if n <= 0 || n > b.limit {
		n = b.limit
	}
	return b.rdb.LRange(ctx, fmt.Sprintf(KeyWebInbox, userID), 0, n-1).Result()
}

// Dedup remembers processed event ids per consumer service.
type Dedup struct {
	rdb     redis.UniversalClient
	service string
}

func NewDedup(rdb redis.UniversalClient, service string) *Dedup {
	return &Dedup{rdb: rdb, service: service}
}

// FirstSeen marks id as processed and reports whether this is the first time.
func (d *Dedup) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, d.service, id), "1", TTLDedup).Result()
}

// Forget clears id so a failed delivery can be retried.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	return d.rdb.Del(ctx, fmt.Sprintf(KeyDedup, d.service, id)).Err()
}
