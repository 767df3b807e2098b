package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemPending = "pending"

var ErrIdempotencyInFlight = errors.New("idempotency key is being processed")

// Idempotency guards create requests that carry an Idempotency-Key header.
type Idempotency struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewIdempotency(rdb redis.UniversalClient, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return &Idempotency{rdb: rdb, ttl: ttl}
}

// Claim reserves key for a new request. When key was already completed it
// returns the stored order id with claimed=false; a request still running
// under the same key yields ErrIdempotencyInFlight.
func (i *Idempotency) Claim(ctx context.Context, key string) (orderID string, claimed bool, err error) {
	k := fmt.Sprintf(KeyIdemOrderCreate, key)
	ok, err := i.rdb.SetNX(ctx, k, idemPending, TTLIdemPending).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	v, err := i.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return i.Claim(ctx, key)
	}
	if err != nil {
		return "", false, err
	}
	if v == idemPending {
		return "", false, ErrIdempotencyInFlight
	}
	return v, false, nil
}

// Complete stores the order id produced for key.
func (i *Idempotency) Complete(ctx context.Context, key, orderID string) error {
	return i.rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID, i.ttl).Err()
}

// Abandon drops a claim so the client may retry after a failure.
func (i *Idempotency) Abandon(ctx context.Context, key string) error {
	return i.rdb.Del(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Err()
}
