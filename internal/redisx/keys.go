package redisx

import "time"

const (
	// Create-order idempotency: idem:order:create:{idempotency_key} -> order_id or "pending"
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Order status cache: order_status:{order_id} -> {"order_id": "...", "status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Web notification inbox: notifications:web:{user_id} -> list of notification JSON, newest first
	KeyWebInbox = "notifications:web:%s"
)

const WebInboxLimit = 100

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
