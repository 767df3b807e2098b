// Package notify carries buyer and seller notifications from the lifecycle
// transaction to their delivery channels.
package notify

import (
	"encoding/json"
	"time"
)

type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelEmail Channel = "email"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// Notification is addressed to one user on one channel.
type Notification struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"order_id"`
	UserID    string         `json:"user_id"`
	Role      Role           `json:"role"`
	Channel   Channel        `json:"channel"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// Envelope wraps every message published to the notifications topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
	HeaderChannel      = "x-channel"
)

const EnvelopeVersion = 1
