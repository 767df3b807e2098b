// Package outbox stores messages inside the business transaction and relays
// them to a broker once that transaction has committed.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Message is a pending or dispatched outbox row. IDs are ULIDs so the relay
// can dispatch in creation order.
type Message struct {
	ID           string
	Topic        string
	Key          string
	Payload      []byte
	Headers      map[string]string
	CreatedAt    time.Time
	DispatchedAt *time.Time
	Attempts     int
	LastError    string
	// FailedAt is set once the relay gives up on the message.
	FailedAt *time.Time
}

type Repository interface {
	Append(ctx context.Context, msg Message) error
	// ListPending returns up to limit undispatched, unparked messages ordered by id.
	ListPending(ctx context.Context, limit int) ([]Message, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	RecordFailure(ctx context.Context, id string, reason string) error
	// Park records a final failure and removes the message from ListPending.
	Park(ctx context.Context, id string, reason string, at time.Time) error
}

// Publisher delivers a message to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Writer appends messages. Enqueue must run inside the caller's transaction.
type Writer struct {
	repo  Repository
	clock func() time.Time
}

func NewWriter(repo Repository, clock func() time.Time) (*Writer, error) {
	if repo == nil {
		return nil, errors.New("outbox writer: repository is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Writer{repo: repo, clock: clock}, nil
}

func (w *Writer) Enqueue(ctx context.Context, topic, key string, payload []byte, headers map[string]string) (Message, error) {
	if strings.TrimSpace(topic) == "" {
		return Message{}, fmt.Errorf("outbox: topic is required")
	}
	now := w.clock().UTC()
	msg := Message{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Topic:     topic,
		Key:       key,
		Payload:   payload,
		Headers:   headers,
		CreatedAt: now,
	}
	if err := w.repo.Append(ctx, msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
