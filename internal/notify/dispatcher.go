package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
)

// Enqueuer stages a message in the outbox.
type Enqueuer interface {
	Enqueue(ctx context.Context, topic, key string, payload []byte, headers map[string]string) (outbox.Message, error)
}

// OutboxDispatcher stages notifications in the outbox of the current
// transaction. Nothing leaves the process until the relay picks them up
// after commit.
type OutboxDispatcher struct {
	outbox   Enqueuer
	topic    string
	producer string
	clock    func() time.Time
	newID    func() string
}

func NewOutboxDispatcher(out Enqueuer, topic, producer string) (*OutboxDispatcher, error) {
	if out == nil {
		return nil, errors.New("notify dispatcher: outbox is required")
	}
	if topic == "" {
		return nil, errors.New("notify dispatcher: topic is required")
	}
	return &OutboxDispatcher{outbox: out, topic: topic, producer: producer, clock: time.Now, newID: uuid.NewString}, nil
}

func (d *OutboxDispatcher) Dispatch(ctx context.Context, n Notification) error {
	now := d.clock().UTC()
	if n.ID == "" {
		n.ID = d.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	env := Envelope{
		EventID:       n.ID,
		EventType:     n.Type,
		EventVersion:  EnvelopeVersion,
		OccurredAt:    now,
		Producer:      d.producer,
		TraceID:       TraceID(ctx),
		CorrelationID: n.OrderID,
		Payload:       payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	// keyed by order so every notification of one order stays on one partition
	_, err = d.outbox.Enqueue(ctx, d.topic, n.OrderID, body, map[string]string{
		HeaderEventType:    n.Type,
		HeaderEventVersion: strconv.Itoa(EnvelopeVersion),
		HeaderChannel:      string(n.Channel),
	})
	return err
}

type traceKey struct{}

// WithTraceID attaches a request id that is copied into envelopes.
func WithTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
