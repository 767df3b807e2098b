package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
)

// WebSink stores a notification for in-app display.
type WebSink interface {
	Push(ctx context.Context, userID string, payload []byte) error
}

// EmailSink hands a notification to the mail provider.
type EmailSink interface {
	Send(ctx context.Context, n Notification) error
}

// Deduper tracks processed event ids.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type DelivererDeps struct {
	Web    WebSink
	Email  EmailSink
	Dedup  Deduper
	Logger *zap.Logger
}

// Deliverer routes consumed envelopes to the sink of their channel.
type Deliverer struct {
	web   WebSink
	email EmailSink
	dedup Deduper
	log   *zap.Logger
}

func NewDeliverer(deps DelivererDeps) (*Deliverer, error) {
	if deps.Web == nil || deps.Email == nil {
		return nil, errors.New("notify deliverer: web and email sinks are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deliverer{web: deps.Web, email: deps.Email, dedup: deps.Dedup, log: logger}, nil
}

// Handle is a kafka.Handler. Malformed messages are logged and skipped so
// they do not block the partition.
func (d *Deliverer) Handle(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		d.log.Error("notify.decode.failed", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	n, err := kafkax.UnwrapPayload[Notification](env.Payload)
	if err != nil {
		d.log.Error("notify.decode.failed", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	if d.dedup != nil {
		first, err := d.dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
	}

	if err := d.deliver(ctx, n); err != nil {
		if d.dedup != nil {
			_ = d.dedup.Forget(ctx, env.EventID)
		}
		return err
	}
	d.log.Info("notify.delivered",
		zap.String("event_id", env.EventID),
		zap.String("order_id", n.OrderID),
		zap.String("user_id", n.UserID),
		zap.String("channel", string(n.Channel)),
		zap.String("type", n.Type),
	)
	return nil
}

func (d *Deliverer) deliver(ctx context.Context, n Notification) error {
	switch n.Channel {
	case ChannelWeb:
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		return d.web.Push(ctx, n.UserID, b)
	case ChannelEmail:
		return d.email.Send(ctx, n)
	default:
		d.log.Warn("notify.channel.unknown", zap.String("channel", string(n.Channel)))
		return nil
	}
}

// LogEmailSink writes emails to the structured log. The mail provider
// integration lives outside this repository.
type LogEmailSink struct {
	Logger *zap.Logger
}

func (s LogEmailSink) Send(_ context.Context, n Notification) error {
	if s.Logger == nil {
		return fmt.Errorf("email sink: logger is required")
	}
	s.Logger.Info("notify.email",
		zap.String("user_id", n.UserID),
		zap.String("order_id", n.OrderID),
		zap.String("type", n.Type),
		zap.Any("payload", n.Payload),
	)
	return nil
}
