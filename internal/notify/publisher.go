package notify

import (
	"context"
	"errors"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
)

// MessageWriter is satisfied by *kafka.Producer.
type MessageWriter interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafkago.Header) error
}

// KafkaPublisher forwards outbox messages to Kafka.
type KafkaPublisher struct {
	w MessageWriter
}

func NewKafkaPublisher(w MessageWriter) (*KafkaPublisher, error) {
	if w == nil {
		return nil, errors.New("kafka publisher: writer is required")
	}
	return &KafkaPublisher{w: w}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg outbox.Message) error {
	headers := kafkax.Headers(msg.Headers)
	headers = append(headers, kafkago.Header{Key: "x-outbox-id", Value: []byte(msg.ID)})
	return p.w.Publish(ctx, msg.Topic, []byte(msg.Key), msg.Payload, headers...)
}
