package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer writes synchronously so callers such as the outbox relay know
// whether the broker accepted a message before marking it dispatched.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string, writeTimeout time.Duration) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer: at least one broker is required")
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           writeTimeout,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Publish writes one message to topic. The key selects the partition, so all
// messages sharing a key stay ordered.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	})
}

func (p *Producer) Close() error { return p.w.Close() }
