package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
)

type stubEnqueuer struct {
	msgs []outbox.Message
}

func (s *stubEnqueuer) Enqueue(_ context.Context, topic, key string, payload []byte, headers map[string]string) (outbox.Message, error) {
	m := outbox.Message{ID: "m", Topic: topic, Key: key, Payload: payload, Headers: headers}
	s.msgs = append(s.msgs, m)
	return m, nil
}

type stubWeb struct {
	pushFn func(userID string, payload []byte) error
	pushed map[string][][]byte
}

func (s *stubWeb) Push(_ context.Context, userID string, payload []byte) error {
	if s.pushFn != nil {
		if err := s.pushFn(userID, payload); err != nil {
			return err
		}
	}
	if s.pushed == nil {
		s.pushed = map[string][][]byte{}
	}
	s.pushed[userID] = append(s.pushed[userID], payload)
	return nil
}

type stubEmail struct{ sent []Notification }

func (s *stubEmail) Send(_ context.Context, n Notification) error {
	s.sent = append(s.sent, n)
	return nil
}

type stubDedup struct {
	seen      map[string]bool
	forgotten []string
}

func (s *stubDedup) FirstSeen(_ context.Context, id string) (bool, error) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[id] {
		return false, nil
	}
	s.seen[id] = true
	return true, nil
}

func (s *stubDedup) Forget(_ context.Context, id string) error {
	delete(s.seen, id)
	s.forgotten = append(s.forgotten, id)
	return nil
}

func stagedMessage(t *testing.T, n Notification) (outbox.Message, kafkago.Message) {
	t.Helper()
	enq := &stubEnqueuer{}
	d, err := NewOutboxDispatcher(enq, "marketplace.notifications", "order-api")
	require.NoError(t, err)
	d.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, d.Dispatch(WithTraceID(context.Background(), "req-1"), n))
	require.Len(t, enq.msgs, 1)
	m := enq.msgs[0]
	return m, kafkago.Message{Key: []byte(m.Key), Value: m.Payload}
}

func TestOutboxDispatcherBuildsEnvelope(t *testing.T) {
	msg, _ := stagedMessage(t, Notification{
		OrderID: "ord-1",
		UserID:  "buyer-1",
		Role:    RoleBuyer,
		Channel: ChannelEmail,
		Type:    TypeOrderStatusChanged,
		Payload: map[string]any{"new_status": "shipped"},
	})

	assert.Equal(t, "marketplace.notifications", msg.Topic)
	assert.Equal(t, "ord-1", msg.Key)
	assert.Equal(t, TypeOrderStatusChanged, msg.Headers[HeaderEventType])
	assert.Equal(t, "email", msg.Headers[HeaderChannel])
	assert.Equal(t, "1", msg.Headers[HeaderEventVersion])

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Payload, &env))
	assert.Equal(t, "order-api", env.Producer)
	assert.Equal(t, "req-1", env.TraceID)
	assert.Equal(t, "ord-1", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)
}

func TestDelivererRoutesByChannel(t *testing.T) {
	web, email := &stubWeb{}, &stubEmail{}
	d, err := NewDeliverer(DelivererDeps{Web: web, Email: email, Logger: zap.NewNop()})
	require.NoError(t, err)

	_, webMsg := stagedMessage(t, Notification{OrderID: "o", UserID: "buyer-1", Channel: ChannelWeb, Type: TypeOrderCreated})
	_, emailMsg := stagedMessage(t, Notification{OrderID: "o", UserID: "seller-1", Channel: ChannelEmail, Type: TypeOrderCreated})

	require.NoError(t, d.Handle(context.Background(), webMsg))
	require.NoError(t, d.Handle(context.Background(), emailMsg))

	require.Len(t, web.pushed["buyer-1"], 1)
	var stored Notification
	require.NoError(t, json.Unmarshal(web.pushed["buyer-1"][0], &stored))
	assert.Equal(t, TypeOrderCreated, stored.Type)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "seller-1", email.sent[0].UserID)
}

func TestDelivererSkipsDuplicatesAndRetriesFailures(t *testing.T) {
	failures := 1
	web := &stubWeb{pushFn: func(string, []byte) error {
		if failures > 0 {
			failures--
			return errors.New("redis timeout")
		}
		return nil
	}}
	dedup := &stubDedup{}
	d, err := NewDeliverer(DelivererDeps{Web: web, Email: &stubEmail{}, Dedup: dedup})
	require.NoError(t, err)

	_, msg := stagedMessage(t, Notification{OrderID: "o", UserID: "u", Channel: ChannelWeb, Type: TypeOrderCreated})

	require.Error(t, d.Handle(context.Background(), msg))
	assert.Len(t, dedup.forgotten, 1)

	require.NoError(t, d.Handle(context.Background(), msg))
	require.NoError(t, d.Handle(context.Background(), msg))
	assert.Len(t, web.pushed["u"], 1)
}

func TestDelivererSkipsMalformedMessages(t *testing.T) {
	d, err := NewDeliverer(DelivererDeps{Web: &stubWeb{}, Email: &stubEmail{}})
	require.NoError(t, err)
	assert.NoError(t, d.Handle(context.Background(), kafkago.Message{Value: []byte("{not json")}))
}

type stubWriter struct {
	topic   string
	key     []byte
	headers []kafkago.Header
}

func (s *stubWriter) Publish(_ context.Context, topic string, key, _ []byte, headers ...kafkago.Header) error {
	s.topic, s.key, s.headers = topic, key, headers
	return nil
}

func TestKafkaPublisherForwardsMessage(t *testing.T) {
	w := &stubWriter{}
	p, err := NewKafkaPublisher(w)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), outbox.Message{
		ID:      "01J000",
		Topic:   "marketplace.notifications",
		Key:     "ord-1",
		Headers: map[string]string{HeaderEventType: TypeOrderCreated},
	}))
	assert.Equal(t, "marketplace.notifications", w.topic)
	assert.Equal(t, []byte("ord-1"), w.key)

	got := map[string]string{}
	for _, h := range w.headers {
		got[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{HeaderEventType: TypeOrderCreated, "x-outbox-id": "01J000"}, got)
}
