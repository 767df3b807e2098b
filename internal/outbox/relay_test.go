package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
)

type stubPublisher struct {
	mu        sync.Mutex
	publishFn func(msg outbox.Message) error
	sent      []outbox.Message
}

func (p *stubPublisher) Publish(_ context.Context, msg outbox.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishFn != nil {
		if err := p.publishFn(msg); err != nil {
			return err
		}
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func keys(msgs []outbox.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Key)
	}
	return out
}

func enqueue(t *testing.T, w *outbox.Writer, store *memstore.Store, keys ...string) {
	t.Helper()
	for _, k := range keys {
		err := store.RunInTx(context.Background(), func(ctx context.Context) error {
			_, err := w.Enqueue(ctx, "marketplace.notifications", k, []byte(`{"k":"`+k+`"}`), map[string]string{"x-event-type": "test"})
			return err
		})
		require.NoError(t, err)
	}
}

func TestRelayPublishesInOrderAndMarksDispatched(t *testing.T) {
	store := memstore.New()
	w, err := outbox.NewWriter(store.Outbox(), nil)
	require.NoError(t, err)
	enqueue(t, w, store, "a", "b", "c")

	pub := &stubPublisher{}
	relay, err := outbox.NewRelay(outbox.RelayDeps{Repo: store.Outbox(), Publisher: pub, UnitOfWork: store})
	require.NoError(t, err)

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, keys(pub.sent))

	pending, err := store.Outbox().ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayHoldsBackFailedKeyAndRetries(t *testing.T) {
	store := memstore.New()
	w, err := outbox.NewWriter(store.Outbox(), nil)
	require.NoError(t, err)
	enqueue(t, w, store, "a", "b", "b", "c")

	failOn := "b"
	pub := &stubPublisher{publishFn: func(msg outbox.Message) error {
		if msg.Key == failOn {
			return errors.New("leader not available")
		}
		return nil
	}}
	relay, err := outbox.NewRelay(outbox.RelayDeps{Repo: store.Outbox(), Publisher: pub, UnitOfWork: store, BatchSize: 10})
	require.NoError(t, err)

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "c"}, keys(pub.sent))

	pending, err := store.Outbox().ListPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].Key)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "leader not available", pending[0].LastError)
	assert.Zero(t, pending[1].Attempts, "second message of a failed key is not attempted")

	failOn = ""
	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "c", "b", "b"}, keys(pub.sent))
}

func TestRelayParksMessageAfterMaxAttempts(t *testing.T) {
	store := memstore.New()
	w, err := outbox.NewWriter(store.Outbox(), nil)
	require.NoError(t, err)
	enqueue(t, w, store, "poison", "order-2", "order-3")

	pub := &stubPublisher{publishFn: func(msg outbox.Message) error {
		if msg.Key == "poison" {
			return errors.New("message too large")
		}
		return nil
	}}
	relay, err := outbox.NewRelay(outbox.RelayDeps{Repo: store.Outbox(), Publisher: pub, UnitOfWork: store, MaxAttempts: 3})
	require.NoError(t, err)

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"order-2", "order-3"}, keys(pub.sent))

	for i := 0; i < 5; i++ {
		_, err = relay.RunOnce(context.Background())
		require.NoError(t, err)
	}
	pending, err := store.Outbox().ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Len(t, pub.sent, 2)
}

type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, _ outbox.Message) error {
	close(p.entered)
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRelayPublishDoesNotBlockStoreWrites(t *testing.T) {
	store := memstore.New()
	w, err := outbox.NewWriter(store.Outbox(), nil)
	require.NoError(t, err)
	enqueue(t, w, store, "order-1")

	ledger, err := inventory.NewLedger(inventory.LedgerDeps{Repo: store.Inventory(), UnitOfWork: store})
	require.NoError(t, err)

	pub := &blockingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	relay, err := outbox.NewRelay(outbox.RelayDeps{Repo: store.Outbox(), Publisher: pub, UnitOfWork: store})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := relay.RunOnce(context.Background())
		done <- err
	}()
	<-pub.entered

	restocked := make(chan error, 1)
	go func() {
		_, err := ledger.Restock(context.Background(), "p-1", 5)
		restocked <- err
	}()
	select {
	case err := <-restocked:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("restock waited for the broker")
	}

	close(pub.release)
	require.NoError(t, <-done)
	pending, err := store.Outbox().ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelayRunStopsWithContext(t *testing.T) {
	store := memstore.New()
	w, err := outbox.NewWriter(store.Outbox(), nil)
	require.NoError(t, err)
	enqueue(t, w, store, "a")

	pub := &stubPublisher{}
	relay, err := outbox.NewRelay(outbox.RelayDeps{Repo: store.Outbox(), Publisher: pub, UnitOfWork: store})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, 10*time.Millisecond) }()

	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestWriterRequiresTopic(t *testing.T) {
	w, err := outbox.NewWriter(memstore.New().Outbox(), nil)
	require.NoError(t, err)
	_, err = w.Enqueue(context.Background(), " ", "k", nil, nil)
	assert.Error(t, err)
}
