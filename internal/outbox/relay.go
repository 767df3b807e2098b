package outbox

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/txn"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
)

type RelayDeps struct {
	Repo       Repository
	Publisher  Publisher
	UnitOfWork txn.UnitOfWork
	BatchSize  int
	// MaxAttempts is the number of failed publishes after which a message
	// is parked.
	MaxAttempts int
	Clock       func() time.Time
	Logger      *zap.Logger
}

// Relay publishes pending messages after the producing transaction commits.
// A publish failure is recorded on the message and retried on the next pass;
// it never touches the business state that produced the message.
type Relay struct {
	repo        Repository
	publisher   Publisher
	uow         txn.UnitOfWork
	batch       int
	maxAttempts int
	clock       func() time.Time
	log         *zap.Logger
}

func NewRelay(deps RelayDeps) (*Relay, error) {
	if deps.Repo == nil {
		return nil, errors.New("outbox relay: repository is required")
	}
	if deps.Publisher == nil {
		return nil, errors.New("outbox relay: publisher is required")
	}
	uow := deps.UnitOfWork
	if uow == nil {
		uow = txn.Noop{}
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxAttempts := deps.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		repo:        deps.Repo,
		publisher:   deps.Publisher,
		uow:         uow,
		batch:       batch,
		maxAttempts: maxAttempts,
		clock:       clock,
		log:         logger,
	}, nil
}

// RunOnce dispatches one batch and reports how many messages were published.
// Publishing happens outside any unit of work; only the listing and the
// per-message bookkeeping are transactional. After a failure, later messages
// with the same key are held back until the next pass so per-key ordering is
// preserved.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	pending, err := txn.ExecuteWithResult(ctx, r.uow, func(ctx context.Context) ([]Message, error) {
		return r.repo.ListPending(ctx, r.batch)
	})
	if err != nil {
		return 0, err
	}
	sent := 0
	blocked := map[string]bool{}
	for _, msg := range pending {
		if msg.Key != "" && blocked[msg.Key] {
			continue
		}
		if err := r.publisher.Publish(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			blocked[msg.Key] = true
			if recErr := r.fail(ctx, msg, err); recErr != nil {
				return sent, recErr
			}
			continue
		}
		if err := r.uow.RunInTx(ctx, func(ctx context.Context) error {
			return r.repo.MarkDispatched(ctx, msg.ID, r.clock().UTC())
		}); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (r *Relay) fail(ctx context.Context, msg Message, cause error) error {
	attempts := msg.Attempts + 1
	if attempts >= r.maxAttempts {
		r.log.Error("outbox.message.parked",
			zap.String("message_id", msg.ID),
			zap.String("topic", msg.Topic),
			zap.String("key", msg.Key),
			zap.Int("attempts", attempts),
			zap.Error(cause),
		)
		return r.uow.RunInTx(ctx, func(ctx context.Context) error {
			return r.repo.Park(ctx, msg.ID, cause.Error(), r.clock().UTC())
		})
	}
	r.log.Warn("outbox.publish.failed",
		zap.String("message_id", msg.ID),
		zap.String("topic", msg.Topic),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	)
	return r.uow.RunInTx(ctx, func(ctx context.Context) error {
		return r.repo.RecordFailure(ctx, msg.ID, cause.Error())
	})
}

// Run polls until ctx is done.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.Error("outbox.relay.failed", zap.Error(err))
		} else if n > 0 {
			r.log.Debug("outbox.relay.dispatched", zap.Int("count", n))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
