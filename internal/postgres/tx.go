package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// TxManager implements txn.UnitOfWork on a pgx pool. The transaction travels
// in the context so repositories pick it up without extra parameters.
type TxManager struct {
	pool     *pgxpool.Pool
	attempts int
	log      *zap.Logger
}

func NewTxManager(pool *pgxpool.Pool, attempts int, logger *zap.Logger) *TxManager {
	if attempts <= 0 {
		attempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxManager{pool: pool, attempts: attempts, log: logger}
}

// RunInTx commits when fn returns nil. Serialization failures and deadlocks
// re-run fn in a fresh transaction up to the configured number of attempts.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	var err error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		err = m.runOnce(ctx, fn)
		if err == nil || !retryable(err) || ctx.Err() != nil {
			return err
		}
		m.log.Warn("postgres.tx.retry", zap.Int("attempt", attempt), zap.Error(err))
	}
	return err
}

func (m *TxManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError(err, nil)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err, nil)
	}
	return nil
}

// conn returns the transaction carried by ctx, or the pool for autocommit statements.
func (m *TxManager) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return m.pool
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}
