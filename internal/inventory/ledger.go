// Package inventory owns per-product available/reserved counters and the
// append-only transaction log that explains every change to them.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/txn"
)

// LedgerDeps bundles the collaborators of a Ledger.
type LedgerDeps struct {
	Repo        Repository
	UnitOfWork  txn.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *zap.Logger
}

// Ledger mutates inventory counters. Every mutation locks the record, checks
// the invariants and appends a Transaction in the same unit of work, so it can
// be called standalone or from inside a larger transaction.
type Ledger struct {
	repo  Repository
	uow   txn.UnitOfWork
	clock func() time.Time
	newID func() string
	log   *zap.Logger
}

func NewLedger(deps LedgerDeps) (*Ledger, error) {
	if deps.Repo == nil {
		return nil, errors.New("inventory ledger: repository is required")
	}
	uow := deps.UnitOfWork
	if uow == nil {
		uow = txn.Noop{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		repo:  deps.Repo,
		uow:   uow,
		clock: func() time.Time { return clock().UTC() },
		newID: idGen,
		log:   logger,
	}, nil
}

// Reserve moves qty from available to reserved. It fails with ErrOutOfStock
// when the record cannot cover qty and leaves the counters untouched.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int, ref Reference) (Transaction, error) {
	return l.apply(ctx, productID, qty, ref, ReasonOrderReservation, func(rec *Record) error {
		if rec.Quantity < qty {
			return fmt.Errorf("%w: product %s has %d available, %d requested", ErrOutOfStock, rec.ProductID, rec.Quantity, qty)
		}
		rec.Quantity -= qty
		rec.Reserved += qty
		return nil
	}, -qty)
}

// Release returns qty from reserved to available. Releasing more than is
// reserved is rejected rather than clamped.
func (l *Ledger) Release(ctx context.Context, productID string, qty int, ref Reference) (Transaction, error) {
	return l.apply(ctx, productID, qty, ref, ReasonOrderCancellation, func(rec *Record) error {
		if rec.Reserved < qty {
			return fmt.Errorf("%w: product %s has %d reserved, %d released", ErrReleaseExceedsStock, rec.ProductID, rec.Reserved, qty)
		}
		rec.Reserved -= qty
		rec.Quantity += qty
		return nil
	}, qty)
}

// Restock adds qty to available stock, creating the record if needed.
func (l *Ledger) Restock(ctx context.Context, productID string, qty int) (Record, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Record{}, fmt.Errorf("%w: product id is required", ErrInvalidQuantity)
	}
	if qty <= 0 {
		return Record{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty)
	}
	return txn.ExecuteWithResult(ctx, l.uow, func(ctx context.Context) (Record, error) {
		now := l.clock()
		rec, err := l.repo.LockRecord(ctx, productID)
		switch {
		case errors.Is(err, ErrProductNotFound):
			rec = Record{ProductID: productID, Quantity: qty, UpdatedAt: now}
			if err := l.repo.InsertRecord(ctx, rec); err != nil {
				return Record{}, err
			}
		case err != nil:
			return Record{}, err
		default:
			rec.Quantity += qty
			rec.UpdatedAt = now
			if err := l.repo.UpdateRecord(ctx, rec); err != nil {
				return Record{}, err
			}
		}
		entry := Transaction{
			ID:        l.newID(),
			ProductID: productID,
			Delta:     qty,
			Reason:    ReasonRestock,
			CreatedAt: now,
		}
		if err := l.repo.AppendTransaction(ctx, entry); err != nil {
			return Record{}, err
		}
		l.log.Info("inventory.restock", zap.String("product_id", productID), zap.Int("quantity", qty), zap.Int("available", rec.Quantity))
		return rec, nil
	})
}

// Record returns the current counters for productID.
func (l *Ledger) Record(ctx context.Context, productID string) (Record, error) {
	return l.repo.FindRecord(ctx, productID)
}

// Transactions lists the log for productID, oldest first.
func (l *Ledger) Transactions(ctx context.Context, productID string) ([]Transaction, error) {
	if _, err := l.repo.FindRecord(ctx, productID); err != nil {
		return nil, err
	}
	return l.repo.ListTransactions(ctx, productID)
}

func (l *Ledger) apply(ctx context.Context, productID string, qty int, ref Reference, reason Reason, mutate func(*Record) error, delta int) (Transaction, error) {
	if qty <= 0 {
		return Transaction{}, fmt.Errorf("%w: got %d for product %s", ErrInvalidQuantity, qty, productID)
	}
	return txn.ExecuteWithResult(ctx, l.uow, func(ctx context.Context) (Transaction, error) {
		rec, err := l.repo.LockRecord(ctx, productID)
		if err != nil {
			return Transaction{}, err
		}
		if err := mutate(&rec); err != nil {
			return Transaction{}, err
		}
		now := l.clock()
		rec.UpdatedAt = now
		if err := l.repo.UpdateRecord(ctx, rec); err != nil {
			return Transaction{}, err
		}
		entry := Transaction{
			ID:          l.newID(),
			ProductID:   productID,
			Delta:       delta,
			Reason:      reason,
			RelatedType: ref.Type,
			RelatedID:   ref.ID,
			CreatedAt:   now,
		}
		if err := l.repo.AppendTransaction(ctx, entry); err != nil {
			return Transaction{}, err
		}
		l.log.Debug("inventory."+string(reason),
			zap.String("product_id", productID),
			zap.Int("delta", delta),
			zap.Int("available", rec.Quantity),
			zap.Int("reserved", rec.Reserved),
			zap.String("related_id", ref.ID),
		)
		return entry, nil
	})
}
