package inventory

import "context"

// Repository persists inventory counters and their transaction log.
// LockRecord and FindRecord return ErrProductNotFound when no record exists.
type Repository interface {
	// LockRecord loads the record under a row lock held until the enclosing transaction ends.
	LockRecord(ctx context.Context, productID string) (Record, error)
	FindRecord(ctx context.Context, productID string) (Record, error)
	InsertRecord(ctx context.Context, rec Record) error
	UpdateRecord(ctx context.Context, rec Record) error
	AppendTransaction(ctx context.Context, tx Transaction) error
	ListTransactions(ctx context.Context, productID string) ([]Transaction, error)
}
