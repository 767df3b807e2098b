package escrow

import (
	"context"
	"time"
)

// Repository persists escrow accounts and their event log. Lookups return
// ErrNotFound when the account is absent.
type Repository interface {
	Insert(ctx context.Context, acc Account) error
	LockByID(ctx context.Context, id string) (Account, error)
	FindByOrderID(ctx context.Context, orderID string) (Account, error)
	UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error
	AppendEvent(ctx context.Context, ev Event) error
	ListEvents(ctx context.Context, escrowID string) ([]Event, error)
}
