package orders

import (
	"context"
	"time"
)

// Repository owns the order header, its items and the status history.
// Implementations return ErrOrderNotFound when the order is absent.
type Repository interface {
	Insert(ctx context.Context, order Order) error
	InsertItem(ctx context.Context, item Item) error
	// LockByID loads the order and holds a row lock until the enclosing transaction ends.
	LockByID(ctx context.Context, id string) (Order, error)
	FindByID(ctx context.Context, id string) (Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error
	ListItems(ctx context.Context, orderID string) ([]Item, error)
	AppendHistory(ctx context.Context, entry StatusHistory) error
	ListHistory(ctx context.Context, orderID string) ([]StatusHistory, error)
}

// AddressRepository stores shipping and billing addresses referenced by orders.
type AddressRepository interface {
	Insert(ctx context.Context, addr Address) error
	FindByID(ctx context.Context, id string) (Address, error)
}
