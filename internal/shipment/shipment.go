// Package shipment tracks the fulfilment mirror of an order. Carrier and
// tracking details live outside this service.
package shipment

import (
	"context"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

var ErrNotFound = apperr.New(apperr.KindNotFound, "shipment.not_found", "shipment not found")

// Record is the single shipment row of an order.
type Record struct {
	ID        string
	OrderID   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository returns ErrNotFound when an order has no shipment.
type Repository interface {
	Insert(ctx context.Context, rec Record) error
	FindByOrderID(ctx context.Context, orderID string) (Record, error)
	UpdateStatus(ctx context.Context, orderID string, status Status, updatedAt time.Time) error
}
