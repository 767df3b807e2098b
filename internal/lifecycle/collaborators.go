package lifecycle

import (
	"context"

	"github.com/ariefcatur/go-marketplace-orders/internal/audit"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
)

// Profile is the subset of a buyer profile used to synthesize a shipping address.
type Profile struct {
	UserID       string
	FullName     string
	Phone        string
	Email        string
	Locale       string
	AddressLine1 string
	AddressLine2 string
	City         string
	Region       string
	PostalCode   string
	Country      string
}

type Shop struct {
	ID       string
	SellerID string
	Name     string
}

// ProfileResolver returns ErrProfileNotFound for unknown users.
type ProfileResolver interface {
	GetBuyerProfile(ctx context.Context, userID string) (Profile, error)
}

// ShopRegistry returns ErrShopNotFound when the seller has no shop.
type ShopRegistry interface {
	GetShopBySellerID(ctx context.Context, sellerID string) (Shop, error)
}

// NotificationDispatcher is called inside the lifecycle transaction.
// Implementations stage the notification for delivery after commit.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n notify.Notification) error
}

// InventoryLedger is satisfied by *inventory.Ledger.
type InventoryLedger interface {
	Reserve(ctx context.Context, productID string, qty int, ref inventory.Reference) (inventory.Transaction, error)
	Release(ctx context.Context, productID string, qty int, ref inventory.Reference) (inventory.Transaction, error)
}

// EscrowCustody is satisfied by *escrow.Manager.
type EscrowCustody interface {
	Open(ctx context.Context, req escrow.OpenRequest) (escrow.Account, error)
	Transition(ctx context.Context, id string, status escrow.Status, actorID, note string) (escrow.Account, error)
	ForOrder(ctx context.Context, orderID string) (escrow.Account, error)
	Events(ctx context.Context, escrowID string) ([]escrow.Event, error)
}

// AuditWriter is satisfied by *audit.Writer.
type AuditWriter interface {
	Write(ctx context.Context, rec audit.Record) (audit.Entry, error)
}
