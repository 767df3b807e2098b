package escrow

import "time"

// Account holds buyer funds for exactly one order. Amount is what the seller
// receives on release: GrossAmount minus FeeAmount.
type Account struct {
	ID          string
	OrderID     string
	GrossAmount int64
	FeeAmount   int64
	Amount      int64
	Currency    string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Event is an append-only record of a status change on an Account.
type Event struct {
	ID        string
	EscrowID  string
	Status    Status
	ActorID   string
	Note      string
	CreatedAt time.Time
}
