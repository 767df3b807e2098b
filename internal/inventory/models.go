package inventory

import "time"

// Reason explains why an inventory transaction was written.
type Reason string

const (
	ReasonOrderReservation  Reason = "order_reservation"
	ReasonOrderCancellation Reason = "order_cancellation"
	ReasonRestock           Reason = "restock"
)

// Record holds the counters for one product. Quantity is what other orders
// can still claim; Reserved is held for open orders.
type Record struct {
	ProductID string
	Quantity  int
	Reserved  int
	UpdatedAt time.Time
}

// Transaction is an append-only entry explaining a counter change.
type Transaction struct {
	ID          string
	ProductID   string
	Delta       int
	Reason      Reason
	RelatedType string
	RelatedID   string
	CreatedAt   time.Time
}

// Reference names the entity a transaction belongs to, usually an order.
type Reference struct {
	Type string
	ID   string
}

const RelatedOrder = "order"

// OrderRef builds a Reference to an order.
func OrderRef(orderID string) Reference {
	return Reference{Type: RelatedOrder, ID: orderID}
}
