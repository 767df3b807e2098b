package lifecycle

import (
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/shipment"
)

// transitionRule lists the side effects of entering an order status.
type transitionRule struct {
	escrow     escrow.Status
	shipment   shipment.Status
	compensate bool
}

// transitionRules couples order status to escrow and shipment. Statuses
// without an entry leave escrow and shipment untouched.
var transitionRules = map[orders.Status]transitionRule{
	orders.StatusConfirmed: {escrow: escrow.StatusHeld},
	orders.StatusShipped:   {escrow: escrow.StatusPendingRelease, shipment: shipment.StatusShipped},
	orders.StatusDelivered: {escrow: escrow.StatusReleased, shipment: shipment.StatusDelivered},
	orders.StatusCancelled: {escrow: escrow.StatusRefunded, compensate: true},
}

// EscrowStatusFor reports the escrow status an order in status must be paired with.
func EscrowStatusFor(status orders.Status) (escrow.Status, bool) {
	r, ok := transitionRules[status]
	if !ok || r.escrow == "" {
		return "", false
	}
	return r.escrow, true
}

type messageKey struct {
	status orders.Status
	role   notify.Role
}

// MessageCatalog returns the human readable text for a status change.
type MessageCatalog func(status orders.Status, role notify.Role) string

var defaultMessages = map[messageKey]string{
	{orders.StatusPending, notify.RoleBuyer}:     "Your order has been placed and is awaiting the seller.",
	{orders.StatusPending, notify.RoleSeller}:    "You have a new order awaiting confirmation.",
	{orders.StatusProcessing, notify.RoleBuyer}:  "The seller is processing your order.",
	{orders.StatusProcessing, notify.RoleSeller}: "The order is being processed.",
	{orders.StatusConfirmed, notify.RoleBuyer}:   "Your order has been confirmed. Payment stays in escrow until delivery.",
	{orders.StatusConfirmed, notify.RoleSeller}:  "You confirmed the order. Prepare it for shipment.",
	{orders.StatusShipped, notify.RoleBuyer}:     "Your order is on its way.",
	{orders.StatusShipped, notify.RoleSeller}:    "The order was shipped. Escrow funds are pending release.",
	{orders.StatusDelivered, notify.RoleBuyer}:   "Your order was delivered.",
	{orders.StatusDelivered, notify.RoleSeller}:  "The order was delivered and the escrow funds were released.",
	{orders.StatusCancelled, notify.RoleBuyer}:   "Your order was cancelled and your payment will be refunded.",
	{orders.StatusCancelled, notify.RoleSeller}:  "The order was cancelled and its stock returned to inventory.",
}

// DefaultMessages is the built-in English catalog.
func DefaultMessages(status orders.Status, role notify.Role) string {
	if msg, ok := defaultMessages[messageKey{status, role}]; ok {
		return msg
	}
	return fmt.Sprintf("Order status changed to %s.", status)
}
