package orders

import "github.com/ariefcatur/go-marketplace-orders/internal/apperr"

var (
	ErrOrderNotFound     = apperr.New(apperr.KindNotFound, "order.not_found", "order not found")
	ErrAddressNotFound   = apperr.New(apperr.KindNotFound, "order.address_not_found", "address not found")
	ErrInvalidStatus     = apperr.New(apperr.KindValidation, "order.invalid_status", "invalid order status")
	ErrInvalidItem       = apperr.New(apperr.KindValidation, "order.invalid_item", "invalid order item")
	ErrInvalidTransition = apperr.New(apperr.KindConflict, "order.invalid_transition", "invalid order status transition")
)
