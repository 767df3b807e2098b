package lifecycle

import "github.com/ariefcatur/go-marketplace-orders/internal/apperr"

var (
	ErrInvalidCommand    = apperr.New(apperr.KindValidation, "order.invalid_command", "invalid order request")
	ErrShopNotFound      = apperr.New(apperr.KindNotFound, "shop.not_found", "seller has no registered shop")
	ErrProfileNotFound   = apperr.New(apperr.KindNotFound, "profile.not_found", "buyer profile not found")
	ErrIncompleteProfile = apperr.New(apperr.KindValidation, "profile.incomplete", "buyer profile cannot be used as a shipping address")
	ErrNotCancellable    = apperr.New(apperr.KindConflict, "order.not_cancellable", "order cannot be cancelled in its current state")
	ErrEscrowConflict    = apperr.New(apperr.KindConflict, "order.escrow_conflict", "escrow cannot follow the order transition")
)
