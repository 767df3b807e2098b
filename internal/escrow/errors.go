package escrow

import "github.com/ariefcatur/go-marketplace-orders/internal/apperr"

var (
	ErrNotFound          = apperr.New(apperr.KindNotFound, "escrow.not_found", "escrow account not found")
	ErrInvalidStatus     = apperr.New(apperr.KindValidation, "escrow.invalid_status", "invalid escrow status")
	ErrInvalidTransition = apperr.New(apperr.KindConflict, "escrow.invalid_transition", "invalid escrow status transition")
	ErrInvalidAmount     = apperr.New(apperr.KindValidation, "escrow.invalid_amount", "invalid escrow amount")
	ErrInvalidFeePolicy  = apperr.New(apperr.KindValidation, "escrow.invalid_fee_policy", "invalid fee policy")
)
