package inventory

import "github.com/ariefcatur/go-marketplace-orders/internal/apperr"

var (
	ErrOutOfStock          = apperr.New(apperr.KindConflict, "inventory.out_of_stock", "insufficient stock")
	ErrProductNotFound     = apperr.New(apperr.KindNotFound, "inventory.product_not_found", "inventory record not found")
	ErrInvalidQuantity     = apperr.New(apperr.KindValidation, "inventory.invalid_quantity", "quantity must be positive")
	ErrReleaseExceedsStock = apperr.New(apperr.KindConflict, "inventory.release_exceeds_reserved", "release exceeds reserved quantity")
)
