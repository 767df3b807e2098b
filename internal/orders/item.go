package orders

import (
	"fmt"
	"strings"
	"time"
)

// ItemInput is a requested line item. LineTotal and TaxAmount are optional.
type ItemInput struct {
	ProductID string
	SKU       string
	UnitPrice int64
	Quantity  int
	LineTotal *int64
	TaxAmount *int64
}

// Validate checks the required fields of a line item.
func (in ItemInput) Validate() error {
	switch {
	case strings.TrimSpace(in.ProductID) == "":
		return fmt.Errorf("%w: product id is required", ErrInvalidItem)
	case strings.TrimSpace(in.SKU) == "":
		return fmt.Errorf("%w: sku is required for product %s", ErrInvalidItem, in.ProductID)
	case in.UnitPrice < 0:
		return fmt.Errorf("%w: unit price must not be negative for product %s", ErrInvalidItem, in.ProductID)
	case in.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive for product %s", ErrInvalidItem, in.ProductID)
	case in.LineTotal != nil && *in.LineTotal < 0:
		return fmt.Errorf("%w: line total must not be negative for product %s", ErrInvalidItem, in.ProductID)
	case in.TaxAmount != nil && *in.TaxAmount < 0:
		return fmt.Errorf("%w: tax amount must not be negative for product %s", ErrInvalidItem, in.ProductID)
	}
	return nil
}

// NewItem builds an Item, defaulting line_total to unit_price*quantity and tax to zero.
func NewItem(id, orderID string, in ItemInput, now time.Time) Item {
	lineTotal := in.UnitPrice * int64(in.Quantity)
	if in.LineTotal != nil {
		lineTotal = *in.LineTotal
	}
	var tax int64
	if in.TaxAmount != nil {
		tax = *in.TaxAmount
	}
	return Item{
		ID:        id,
		OrderID:   orderID,
		ProductID: strings.TrimSpace(in.ProductID),
		SKU:       strings.TrimSpace(in.SKU),
		UnitPrice: in.UnitPrice,
		Quantity:  in.Quantity,
		LineTotal: lineTotal,
		TaxAmount: tax,
		CreatedAt: now,
	}
}

// Total sums line totals and tax across items.
func Total(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotal + it.TaxAmount
	}
	return total
}
