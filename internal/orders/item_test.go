package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewItemDefaults(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	item := NewItem("it-1", "ord-1", ItemInput{ProductID: " p-1 ", SKU: "SKU-1", UnitPrice: 100, Quantity: 3}, now)

	assert.Equal(t, "p-1", item.ProductID)
	assert.Equal(t, int64(300), item.LineTotal)
	assert.Zero(t, item.TaxAmount)
	assert.Equal(t, now, item.CreatedAt)
}

func TestNewItemKeepsSuppliedTotals(t *testing.T) {
	line, tax := int64(250), int64(40)
	item := NewItem("it-1", "ord-1", ItemInput{ProductID: "p-1", SKU: "SKU-1", UnitPrice: 100, Quantity: 3, LineTotal: &line, TaxAmount: &tax}, time.Now())

	assert.Equal(t, int64(250), item.LineTotal)
	assert.Equal(t, int64(40), item.TaxAmount)
	assert.Equal(t, int64(290), Total([]Item{item}))
}

func TestItemInputValidate(t *testing.T) {
	negative := int64(-1)
	cases := map[string]ItemInput{
		"missing product": {SKU: "S", UnitPrice: 1, Quantity: 1},
		"missing sku":     {ProductID: "p", UnitPrice: 1, Quantity: 1},
		"negative price":  {ProductID: "p", SKU: "S", UnitPrice: -5, Quantity: 1},
		"zero quantity":   {ProductID: "p", SKU: "S", UnitPrice: 1},
		"negative total":  {ProductID: "p", SKU: "S", UnitPrice: 1, Quantity: 1, LineTotal: &negative},
		"negative tax":    {ProductID: "p", SKU: "S", UnitPrice: 1, Quantity: 1, TaxAmount: &negative},
	}
	for name, in := range cases {
		err := in.Validate()
		assert.True(t, errors.Is(err, ErrInvalidItem), name)
	}
	assert.NoError(t, ItemInput{ProductID: "p", SKU: "S", UnitPrice: 0, Quantity: 1}.Validate())
}
