package httpx

import (
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
)

type itemResp struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
	TaxAmount int64  `json:"tax_amount"`
}

type historyResp struct {
	Status    string    `json:"status"`
	ActorID   string    `json:"actor_id,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type escrowResp struct {
	ID          string            `json:"id"`
	GrossAmount int64             `json:"gross_amount"`
	FeeAmount   int64             `json:"fee_amount"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	Events      []escrowEventResp `json:"events"`
}

type escrowEventResp struct {
	Status    string    `json:"status"`
	ActorID   string    `json:"actor_id,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type shipmentResp struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type OrderViewResp struct {
	OrderID           string        `json:"order_id"`
	BuyerID           string        `json:"buyer_id"`
	SellerID          string        `json:"seller_id"`
	ShopID            string        `json:"shop_id"`
	ShippingAddressID string        `json:"shipping_address_id"`
	BillingAddressID  string        `json:"billing_address_id"`
	Status            string        `json:"status"`
	TotalAmount       int64         `json:"total_amount"`
	Currency          string        `json:"currency"`
	PlacedAt          time.Time     `json:"placed_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	Items             []itemResp    `json:"items"`
	History           []historyResp `json:"history"`
	Escrow            escrowResp    `json:"escrow"`
	Shipment          *shipmentResp `json:"shipment,omitempty"`
}

func newOrderViewResp(v lifecycle.OrderView) OrderViewResp {
	out := OrderViewResp{
		OrderID:           v.Order.ID,
		BuyerID:           v.Order.BuyerID,
		SellerID:          v.Order.SellerID,
		ShopID:            v.Order.ShopID,
		ShippingAddressID: v.Order.ShippingAddressID,
		BillingAddressID:  v.Order.BillingAddressID,
		Status:            v.Order.Status.String(),
		TotalAmount:       v.Order.TotalAmount,
		Currency:          v.Order.Currency,
		PlacedAt:          v.Order.PlacedAt,
		UpdatedAt:         v.Order.UpdatedAt,
		Items:             make([]itemResp, 0, len(v.Items)),
		History:           make([]historyResp, 0, len(v.History)),
		Escrow:            newEscrowResp(v.Escrow, v.EscrowEvents),
	}
	for _, it := range v.Items {
		out.Items = append(out.Items, itemResp{
			ID:        it.ID,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
			TaxAmount: it.TaxAmount,
		})
	}
	for _, h := range v.History {
		out.History = append(out.History, historyResp{Status: h.Status.String(), ActorID: h.ActorID, Note: h.Note, CreatedAt: h.CreatedAt})
	}
	if v.Shipment != nil {
		out.Shipment = &shipmentResp{ID: v.Shipment.ID, Status: string(v.Shipment.Status)}
	}
	return out
}

func newEscrowResp(acc escrow.Account, events []escrow.Event) escrowResp {
	out := escrowResp{
		ID:          acc.ID,
		GrossAmount: acc.GrossAmount,
		FeeAmount:   acc.FeeAmount,
		Amount:      acc.Amount,
		Currency:    acc.Currency,
		Status:      string(acc.Status),
		Events:      make([]escrowEventResp, 0, len(events)),
	}
	for _, ev := range events {
		out.Events = append(out.Events, escrowEventResp{Status: string(ev.Status), ActorID: ev.ActorID, Note: ev.Note, CreatedAt: ev.CreatedAt})
	}
	return out
}

type inventoryResp struct {
	ProductID string    `json:"product_id"`
	Available int       `json:"available"`
	Reserved  int       `json:"reserved"`
	UpdatedAt time.Time `json:"updated_at"`
}

type inventoryTxResp struct {
	ID          string    `json:"id"`
	Delta       int       `json:"delta"`
	Reason      string    `json:"reason"`
	RelatedType string    `json:"related_type,omitempty"`
	RelatedID   string    `json:"related_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newInventoryResp(rec inventory.Record) inventoryResp {
	return inventoryResp{ProductID: rec.ProductID, Available: rec.Quantity, Reserved: rec.Reserved, UpdatedAt: rec.UpdatedAt}
}
