package lifecycle

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/shipment"
	"github.com/ariefcatur/go-marketplace-orders/internal/txn"
)

// OrderView is the read model of a single order.
type OrderView struct {
	Order        orders.Order
	Items        []orders.Item
	History      []orders.StatusHistory
	Escrow       escrow.Account
	EscrowEvents []escrow.Event
	Shipment     *shipment.Record
}

// GetOrder loads an order with everything attached to it from one consistent snapshot.
func (s *Service) GetOrder(ctx context.Context, orderID string) (OrderView, error) {
	return txn.ExecuteWithResult(ctx, s.uow, func(ctx context.Context) (OrderView, error) {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return OrderView{}, err
		}
		items, err := s.orders.ListItems(ctx, orderID)
		if err != nil {
			return OrderView{}, err
		}
		history, err := s.orders.ListHistory(ctx, orderID)
		if err != nil {
			return OrderView{}, err
		}
		acc, err := s.escrow.ForOrder(ctx, orderID)
		if err != nil {
			return OrderView{}, err
		}
		events, err := s.escrow.Events(ctx, acc.ID)
		if err != nil {
			return OrderView{}, err
		}
		view := OrderView{Order: order, Items: items, History: history, Escrow: acc, EscrowEvents: events}
		ship, err := s.shipments.FindByOrderID(ctx, orderID)
		switch {
		case err == nil:
			view.Shipment = &ship
		case !errors.Is(err, shipment.ErrNotFound):
			return OrderView{}, err
		}
		return view, nil
	})
}
