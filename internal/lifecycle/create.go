package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/ariefcatur/go-marketplace-orders/internal/audit"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/shipment"
	"github.com/ariefcatur/go-marketplace-orders/internal/txn"
)

// CreateOrderCommand is the input of CreateOrder. TotalAmount defaults to the
// sum of line totals and taxes.
type CreateOrderCommand struct {
	BuyerID           string
	SellerID          string
	ShippingAddressID string
	BillingAddressID  string
	Currency          string
	TotalAmount       *int64
	Items             []orders.ItemInput
}

type CreateOrderResult struct {
	OrderID      string
	Status       orders.Status
	TotalAmount  int64
	Currency     string
	EscrowID     string
	EscrowAmount int64
	PlacedAt     time.Time
}

func (c CreateOrderCommand) normalize() (CreateOrderCommand, error) {
	c.BuyerID = strings.TrimSpace(c.BuyerID)
	c.SellerID = strings.TrimSpace(c.SellerID)
	c.ShippingAddressID = strings.TrimSpace(c.ShippingAddressID)
	c.BillingAddressID = strings.TrimSpace(c.BillingAddressID)
	if c.BuyerID == "" {
		return c, fmt.Errorf("%w: buyer id is required", ErrInvalidCommand)
	}
	if c.SellerID == "" {
		return c, fmt.Errorf("%w: seller id is required", ErrInvalidCommand)
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(c.Currency)))
	if err != nil {
		return c, fmt.Errorf("%w: currency %q is not an ISO 4217 code", ErrInvalidCommand, c.Currency)
	}
	c.Currency = unit.String()
	if len(c.Items) == 0 {
		return c, fmt.Errorf("%w: at least one item is required", ErrInvalidCommand)
	}
	for _, it := range c.Items {
		if err := it.Validate(); err != nil {
			return c, err
		}
	}
	if c.TotalAmount != nil && *c.TotalAmount < 0 {
		return c, fmt.Errorf("%w: total amount must not be negative", ErrInvalidCommand)
	}
	return c, nil
}

// CreateOrder places a pending order, reserves its stock and opens escrow.
// Either every step commits or none does.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (res CreateOrderResult, err error) {
	ctx, span := s.startSpan(ctx, "lifecycle.CreateOrder")
	defer func() { endSpan(span, err) }()

	cmd, err = cmd.normalize()
	if err != nil {
		return CreateOrderResult{}, err
	}
	span.SetAttributes(
		attribute.String("order.buyer_id", cmd.BuyerID),
		attribute.String("order.seller_id", cmd.SellerID),
		attribute.Int("order.item_count", len(cmd.Items)),
	)

	res, err = txn.ExecuteWithResult(ctx, s.uow, func(ctx context.Context) (CreateOrderResult, error) {
		return s.createOrder(ctx, cmd)
	})
	if err != nil {
		s.log.Warn("order.create.failed",
			zap.String("buyer_id", cmd.BuyerID),
			zap.String("seller_id", cmd.SellerID),
			zap.Error(err),
		)
		return CreateOrderResult{}, err
	}
	span.SetAttributes(attribute.String("order.id", res.OrderID))
	s.log.Info("order.created",
		zap.String("order_id", res.OrderID),
		zap.String("escrow_id", res.EscrowID),
		zap.Int64("total_amount", res.TotalAmount),
		zap.String("currency", res.Currency),
	)
	return res, nil
}

func (s *Service) createOrder(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error) {
	shop, err := s.shops.GetShopBySellerID(ctx, cmd.SellerID)
	if err != nil {
		return CreateOrderResult{}, err
	}

	// 1) addresses
	shippingID, billingID, err := s.resolveAddresses(ctx, cmd)
	if err != nil {
		return CreateOrderResult{}, err
	}

	now := s.now()
	orderID := s.newID()
	items := make([]orders.Item, 0, len(cmd.Items))
	for _, in := range cmd.Items {
		items = append(items, orders.NewItem(s.newID(), orderID, in, now))
	}
	total := orders.Total(items)
	if cmd.TotalAmount != nil {
		total = *cmd.TotalAmount
	}

	// 2) order header
	order := orders.Order{
		ID:                orderID,
		BuyerID:           cmd.BuyerID,
		SellerID:          cmd.SellerID,
		ShopID:            shop.ID,
		ShippingAddressID: shippingID,
		BillingAddressID:  billingID,
		TotalAmount:       total,
		Currency:          cmd.Currency,
		Status:            orders.StatusPending,
		PlacedAt:          now,
		UpdatedAt:         now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return CreateOrderResult{}, err
	}

	// 3) items, reservations and their compensations
	ref := inventory.OrderRef(orderID)
	for i, item := range items {
		if err := s.orders.InsertItem(ctx, item); err != nil {
			return CreateOrderResult{}, err
		}
		if _, err := s.ledger.Reserve(ctx, item.ProductID, item.Quantity, ref); err != nil {
			return CreateOrderResult{}, err
		}
		if err := s.compensations.Append(ctx, Compensation{
			OrderID:   orderID,
			Seq:       i + 1,
			Kind:      CompensateInventoryRelease,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			CreatedAt: now,
		}); err != nil {
			return CreateOrderResult{}, err
		}
	}

	// 4) initial history
	if err := s.orders.AppendHistory(ctx, orders.StatusHistory{
		ID:        s.newID(),
		OrderID:   orderID,
		Status:    orders.StatusPending,
		ActorID:   cmd.BuyerID,
		Note:      "order placed",
		CreatedAt: now,
	}); err != nil {
		return CreateOrderResult{}, err
	}

	// 5) escrow
	acc, err := s.escrow.Open(ctx, escrow.OpenRequest{
		OrderID:     orderID,
		GrossAmount: total,
		Currency:    cmd.Currency,
		ItemCount:   len(items),
		ActorID:     cmd.BuyerID,
	})
	if err != nil {
		return CreateOrderResult{}, err
	}

	// 6) shipment
	if err := s.shipments.Insert(ctx, shipment.Record{
		ID:        s.newID(),
		OrderID:   orderID,
		Status:    shipment.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return CreateOrderResult{}, err
	}

	// 7) buyer notification
	if err := s.notifications.Dispatch(ctx, notify.Notification{
		OrderID: orderID,
		UserID:  cmd.BuyerID,
		Role:    notify.RoleBuyer,
		Channel: notify.ChannelWeb,
		Type:    notify.TypeOrderCreated,
		Payload: map[string]any{
			"order_id":   orderID,
			"amount":     total,
			"currency":   cmd.Currency,
			"item_count": len(items),
			"message":    s.messages(orders.StatusPending, notify.RoleBuyer),
		},
		CreatedAt: now,
	}); err != nil {
		return CreateOrderResult{}, err
	}

	if _, err := s.audit.Write(ctx, audit.Record{
		ActorID:   cmd.BuyerID,
		Action:    audit.ActionOrderCreated,
		TargetRef: audit.OrderRef(orderID),
		Diff: map[string]audit.Change{
			"status": {After: string(orders.StatusPending)},
		},
		Metadata: map[string]any{
			"shop_id":      shop.ID,
			"escrow_id":    acc.ID,
			"total_amount": total,
			"currency":     cmd.Currency,
			"item_count":   len(items),
		},
	}); err != nil {
		return CreateOrderResult{}, err
	}

	return CreateOrderResult{
		OrderID:      orderID,
		Status:       orders.StatusPending,
		TotalAmount:  total,
		Currency:     cmd.Currency,
		EscrowID:     acc.ID,
		EscrowAmount: acc.Amount,
		PlacedAt:     now,
	}, nil
}
