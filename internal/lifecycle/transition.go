package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/audit"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/txn"
)

type TransitionCommand struct {
	OrderID string
	ActorID string
	Status  string
	Note    string
}

type CancelCommand struct {
	OrderID string
	ActorID string
	Reason  string
}

type TransitionResult struct {
	OrderID      string
	OldStatus    orders.Status
	NewStatus    orders.Status
	EscrowStatus escrow.Status
	// Compensated counts the reservations released by a cancellation.
	Compensated int
}

// TransitionStatus moves an order to a new status and applies the coupled
// escrow, shipment and inventory changes in the same unit of work.
func (s *Service) TransitionStatus(ctx context.Context, cmd TransitionCommand) (res TransitionResult, err error) {
	ctx, span := s.startSpan(ctx, "lifecycle.TransitionStatus")
	defer func() { endSpan(span, err) }()

	to, err := orders.ParseStatus(cmd.Status)
	if err != nil {
		return TransitionResult{}, err
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return TransitionResult{}, fmt.Errorf("%w: order id is required", ErrInvalidCommand)
	}
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.status.to", to.String()))

	res, err = txn.ExecuteWithResult(ctx, s.uow, func(ctx context.Context) (TransitionResult, error) {
		order, err := s.orders.LockByID(ctx, orderID)
		if err != nil {
			return TransitionResult{}, err
		}
		return s.applyTransition(ctx, order, to, strings.TrimSpace(cmd.ActorID), strings.TrimSpace(cmd.Note))
	})
	s.logTransition(orderID, to, res, err)
	return res, err
}

// CancelOrder cancels an order that has not shipped yet. Cancelling a
// shipped, delivered or already cancelled order fails with ErrNotCancellable.
func (s *Service) CancelOrder(ctx context.Context, cmd CancelCommand) (res TransitionResult, err error) {
	ctx, span := s.startSpan(ctx, "lifecycle.CancelOrder")
	defer func() { endSpan(span, err) }()

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return TransitionResult{}, fmt.Errorf("%w: order id is required", ErrInvalidCommand)
	}
	span.SetAttributes(attribute.String("order.id", orderID))

	res, err = txn.ExecuteWithResult(ctx, s.uow, func(ctx context.Context) (TransitionResult, error) {
		order, err := s.orders.LockByID(ctx, orderID)
		if err != nil {
			return TransitionResult{}, err
		}
		if !order.Status.Cancellable() {
			return TransitionResult{}, fmt.Errorf("%w: order %s is %s", ErrNotCancellable, order.ID, order.Status)
		}
		note := strings.TrimSpace(cmd.Reason)
		if note == "" {
			note = "order cancelled"
		}
		return s.applyTransition(ctx, order, orders.StatusCancelled, strings.TrimSpace(cmd.ActorID), note)
	})
	s.logTransition(orderID, orders.StatusCancelled, res, err)
	return res, err
}

// applyTransition expects order to be locked by the current transaction.
func (s *Service) applyTransition(ctx context.Context, order orders.Order, to orders.Status, actorID, note string) (TransitionResult, error) {
	from := order.Status
	if !orders.CanTransition(from, to) {
		return TransitionResult{}, fmt.Errorf("%w: %s -> %s", orders.ErrInvalidTransition, from, to)
	}
	acc, err := s.escrow.ForOrder(ctx, order.ID)
	if err != nil {
		return TransitionResult{}, err
	}

	now := s.now()
	if err := s.orders.UpdateStatus(ctx, order.ID, to, now); err != nil {
		return TransitionResult{}, err
	}
	if err := s.orders.AppendHistory(ctx, orders.StatusHistory{
		ID:        s.newID(),
		OrderID:   order.ID,
		Status:    to,
		ActorID:   actorID,
		Note:      note,
		CreatedAt: now,
	}); err != nil {
		return TransitionResult{}, err
	}

	escrowBefore := acc.Status
	rule := transitionRules[to]
	if rule.escrow != "" && rule.escrow != acc.Status {
		escrowNote := note
		if escrowNote == "" {
			escrowNote = "order " + to.String()
		}
		acc, err = s.escrow.Transition(ctx, acc.ID, rule.escrow, actorID, escrowNote)
		if errors.Is(err, escrow.ErrInvalidTransition) {
			return TransitionResult{}, fmt.Errorf("%w: %w", ErrEscrowConflict, err)
		}
		if err != nil {
			return TransitionResult{}, err
		}
	}
	if rule.shipment != "" {
		if err := s.shipments.UpdateStatus(ctx, order.ID, rule.shipment, now); err != nil {
			return TransitionResult{}, err
		}
	}
	compensated := 0
	if rule.compensate {
		if compensated, err = s.compensate(ctx, order.ID); err != nil {
			return TransitionResult{}, err
		}
	}

	if err := s.notifyTransition(ctx, order, from, to, acc); err != nil {
		return TransitionResult{}, err
	}

	meta := map[string]any{"escrow_id": acc.ID}
	if note != "" {
		meta["note"] = note
	}
	if compensated > 0 {
		meta["released_reservations"] = compensated
	}
	if _, err := s.audit.Write(ctx, audit.Record{
		ActorID:   actorID,
		Action:    audit.ActionOrderStatusChanged,
		TargetRef: audit.OrderRef(order.ID),
		Diff: map[string]audit.Change{
			"status":        {Before: string(from), After: string(to)},
			"escrow_status": {Before: string(escrowBefore), After: string(acc.Status)},
		},
		Metadata: meta,
	}); err != nil {
		return TransitionResult{}, err
	}

	return TransitionResult{
		OrderID:      order.ID,
		OldStatus:    from,
		NewStatus:    to,
		EscrowStatus: acc.Status,
		Compensated:  compensated,
	}, nil
}

// notifyTransition stages one notification per party and channel.
func (s *Service) notifyTransition(ctx context.Context, order orders.Order, from, to orders.Status, acc escrow.Account) error {
	recipients := []struct {
		userID string
		role   notify.Role
	}{
		{order.BuyerID, notify.RoleBuyer},
		{order.SellerID, notify.RoleSeller},
	}
	for _, r := range recipients {
		for _, ch := range []notify.Channel{notify.ChannelWeb, notify.ChannelEmail} {
			if err := s.notifications.Dispatch(ctx, notify.Notification{
				OrderID: order.ID,
				UserID:  r.userID,
				Role:    r.role,
				Channel: ch,
				Type:    notify.TypeOrderStatusChanged,
				Payload: map[string]any{
					"order_id":      order.ID,
					"old_status":    string(from),
					"new_status":    string(to),
					"total_amount":  order.TotalAmount,
					"escrow_amount": acc.Amount,
					"currency":      order.Currency,
					"message":       s.messages(to, r.role),
				},
				CreatedAt: s.now(),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) logTransition(orderID string, to orders.Status, res TransitionResult, err error) {
	if err != nil {
		s.log.Warn("order.transition.failed",
			zap.String("order_id", orderID),
			zap.String("to", to.String()),
			zap.Error(err),
		)
		return
	}
	s.log.Info("order.transitioned",
		zap.String("order_id", orderID),
		zap.String("from", res.OldStatus.String()),
		zap.String("to", res.NewStatus.String()),
		zap.String("escrow_status", res.EscrowStatus.String()),
		zap.Int("compensated", res.Compensated),
	)
}
