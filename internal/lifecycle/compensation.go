package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
)

// CompensationKind names the reversing action of a forward step.
type CompensationKind string

const CompensateInventoryRelease CompensationKind = "inventory.release"

// Compensation is recorded by a forward step of order creation and executed
// when the order is cancelled.
type Compensation struct {
	OrderID   string
	Seq       int
	Kind      CompensationKind
	ProductID string
	Quantity  int
	CreatedAt time.Time
	AppliedAt *time.Time
}

type CompensationRepository interface {
	Append(ctx context.Context, c Compensation) error
	// ListPending returns the entries of orderID that have not been applied, ordered by Seq.
	ListPending(ctx context.Context, orderID string) ([]Compensation, error)
	MarkApplied(ctx context.Context, orderID string, seq int, at time.Time) error
}

var errUnknownCompensation = apperr.New(apperr.KindInternal, "order.unknown_compensation", "unknown compensation kind")

// compensate runs the pending compensations of an order in reverse order.
func (s *Service) compensate(ctx context.Context, orderID string) (int, error) {
	pending, err := s.compensations.ListPending(ctx, orderID)
	if err != nil {
		return 0, err
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Seq > pending[j].Seq })

	ref := inventory.OrderRef(orderID)
	for _, c := range pending {
		switch c.Kind {
		case CompensateInventoryRelease:
			if _, err := s.ledger.Release(ctx, c.ProductID, c.Quantity, ref); err != nil {
				return 0, fmt.Errorf("release %s: %w", c.ProductID, err)
			}
		default:
			return 0, fmt.Errorf("%w: %q", errUnknownCompensation, c.Kind)
		}
		if err := s.compensations.MarkApplied(ctx, orderID, c.Seq, s.now()); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}
