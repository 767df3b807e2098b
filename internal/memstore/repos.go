package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/audit"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
	"github.com/ariefcatur/go-marketplace-orders/internal/shipment"
)

var errDuplicate = apperr.New(apperr.KindConflict, "store.duplicate", "duplicate key")

// ---- orders ----

type orderRepo struct{ s *Store }

func (r orderRepo) Insert(ctx context.Context, o orders.Order) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.orders[o.ID]; ok {
			return fmt.Errorf("%w: order %s", errDuplicate, o.ID)
		}
		st.orders[o.ID] = o
		return nil
	})
}

func (r orderRepo) InsertItem(ctx context.Context, it orders.Item) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.orders[it.OrderID]; !ok {
			return notFound(orders.ErrOrderNotFound, it.OrderID)
		}
		st.items[it.OrderID] = append(st.items[it.OrderID], it)
		return nil
	})
}

func (r orderRepo) LockByID(ctx context.Context, id string) (orders.Order, error) {
	return r.FindByID(ctx, id)
}

func (r orderRepo) FindByID(_ context.Context, id string) (orders.Order, error) {
	var out orders.Order
	err := r.s.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return notFound(orders.ErrOrderNotFound, id)
		}
		out = o
		return nil
	})
	return out, err
}

func (r orderRepo) UpdateStatus(ctx context.Context, id string, status orders.Status, at time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return notFound(orders.ErrOrderNotFound, id)
		}
		o.Status = status
		o.UpdatedAt = at
		st.orders[id] = o
		return nil
	})
}

func (r orderRepo) ListItems(_ context.Context, orderID string) ([]orders.Item, error) {
	var out []orders.Item
	err := r.s.read(func(st *state) error {
		out = slices.Clone(st.items[orderID])
		return nil
	})
	return out, err
}

func (r orderRepo) AppendHistory(ctx context.Context, h orders.StatusHistory) error {
	return r.s.write(ctx, func(st *state) error {
		st.history[h.OrderID] = append(st.history[h.OrderID], h)
		return nil
	})
}

func (r orderRepo) ListHistory(_ context.Context, orderID string) ([]orders.StatusHistory, error) {
	var out []orders.StatusHistory
	err := r.s.read(func(st *state) error {
		out = slices.Clone(st.history[orderID])
		return nil
	})
	return out, err
}

type addressRepo struct{ s *Store }

func (r addressRepo) Insert(ctx context.Context, a orders.Address) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.addresses[a.ID]; ok {
			return fmt.Errorf("%w: address %s", errDuplicate, a.ID)
		}
		st.addresses[a.ID] = a
		return nil
	})
}

func (r addressRepo) FindByID(_ context.Context, id string) (orders.Address, error) {
	var out orders.Address
	err := r.s.read(func(st *state) error {
		a, ok := st.addresses[id]
		if !ok {
			return notFound(orders.ErrAddressNotFound, id)
		}
		out = a
		return nil
	})
	return out, err
}

// ---- inventory ----

type inventoryRepo struct{ s *Store }

func (r inventoryRepo) LockRecord(ctx context.Context, productID string) (inventory.Record, error) {
	return r.FindRecord(ctx, productID)
}

func (r inventoryRepo) FindRecord(_ context.Context, productID string) (inventory.Record, error) {
	var out inventory.Record
	err := r.s.read(func(st *state) error {
		rec, ok := st.inventory[productID]
		if !ok {
			return notFound(inventory.ErrProductNotFound, productID)
		}
		out = rec
		return nil
	})
	return out, err
}

func (r inventoryRepo) InsertRecord(ctx context.Context, rec inventory.Record) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.inventory[rec.ProductID]; ok {
			return fmt.Errorf("%w: inventory %s", errDuplicate, rec.ProductID)
		}
		st.inventory[rec.ProductID] = rec
		return nil
	})
}

func (r inventoryRepo) UpdateRecord(ctx context.Context, rec inventory.Record) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.inventory[rec.ProductID]; !ok {
			return notFound(inventory.ErrProductNotFound, rec.ProductID)
		}
		if rec.Quantity < 0 || rec.Reserved < 0 {
			return apperr.New(apperr.KindInternal, "inventory.negative_counter", "inventory counters must not go negative")
		}
		st.inventory[rec.ProductID] = rec
		return nil
	})
}

func (r inventoryRepo) AppendTransaction(ctx context.Context, tx inventory.Transaction) error {
	return r.s.write(ctx, func(st *state) error {
		st.invTx = append(st.invTx, tx)
		return nil
	})
}

func (r inventoryRepo) ListTransactions(_ context.Context, productID string) ([]inventory.Transaction, error) {
	var out []inventory.Transaction
	err := r.s.read(func(st *state) error {
		for _, tx := range st.invTx {
			if tx.ProductID == productID {
				out = append(out, tx)
			}
		}
		return nil
	})
	return out, err
}

// ---- escrow ----

type escrowRepo struct{ s *Store }

func (r escrowRepo) Insert(ctx context.Context, acc escrow.Account) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.escrowByOrder[acc.OrderID]; ok {
			return fmt.Errorf("%w: escrow for order %s", errDuplicate, acc.OrderID)
		}
		st.escrows[acc.ID] = acc
		st.escrowByOrder[acc.OrderID] = acc.ID
		return nil
	})
}

func (r escrowRepo) LockByID(_ context.Context, id string) (escrow.Account, error) {
	var out escrow.Account
	err := r.s.read(func(st *state) error {
		acc, ok := st.escrows[id]
		if !ok {
			return notFound(escrow.ErrNotFound, id)
		}
		out = acc
		return nil
	})
	return out, err
}

func (r escrowRepo) FindByOrderID(ctx context.Context, orderID string) (escrow.Account, error) {
	var id string
	_ = r.s.read(func(st *state) error {
		id = st.escrowByOrder[orderID]
		return nil
	})
	if id == "" {
		return escrow.Account{}, notFound(escrow.ErrNotFound, "order "+orderID)
	}
	return r.LockByID(ctx, id)
}

func (r escrowRepo) UpdateStatus(ctx context.Context, id string, status escrow.Status, at time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		acc, ok := st.escrows[id]
		if !ok {
			return notFound(escrow.ErrNotFound, id)
		}
		acc.Status = status
		acc.UpdatedAt = at
		st.escrows[id] = acc
		return nil
	})
}

func (r escrowRepo) AppendEvent(ctx context.Context, ev escrow.Event) error {
	return r.s.write(ctx, func(st *state) error {
		st.escrowEvents = append(st.escrowEvents, ev)
		return nil
	})
}

func (r escrowRepo) ListEvents(_ context.Context, escrowID string) ([]escrow.Event, error) {
	var out []escrow.Event
	err := r.s.read(func(st *state) error {
		for _, ev := range st.escrowEvents {
			if ev.EscrowID == escrowID {
				out = append(out, ev)
			}
		}
		return nil
	})
	return out, err
}

// ---- shipment ----

type shipmentRepo struct{ s *Store }

func (r shipmentRepo) Insert(ctx context.Context, rec shipment.Record) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.shipments[rec.OrderID]; ok {
			return fmt.Errorf("%w: shipment for order %s", errDuplicate, rec.OrderID)
		}
		st.shipments[rec.OrderID] = rec
		return nil
	})
}

func (r shipmentRepo) FindByOrderID(_ context.Context, orderID string) (shipment.Record, error) {
	var out shipment.Record
	err := r.s.read(func(st *state) error {
		rec, ok := st.shipments[orderID]
		if !ok {
			return notFound(shipment.ErrNotFound, orderID)
		}
		out = rec
		return nil
	})
	return out, err
}

func (r shipmentRepo) UpdateStatus(ctx context.Context, orderID string, status shipment.Status, at time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		rec, ok := st.shipments[orderID]
		if !ok {
			return notFound(shipment.ErrNotFound, orderID)
		}
		rec.Status = status
		rec.UpdatedAt = at
		st.shipments[orderID] = rec
		return nil
	})
}

// ---- audit ----

type auditRepo struct{ s *Store }

func (r auditRepo) Append(ctx context.Context, e audit.Entry) error {
	return r.s.write(ctx, func(st *state) error {
		st.audit = append(st.audit, e)
		return nil
	})
}

func (r auditRepo) ListByTarget(_ context.Context, target string) ([]audit.Entry, error) {
	var out []audit.Entry
	err := r.s.read(func(st *state) error {
		for _, e := range st.audit {
			if e.TargetRef == target {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

// ---- outbox ----

type outboxRepo struct{ s *Store }

func (r outboxRepo) Append(ctx context.Context, msg outbox.Message) error {
	return r.s.write(ctx, func(st *state) error {
		st.outbox = append(st.outbox, msg)
		return nil
	})
}

func (r outboxRepo) ListPending(_ context.Context, limit int) ([]outbox.Message, error) {
	var out []outbox.Message
	err := r.s.read(func(st *state) error {
		for _, m := range st.outbox {
			if m.DispatchedAt == nil && m.FailedAt == nil {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r outboxRepo) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	return r.updateMessage(ctx, id, func(m *outbox.Message) {
		m.DispatchedAt = &at
		m.Attempts++
		m.LastError = ""
	})
}

func (r outboxRepo) RecordFailure(ctx context.Context, id, reason string) error {
	return r.updateMessage(ctx, id, func(m *outbox.Message) {
		m.Attempts++
		m.LastError = reason
	})
}

func (r outboxRepo) Park(ctx context.Context, id, reason string, at time.Time) error {
	return r.updateMessage(ctx, id, func(m *outbox.Message) {
		m.Attempts++
		m.LastError = reason
		m.FailedAt = &at
	})
}

func (r outboxRepo) updateMessage(ctx context.Context, id string, fn func(*outbox.Message)) error {
	return r.s.write(ctx, func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				m := st.outbox[i]
				fn(&m)
				st.outbox[i] = m
				return nil
			}
		}
		return apperr.New(apperr.KindNotFound, "outbox.not_found", "outbox message "+id+" not found")
	})
}

// ---- compensations ----

type compensationRepo struct{ s *Store }

func (r compensationRepo) Append(ctx context.Context, c lifecycle.Compensation) error {
	return r.s.write(ctx, func(st *state) error {
		for _, existing := range st.compensations[c.OrderID] {
			if existing.Seq == c.Seq {
				return fmt.Errorf("%w: compensation %s/%d", errDuplicate, c.OrderID, c.Seq)
			}
		}
		st.compensations[c.OrderID] = append(st.compensations[c.OrderID], c)
		return nil
	})
}

func (r compensationRepo) ListPending(_ context.Context, orderID string) ([]lifecycle.Compensation, error) {
	var out []lifecycle.Compensation
	err := r.s.read(func(st *state) error {
		for _, c := range st.compensations[orderID] {
			if c.AppliedAt == nil {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, err
}

func (r compensationRepo) MarkApplied(ctx context.Context, orderID string, seq int, at time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		list := st.compensations[orderID]
		for i := range list {
			if list[i].Seq == seq {
				list[i].AppliedAt = &at
				return nil
			}
		}
		return apperr.New(apperr.KindNotFound, "compensation.not_found", fmt.Sprintf("compensation %s/%d not found", orderID, seq))
	})
}

// ---- directory ----

type directory struct{ s *Store }

func (d directory) GetBuyerProfile(_ context.Context, userID string) (lifecycle.Profile, error) {
	var out lifecycle.Profile
	err := d.s.read(func(st *state) error {
		p, ok := st.profiles[strings.TrimSpace(userID)]
		if !ok {
			return notFound(lifecycle.ErrProfileNotFound, userID)
		}
		out = p
		return nil
	})
	return out, err
}

func (d directory) GetShopBySellerID(_ context.Context, sellerID string) (lifecycle.Shop, error) {
	var out lifecycle.Shop
	err := d.s.read(func(st *state) error {
		shop, ok := st.shops[strings.TrimSpace(sellerID)]
		if !ok {
			return notFound(lifecycle.ErrShopNotFound, sellerID)
		}
		out = shop
		return nil
	})
	return out, err
}
