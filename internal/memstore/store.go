// Package memstore is an in-memory implementation of every repository. A
// transaction holds an exclusive lock for its whole duration and restores a
// snapshot of the state when it fails, which gives the same all-or-nothing
// and row-lock semantics the lifecycle relies on from Postgres.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ariefcatur/go-marketplace-orders/internal/audit"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
	"github.com/ariefcatur/go-marketplace-orders/internal/shipment"
)

type state struct {
	orders        map[string]orders.Order
	items         map[string][]orders.Item
	history       map[string][]orders.StatusHistory
	addresses     map[string]orders.Address
	inventory     map[string]inventory.Record
	invTx         []inventory.Transaction
	escrows       map[string]escrow.Account
	escrowByOrder map[string]string
	escrowEvents  []escrow.Event
	shipments     map[string]shipment.Record
	audit         []audit.Entry
	outbox        []outbox.Message
	compensations map[string][]lifecycle.Compensation
	profiles      map[string]lifecycle.Profile
	shops         map[string]lifecycle.Shop
}

func newState() *state {
	return &state{
		orders:        map[string]orders.Order{},
		items:         map[string][]orders.Item{},
		history:       map[string][]orders.StatusHistory{},
		addresses:     map[string]orders.Address{},
		inventory:     map[string]inventory.Record{},
		escrows:       map[string]escrow.Account{},
		escrowByOrder: map[string]string{},
		shipments:     map[string]shipment.Record{},
		compensations: map[string][]lifecycle.Compensation{},
		profiles:      map[string]lifecycle.Profile{},
		shops:         map[string]lifecycle.Shop{},
	}
}

// clone copies every map and slice. Stored values are never mutated in
// place, so a shallow copy of each element is enough.
func (s *state) clone() *state {
	return &state{
		orders:        maps.Clone(s.orders),
		items:         cloneSlices(s.items),
		history:       cloneSlices(s.history),
		addresses:     maps.Clone(s.addresses),
		inventory:     maps.Clone(s.inventory),
		invTx:         slices.Clone(s.invTx),
		escrows:       maps.Clone(s.escrows),
		escrowByOrder: maps.Clone(s.escrowByOrder),
		escrowEvents:  slices.Clone(s.escrowEvents),
		shipments:     maps.Clone(s.shipments),
		audit:         slices.Clone(s.audit),
		outbox:        slices.Clone(s.outbox),
		compensations: cloneSlices(s.compensations),
		profiles:      maps.Clone(s.profiles),
		shops:         maps.Clone(s.shops),
	}
}

func cloneSlices[T any](in map[string][]T) map[string][]T {
	out := make(map[string][]T, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

// Store is safe for concurrent use.
type Store struct {
	txMu sync.Mutex   // held for the lifetime of a transaction
	mu   sync.RWMutex // guards st
	st   *state
}

func New() *Store {
	return &Store{st: newState()}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTx implements txn.UnitOfWork. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			s.restore(snapshot)
			panic(r)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, s))
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	s.st = snapshot
	s.mu.Unlock()
}

// write applies fn to the state. Outside a transaction it behaves like an
// autocommit statement and waits for running transactions to finish.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if !s.inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// PutProfile seeds a buyer profile.
func (s *Store) PutProfile(p lifecycle.Profile) {
	_ = s.write(context.Background(), func(st *state) error {
		st.profiles[p.UserID] = p
		return nil
	})
}

// PutShop seeds a seller shop.
func (s *Store) PutShop(shop lifecycle.Shop) {
	_ = s.write(context.Background(), func(st *state) error {
		st.shops[shop.SellerID] = shop
		return nil
	})
}

// Orders returns the order repository.
func (s *Store) Orders() orders.Repository { return orderRepo{s} }
func (s *Store) Addresses() orders.AddressRepository { return addressRepo{s} }
func (s *Store) Inventory() inventory.Repository { return inventoryRepo{s} }
func (s *Store) Escrow() escrow.Repository { return escrowRepo{s} }
func (s *Store) Shipments() shipment.Repository { return shipmentRepo{s} }
func (s *Store) Audit() audit.Repository { return auditRepo{s} }
func (s *Store) Outbox() outbox.Repository { return outboxRepo{s} }
func (s *Store) Compensations() lifecycle.CompensationRepository { return compensationRepo{s} }
func (s *Store) Profiles() lifecycle.ProfileResolver { return directory{s} }
func (s *Store) Shops() lifecycle.ShopRegistry { return directory{s} }

func notFound(err error, id string) error {
	return fmt.Errorf("%w: %s", err, id)
}
