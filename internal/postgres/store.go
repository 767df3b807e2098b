package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/audit"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
	"github.com/ariefcatur/go-marketplace-orders/internal/shipment"
)

// Store exposes pgx-backed repositories sharing one TxManager.
type Store struct {
	*TxManager
}

func NewStore(pool *pgxpool.Pool, txAttempts int, logger *zap.Logger) *Store {
	return &Store{TxManager: NewTxManager(pool, txAttempts, logger)}
}

func (s *Store) Orders() orders.Repository { return orderRepo{s.TxManager} }
func (s *Store) Addresses() orders.AddressRepository { return addressRepo{s.TxManager} }
func (s *Store) Inventory() inventory.Repository { return inventoryRepo{s.TxManager} }
func (s *Store) Escrow() escrow.Repository { return escrowRepo{s.TxManager} }
func (s *Store) Shipments() shipment.Repository { return shipmentRepo{s.TxManager} }
func (s *Store) Audit() audit.Repository { return auditRepo{s.TxManager} }
func (s *Store) Outbox() outbox.Repository { return outboxRepo{s.TxManager} }
func (s *Store) Compensations() lifecycle.CompensationRepository { return compensationRepo{s.TxManager} }
func (s *Store) Profiles() lifecycle.ProfileResolver { return directory{s.TxManager} }
func (s *Store) Shops() lifecycle.ShopRegistry { return directory{s.TxManager} }
