// Package app assembles the order lifecycle from a store backend.
package app

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/audit"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
	"github.com/ariefcatur/go-marketplace-orders/internal/shipment"
	"github.com/ariefcatur/go-marketplace-orders/internal/txn"
)

// Stores is satisfied by *postgres.Store and *memstore.Store.
type Stores interface {
	txn.UnitOfWork
	Orders() orders.Repository
	Addresses() orders.AddressRepository
	Inventory() inventory.Repository
	Escrow() escrow.Repository
	Shipments() shipment.Repository
	Audit() audit.Repository
	Outbox() outbox.Repository
	Compensations() lifecycle.CompensationRepository
	Profiles() lifecycle.ProfileResolver
	Shops() lifecycle.ShopRegistry
}

type Options struct {
	NotificationsTopic string
	Producer           string
	FeePolicy          *escrow.FeePolicy
	Clock              func() time.Time
	Logger             *zap.Logger
	Tracer             trace.Tracer
}

// Components is the assembled domain layer.
type Components struct {
	Service *lifecycle.Service
	Ledger  *inventory.Ledger
	Escrow  *escrow.Manager
	Outbox  outbox.Repository
	UoW     txn.UnitOfWork
}

func Build(stores Stores, opts Options) (*Components, error) {
	if stores == nil {
		return nil, errors.New("app: stores are required")
	}
	if opts.NotificationsTopic == "" {
		opts.NotificationsTopic = "marketplace.notifications"
	}
	if opts.Producer == "" {
		opts.Producer = "order-api"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ledger, err := inventory.NewLedger(inventory.LedgerDeps{
		Repo:       stores.Inventory(),
		UnitOfWork: stores,
		Clock:      opts.Clock,
		Logger:     opts.Logger.Named("inventory"),
	})
	if err != nil {
		return nil, err
	}
	custody, err := escrow.NewManager(escrow.ManagerDeps{
		Repo:       stores.Escrow(),
		UnitOfWork: stores,
		FeePolicy:  opts.FeePolicy,
		Clock:      opts.Clock,
		Logger:     opts.Logger.Named("escrow"),
	})
	if err != nil {
		return nil, err
	}
	auditWriter, err := audit.NewWriter(stores.Audit(), opts.Clock)
	if err != nil {
		return nil, err
	}
	outboxWriter, err := outbox.NewWriter(stores.Outbox(), opts.Clock)
	if err != nil {
		return nil, err
	}
	dispatcher, err := notify.NewOutboxDispatcher(outboxWriter, opts.NotificationsTopic, opts.Producer)
	if err != nil {
		return nil, err
	}

	svc, err := lifecycle.NewService(lifecycle.Deps{
		Orders:        stores.Orders(),
		Addresses:     stores.Addresses(),
		Compensations: stores.Compensations(),
		Shipments:     stores.Shipments(),
		Ledger:        ledger,
		Escrow:        custody,
		Audit:         auditWriter,
		Profiles:      stores.Profiles(),
		Shops:         stores.Shops(),
		Notifications: dispatcher,
		UnitOfWork:    stores,
		Clock:         opts.Clock,
		Logger:        opts.Logger.Named("lifecycle"),
		Tracer:        opts.Tracer,
	})
	if err != nil {
		return nil, err
	}
	return &Components{Service: svc, Ledger: ledger, Escrow: custody, Outbox: stores.Outbox(), UoW: stores}, nil
}
