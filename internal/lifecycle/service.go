// Package lifecycle creates orders and drives order, inventory, escrow and
// shipment through their coupled state machine. Every public operation runs
// in exactly one unit of work.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/shipment"
	"github.com/ariefcatur/go-marketplace-orders/internal/txn"
)

const tracerName = "github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"

// Deps bundles the collaborators required to construct a Service.
type Deps struct {
	Orders        orders.Repository
	Addresses     orders.AddressRepository
	Compensations CompensationRepository
	Shipments     shipment.Repository
	Ledger        InventoryLedger
	Escrow        EscrowCustody
	Audit         AuditWriter
	Profiles      ProfileResolver
	Shops         ShopRegistry
	Notifications NotificationDispatcher
	UnitOfWork    txn.UnitOfWork
	Messages      MessageCatalog
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        *zap.Logger
	Tracer        trace.Tracer
}

type Service struct {
	orders        orders.Repository
	addresses     orders.AddressRepository
	compensations CompensationRepository
	shipments     shipment.Repository
	ledger        InventoryLedger
	escrow        EscrowCustody
	audit         AuditWriter
	profiles      ProfileResolver
	shops         ShopRegistry
	notifications NotificationDispatcher
	uow           txn.UnitOfWork
	messages      MessageCatalog
	clock         func() time.Time
	newID         func() string
	log           *zap.Logger
	tracer        trace.Tracer
}

func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Orders == nil:
		return nil, errors.New("lifecycle: order repository is required")
	case deps.Addresses == nil:
		return nil, errors.New("lifecycle: address repository is required")
	case deps.Compensations == nil:
		return nil, errors.New("lifecycle: compensation repository is required")
	case deps.Shipments == nil:
		return nil, errors.New("lifecycle: shipment repository is required")
	case deps.Ledger == nil:
		return nil, errors.New("lifecycle: inventory ledger is required")
	case deps.Escrow == nil:
		return nil, errors.New("lifecycle: escrow manager is required")
	case deps.Audit == nil:
		return nil, errors.New("lifecycle: audit writer is required")
	case deps.Profiles == nil:
		return nil, errors.New("lifecycle: profile resolver is required")
	case deps.Shops == nil:
		return nil, errors.New("lifecycle: shop registry is required")
	case deps.Notifications == nil:
		return nil, errors.New("lifecycle: notification dispatcher is required")
	case deps.UnitOfWork == nil:
		return nil, errors.New("lifecycle: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	messages := deps.Messages
	if messages == nil {
		messages = DefaultMessages
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Service{
		orders:        deps.Orders,
		addresses:     deps.Addresses,
		compensations: deps.Compensations,
		shipments:     deps.Shipments,
		ledger:        deps.Ledger,
		escrow:        deps.Escrow,
		audit:         deps.Audit,
		profiles:      deps.Profiles,
		shops:         deps.Shops,
		notifications: deps.Notifications,
		uow:           deps.UnitOfWork,
		messages:      messages,
		clock:         clock,
		newID:         idGen,
		log:           logger,
		tracer:        tracer,
	}, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
