// Package escrow keeps one custody account per order and moves it along a
// forward-only status graph, logging every change.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/txn"
)

type ManagerDeps struct {
	Repo        Repository
	UnitOfWork  txn.UnitOfWork
	FeePolicy   *FeePolicy
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *zap.Logger
}

type Manager struct {
	repo   Repository
	uow    txn.UnitOfWork
	policy FeePolicy
	clock  func() time.Time
	newID  func() string
	log    *zap.Logger
}

func NewManager(deps ManagerDeps) (*Manager, error) {
	if deps.Repo == nil {
		return nil, errors.New("escrow manager: repository is required")
	}
	policy := DefaultFeePolicy()
	if deps.FeePolicy != nil {
		if err := deps.FeePolicy.Validate(); err != nil {
			return nil, err
		}
		policy = *deps.FeePolicy
	}
	uow := deps.UnitOfWork
	if uow == nil {
		uow = txn.Noop{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		repo:   deps.Repo,
		uow:    uow,
		policy: policy,
		clock:  func() time.Time { return clock().UTC() },
		newID:  idGen,
		log:    logger,
	}, nil
}

// OpenRequest describes a new custody account. Policy overrides the
// manager's configured fee policy when set.
type OpenRequest struct {
	OrderID     string
	GrossAmount int64
	Currency    string
	ItemCount   int
	ActorID     string
	Policy      *FeePolicy
}

// Open creates the account in held and records the initial event.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (Account, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return Account{}, fmt.Errorf("%w: order id is required", ErrInvalidAmount)
	}
	if req.GrossAmount < 0 {
		return Account{}, fmt.Errorf("%w: gross amount %d is negative", ErrInvalidAmount, req.GrossAmount)
	}
	policy := m.policy
	if req.Policy != nil {
		if err := req.Policy.Validate(); err != nil {
			return Account{}, err
		}
		policy = *req.Policy
	}
	fee, net := policy.Split(req.GrossAmount, req.ItemCount)

	return txn.ExecuteWithResult(ctx, m.uow, func(ctx context.Context) (Account, error) {
		now := m.clock()
		acc := Account{
			ID:          m.newID(),
			OrderID:     req.OrderID,
			GrossAmount: req.GrossAmount,
			FeeAmount:   fee,
			Amount:      net,
			Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
			Status:      StatusHeld,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := m.repo.Insert(ctx, acc); err != nil {
			return Account{}, err
		}
		if err := m.repo.AppendEvent(ctx, Event{
			ID:        m.newID(),
			EscrowID:  acc.ID,
			Status:    StatusHeld,
			ActorID:   req.ActorID,
			Note:      "escrow opened",
			CreatedAt: now,
		}); err != nil {
			return Account{}, err
		}
		m.log.Info("escrow.opened",
			zap.String("escrow_id", acc.ID),
			zap.String("order_id", acc.OrderID),
			zap.Int64("gross_amount", acc.GrossAmount),
			zap.Int64("fee_amount", acc.FeeAmount),
		)
		return acc, nil
	})
}

// Transition moves the account to status. Edges outside the forward graph
// fail with ErrInvalidTransition.
func (m *Manager) Transition(ctx context.Context, id string, status Status, actorID, note string) (Account, error) {
	if !status.IsValid() {
		return Account{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return txn.ExecuteWithResult(ctx, m.uow, func(ctx context.Context) (Account, error) {
		acc, err := m.repo.LockByID(ctx, id)
		if err != nil {
			return Account{}, err
		}
		if !CanTransition(acc.Status, status) {
			return Account{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, acc.Status, status)
		}
		now := m.clock()
		if err := m.repo.UpdateStatus(ctx, acc.ID, status, now); err != nil {
			return Account{}, err
		}
		if err := m.repo.AppendEvent(ctx, Event{
			ID:        m.newID(),
			EscrowID:  acc.ID,
			Status:    status,
			ActorID:   actorID,
			Note:      note,
			CreatedAt: now,
		}); err != nil {
			return Account{}, err
		}
		m.log.Info("escrow.transitioned",
			zap.String("escrow_id", acc.ID),
			zap.String("from", acc.Status.String()),
			zap.String("to", status.String()),
		)
		acc.Status = status
		acc.UpdatedAt = now
		return acc, nil
	})
}

func (m *Manager) ForOrder(ctx context.Context, orderID string) (Account, error) {
	return m.repo.FindByOrderID(ctx, orderID)
}

func (m *Manager) Events(ctx context.Context, escrowID string) ([]Event, error) {
	return m.repo.ListEvents(ctx, escrowID)
}
