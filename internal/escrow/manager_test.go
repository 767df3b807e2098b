package escrow_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
)

func newManager(t *testing.T, policy *escrow.FeePolicy) *escrow.Manager {
	t.Helper()
	store := memstore.New()
	n := 0
	m, err := escrow.NewManager(escrow.ManagerDeps{
		Repo:       store.Escrow(),
		UnitOfWork: store,
		FeePolicy:  policy,
		Clock:      func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) },
		IDGenerator: func() string {
			n++
			return fmt.Sprintf("esc-%d", n)
		},
	})
	require.NoError(t, err)
	return m
}

func TestOpenHoldsNetAmount(t *testing.T) {
	m := newManager(t, nil)
	acc, err := m.Open(context.Background(), escrow.OpenRequest{
		OrderID:     "ord-1",
		GrossAmount: 300,
		Currency:    "mwk",
		ItemCount:   1,
		ActorID:     "buyer-1",
	})
	require.NoError(t, err)

	assert.Equal(t, escrow.StatusHeld, acc.Status)
	assert.Equal(t, int64(300), acc.GrossAmount)
	assert.Equal(t, int64(9), acc.FeeAmount)
	assert.Equal(t, int64(291), acc.Amount)
	assert.Equal(t, "MWK", acc.Currency)

	events, err := m.Events(context.Background(), acc.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, escrow.StatusHeld, events[0].Status)
	assert.Equal(t, "buyer-1", events[0].ActorID)
}

func TestOpenUsesRequestPolicy(t *testing.T) {
	m := newManager(t, &escrow.FeePolicy{Rate: decimal.Zero})
	acc, err := m.Open(context.Background(), escrow.OpenRequest{
		OrderID:     "ord-1",
		GrossAmount: 1000,
		Currency:    "USD",
		ItemCount:   4,
		Policy:      &escrow.FeePolicy{PerItem: 25},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), acc.FeeAmount)
	assert.Equal(t, int64(900), acc.Amount)
}

func TestOpenRejectsSecondAccountForOrder(t *testing.T) {
	m := newManager(t, nil)
	ctx := context.Background()
	_, err := m.Open(ctx, escrow.OpenRequest{OrderID: "ord-1", GrossAmount: 10, Currency: "USD"})
	require.NoError(t, err)
	_, err = m.Open(ctx, escrow.OpenRequest{OrderID: "ord-1", GrossAmount: 10, Currency: "USD"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestTransitionFollowsForwardGraph(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	acc, err := m.Open(ctx, escrow.OpenRequest{OrderID: "ord-1", GrossAmount: 500, Currency: "USD"})
	require.NoError(t, err)

	acc, err = m.Transition(ctx, acc.ID, escrow.StatusPendingRelease, "seller-1", "shipped")
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusPendingRelease, acc.Status)

	_, err = m.Transition(ctx, acc.ID, escrow.StatusHeld, "seller-1", "")
	require.ErrorIs(t, err, escrow.ErrInvalidTransition)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	acc, err = m.Transition(ctx, acc.ID, escrow.StatusReleased, "buyer-1", "delivered")
	require.NoError(t, err)

	_, err = m.Transition(ctx, acc.ID, escrow.StatusRefunded, "admin", "")
	require.ErrorIs(t, err, escrow.ErrInvalidTransition)

	stored, err := m.ForOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusReleased, stored.Status)

	events, err := m.Events(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []escrow.Status{escrow.StatusHeld, escrow.StatusPendingRelease, escrow.StatusReleased},
		[]escrow.Status{events[0].Status, events[1].Status, events[2].Status})
}

func TestTransitionUnknownAccount(t *testing.T) {
	m := newManager(t, nil)
	_, err := m.Transition(context.Background(), "missing", escrow.StatusRefunded, "admin", "")
	require.ErrorIs(t, err, escrow.ErrNotFound)

	_, err = m.Transition(context.Background(), "missing", escrow.Status("lost"), "admin", "")
	require.ErrorIs(t, err, escrow.ErrInvalidStatus)
}

func TestNewManagerRejectsInvalidPolicy(t *testing.T) {
	_, err := escrow.NewManager(escrow.ManagerDeps{
		Repo:      memstore.New().Escrow(),
		FeePolicy: &escrow.FeePolicy{Rate: decimal.NewFromInt(-1)},
	})
	assert.ErrorIs(t, err, escrow.ErrInvalidFeePolicy)
}
