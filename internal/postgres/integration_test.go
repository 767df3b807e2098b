package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace-orders/internal/app"
	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
)

func openStore(t *testing.T) (*postgres.Store, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, dsn, 8)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE outbox, audit_logs, shipments, escrow_events, escrow_accounts,
		inventory_transactions, inventory, order_compensations, order_status_history, order_items,
		orders, addresses, shops, users`)
	require.NoError(t, err)
	return postgres.NewStore(pool, 3, nil), pool
}

func TestOrderLifecycleRoundTrip(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutShop(ctx, lifecycle.Shop{ID: "shop-1", SellerID: "seller-1", Name: "Kigali Weaves"}))
	require.NoError(t, store.PutProfile(ctx, lifecycle.Profile{
		UserID: "buyer-1", FullName: "Aline Uwase", Phone: "+250788000000", AddressLine1: "KG 11 Ave", Locale: "rw-RW",
	}))

	c, err := app.Build(store, app.Options{})
	require.NoError(t, err)
	_, err = c.Ledger.Restock(ctx, "P1", 5)
	require.NoError(t, err)

	res, err := c.Service.CreateOrder(ctx, lifecycle.CreateOrderCommand{
		BuyerID:  "buyer-1",
		SellerID: "seller-1",
		Currency: "rwf",
		Items:    []orders.ItemInput{{ProductID: "P1", SKU: "SKU-1", UnitPrice: 2500, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "RWF", res.Currency)

	rec, err := c.Ledger.Record(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Quantity)
	assert.Equal(t, 2, rec.Reserved)

	out, err := c.Service.CancelOrder(ctx, lifecycle.CancelCommand{OrderID: res.OrderID, ActorID: "buyer-1", Reason: "changed mind"})
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusRefunded, out.EscrowStatus)

	rec, err = c.Ledger.Record(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)
	assert.Zero(t, rec.Reserved)

	view, err := c.Service.GetOrder(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, view.Order.Status)
	assert.Len(t, view.History, 2)
	require.NotNil(t, view.Shipment)

	entries, err := store.Audit().ListByTarget(ctx, "/orders/"+res.OrderID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "pending", entries[1].Diff["status"].Before)

	pending, err := store.Outbox().ListPending(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, pending, 5)

	require.NoError(t, store.Outbox().Park(ctx, pending[0].ID, "message too large", time.Now()))
	pending, err = store.Outbox().ListPending(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, pending, 4)
}

func TestConcurrentReservationsDoNotOversell(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	ledger, err := inventory.NewLedger(inventory.LedgerDeps{Repo: store.Inventory(), UnitOfWork: store})
	require.NoError(t, err)
	_, err = ledger.Restock(ctx, "P1", 5)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reserve(ctx, "P1", 4, inventory.OrderRef("o"))
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			failed++
			assert.ErrorIs(t, err, inventory.ErrOutOfStock)
		}
	}
	assert.Equal(t, 1, failed)

	rec, err := ledger.Record(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Quantity)
	assert.Equal(t, 4, rec.Reserved)
}

func TestMissingRowsMapToNotFound(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	_, err := store.Orders().FindByID(ctx, "nope")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = store.Profiles().GetBuyerProfile(ctx, "nobody")
	assert.ErrorIs(t, err, lifecycle.ErrProfileNotFound)
}
