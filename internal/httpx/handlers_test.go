package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace-orders/internal/app"
	"github.com/ariefcatur/go-marketplace-orders/internal/httpx"
	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
)

type memCache struct {
	mu   sync.Mutex
	data map[string]redisx.CachedStatus
	hits int
}

func (c *memCache) Get(_ context.Context, orderID string) (redisx.CachedStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.data[orderID]
	if ok {
		c.hits++
	}
	return st, ok, nil
}

func (c *memCache) Set(_ context.Context, st redisx.CachedStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[st.OrderID] = st
	return nil
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memIdempotency) Claim(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[key]
	if !ok {
		m.keys[key] = "pending"
		return "", true, nil
	}
	if v == "pending" {
		return "", false, redisx.ErrIdempotencyInFlight
	}
	return v, false, nil
}

func (m *memIdempotency) Complete(_ context.Context, key, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = orderID
	return nil
}

func (m *memIdempotency) Abandon(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type fixture struct {
	router http.Handler
	comps  *app.Components
	cache  *memCache
	idem   *memIdempotency
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	store.PutShop(lifecycle.Shop{ID: "shop-1", SellerID: "seller-1", Name: "Accra Prints"})
	store.PutProfile(lifecycle.Profile{
		UserID: "buyer-1", FullName: "Kofi Mensah", Phone: "+233244000000", AddressLine1: "5 Oxford St", Locale: "en-GH",
	})
	comps, err := app.Build(store, app.Options{})
	require.NoError(t, err)
	_, err = comps.Ledger.Restock(context.Background(), "P1", 5)
	require.NoError(t, err)

	f := &fixture{
		comps: comps,
		cache: &memCache{data: map[string]redisx.CachedStatus{}},
		idem:  &memIdempotency{keys: map[string]string{}},
	}
	r := httpx.NewRouter(nil)
	(&httpx.OrdersHandler{Service: comps.Service, Cache: f.cache, Idempotency: f.idem}).Register(r)
	(&httpx.InventoryHandler{Ledger: comps.Ledger}).Register(r)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createBody(qty int) map[string]any {
	return map[string]any{
		"buyer_id":  "buyer-1",
		"seller_id": "seller-1",
		"currency":  "GHS",
		"items": []map[string]any{
			{"product_id": "P1", "sku": "SKU-P1", "unit_price": 1500, "quantity": qty},
		},
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/orders", createBody(2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[httpx.CreateOrderResp](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, int64(3000), created.TotalAmount)
	assert.Equal(t, int64(2910), created.EscrowAmount)
	assert.False(t, created.Idempotent)

	rec = f.do(t, http.MethodGet, "/orders/"+created.OrderID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[httpx.OrderViewResp](t, rec)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, "held", view.Escrow.Status)
	require.NotNil(t, view.Shipment)
	assert.Equal(t, "pending", view.Shipment.Status)

	rec = f.do(t, http.MethodPost, "/orders/"+created.OrderID+"/status", httpx.TransitionReq{ActorID: "seller-1", Status: "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tr := decode[httpx.TransitionResp](t, rec)
	assert.Equal(t, "pending", tr.OldStatus)
	assert.Equal(t, "confirmed", tr.NewStatus)

	rec = f.do(t, http.MethodGet, "/orders/"+created.OrderID+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", decode[redisx.CachedStatus](t, rec).Status)
	assert.Equal(t, 1, f.cache.hits)

	rec = f.do(t, http.MethodPost, "/orders/"+created.OrderID+"/cancel", httpx.CancelReq{ActorID: "buyer-1", Reason: "found cheaper"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tr = decode[httpx.TransitionResp](t, rec)
	assert.Equal(t, "cancelled", tr.NewStatus)
	assert.Equal(t, "refunded", tr.EscrowStatus)

	rec = f.do(t, http.MethodPost, "/orders/"+created.OrderID+"/cancel", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "order.not_cancellable", decode[map[string]any](t, rec)["error"])

	rec = f.do(t, http.MethodGet, "/inventory/P1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stock := decode[map[string]any](t, rec)
	assert.EqualValues(t, 5, stock["available"])
	assert.EqualValues(t, 0, stock["reserved"])
}

func TestNotificationsCarryRequestID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/orders", createBody(1), "X-Request-Id", "req-7f3a")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	pending, err := f.comps.Outbox.ListPending(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, pending)
	for _, msg := range pending {
		var env notify.Envelope
		require.NoError(t, json.Unmarshal(msg.Payload, &env))
		assert.Equal(t, "req-7f3a", env.TraceID)
	}
}

func TestCreateOrderErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/orders", createBody(6))
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "inventory.out_of_stock", body["error"])
	assert.EqualValues(t, http.StatusConflict, body["status"])
	assert.NotEmpty(t, body["request_id"])

	rec = f.do(t, http.MethodPost, "/orders", createBody(0))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := createBody(1)
	req["seller_id"] = "seller-unknown"
	rec = f.do(t, http.MethodPost, "/orders", req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	r := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request.invalid_json", decode[map[string]any](t, w)["error"])
}

func TestUnknownOrderAndBadTransition(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/orders", createBody(1))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[httpx.CreateOrderResp](t, rec).OrderID

	rec = f.do(t, http.MethodPost, "/orders/"+id+"/status", httpx.TransitionReq{Status: "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/orders/"+id+"/status", httpx.TransitionReq{Status: "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "order.invalid_transition", decode[map[string]any](t, rec)["error"])
}

func TestIdempotentCreateReturnsOriginalOrder(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, http.MethodPost, "/orders", createBody(2), "Idempotency-Key", "checkout-42")
	require.Equal(t, http.StatusCreated, first.Code)
	second := f.do(t, http.MethodPost, "/orders", createBody(2), "Idempotency-Key", "checkout-42")
	require.Equal(t, http.StatusCreated, second.Code)

	a := decode[httpx.CreateOrderResp](t, first)
	b := decode[httpx.CreateOrderResp](t, second)
	assert.Equal(t, a.OrderID, b.OrderID)
	assert.True(t, b.Idempotent)

	rec, err := f.comps.Ledger.Record(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Reserved)
}

func TestFailedCreateReleasesIdempotencyKey(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/orders", createBody(9), "Idempotency-Key", "retry-me")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/orders", createBody(1), "Idempotency-Key", "retry-me")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, decode[httpx.CreateOrderResp](t, rec).Idempotent)
}

func TestRestockAndTransactions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/inventory/P9/restock", httpx.RestockReq{Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/inventory/P9/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decode[[]map[string]any](t, rec)
	require.Len(t, txs, 1)
	assert.Equal(t, "restock", txs[0]["reason"])

	rec = f.do(t, http.MethodPost, "/inventory/P9/restock", httpx.RestockReq{Quantity: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/inventory/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
