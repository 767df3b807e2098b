package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
	"github.com/ariefcatur/go-marketplace-orders/internal/observability"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
)

const headerIdempotencyKey = "Idempotency-Key"

// OrderService is satisfied by *lifecycle.Service.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd lifecycle.CreateOrderCommand) (lifecycle.CreateOrderResult, error)
	GetOrder(ctx context.Context, orderID string) (lifecycle.OrderView, error)
	TransitionStatus(ctx context.Context, cmd lifecycle.TransitionCommand) (lifecycle.TransitionResult, error)
	CancelOrder(ctx context.Context, cmd lifecycle.CancelCommand) (lifecycle.TransitionResult, error)
}

// StatusCache is satisfied by *redisx.StatusCache.
type StatusCache interface {
	Get(ctx context.Context, orderID string) (redisx.CachedStatus, bool, error)
	Set(ctx context.Context, st redisx.CachedStatus) error
}

// IdempotencyStore is satisfied by *redisx.Idempotency.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (orderID string, claimed bool, err error)
	Complete(ctx context.Context, key, orderID string) error
	Abandon(ctx context.Context, key string) error
}

// OrdersHandler serves the order routes. Cache and Idempotency are optional;
// Redis failures degrade to the uncached path.
type OrdersHandler struct {
	Service     OrderService
	Cache       StatusCache
	Idempotency IdempotencyStore
	Timeout     time.Duration
}

type itemReq struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal *int64 `json:"line_total,omitempty"`
	TaxAmount *int64 `json:"tax_amount,omitempty"`
}

type CreateOrderReq struct {
	BuyerID           string    `json:"buyer_id"`
	SellerID          string    `json:"seller_id"`
	ShippingAddressID string    `json:"shipping_address_id"`
	BillingAddressID  string    `json:"billing_address_id"`
	Currency          string    `json:"currency"`
	TotalAmount       *int64    `json:"total_amount,omitempty"`
	Items             []itemReq `json:"items"`
}

type CreateOrderResp struct {
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	TotalAmount  int64  `json:"total_amount"`
	Currency     string `json:"currency"`
	EscrowID     string `json:"escrow_id,omitempty"`
	EscrowAmount int64  `json:"escrow_amount,omitempty"`
	Idempotent   bool   `json:"idempotent"`
}

type TransitionReq struct {
	ActorID string `json:"actor_id"`
	Status  string `json:"status"`
	Note    string `json:"note"`
}

type CancelReq struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

type TransitionResp struct {
	OrderID      string `json:"order_id"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
	EscrowStatus string `json:"escrow_status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Post("/orders/{id}/status", h.transition)
	r.Post("/orders/{id}/cancel", h.cancel)
}

func (h *OrdersHandler) timeout() time.Duration {
	if h.Timeout > 0 {
		return h.Timeout
	}
	return 5 * time.Second
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(r.Context(), w, NewError("request.invalid_json", "invalid json", http.StatusBadRequest))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()
	log := observability.FromContext(ctx)

	idemKey := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if idemKey != "" && h.Idempotency != nil {
		orderID, claimed, err := h.Idempotency.Claim(ctx, idemKey)
		switch {
		case errors.Is(err, redisx.ErrIdempotencyInFlight):
			WriteError(ctx, w, FromError(ctx, err))
			return
		case err != nil:
			log.Warn("order.idempotency.claim_failed", zap.Error(err))
			idemKey = ""
		case !claimed:
			h.replayCreate(ctx, w, orderID)
			return
		}
	}

	res, err := h.Service.CreateOrder(ctx, req.command())
	if err != nil {
		if idemKey != "" {
			if aerr := h.Idempotency.Abandon(ctx, idemKey); aerr != nil {
				log.Warn("order.idempotency.abandon_failed", zap.Error(aerr))
			}
		}
		WriteError(ctx, w, FromError(ctx, err))
		return
	}
	if idemKey != "" {
		if cerr := h.Idempotency.Complete(ctx, idemKey, res.OrderID); cerr != nil {
			log.Warn("order.idempotency.complete_failed", zap.Error(cerr))
		}
	}
	h.cacheStatus(ctx, res.OrderID, res.Status, res.PlacedAt)

	writeJSON(w, http.StatusCreated, CreateOrderResp{
		OrderID:      res.OrderID,
		Status:       res.Status.String(),
		TotalAmount:  res.TotalAmount,
		Currency:     res.Currency,
		EscrowID:     res.EscrowID,
		EscrowAmount: res.EscrowAmount,
	})
}

// replayCreate answers a repeated Idempotency-Key with the original order.
func (h *OrdersHandler) replayCreate(ctx context.Context, w http.ResponseWriter, orderID string) {
	view, err := h.Service.GetOrder(ctx, orderID)
	if err != nil {
		WriteError(ctx, w, FromError(ctx, err))
		return
	}
	writeJSON(w, http.StatusCreated, CreateOrderResp{
		OrderID:      view.Order.ID,
		Status:       view.Order.Status.String(),
		TotalAmount:  view.Order.TotalAmount,
		Currency:     view.Order.Currency,
		EscrowID:     view.Escrow.ID,
		EscrowAmount: view.Escrow.Amount,
		Idempotent:   true,
	})
}

func (req CreateOrderReq) command() lifecycle.CreateOrderCommand {
	items := make([]orders.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orders.ItemInput{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
			TaxAmount: it.TaxAmount,
		})
	}
	return lifecycle.CreateOrderCommand{
		BuyerID:           req.BuyerID,
		SellerID:          req.SellerID,
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		Currency:          req.Currency,
		TotalAmount:       req.TotalAmount,
		Items:             items,
	}
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()

	view, err := h.Service.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		WriteError(ctx, w, FromError(ctx, err))
		return
	}
	writeJSON(w, http.StatusOK, newOrderViewResp(view))
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()

	if h.Cache != nil {
		st, ok, err := h.Cache.Get(ctx, orderID)
		if err != nil {
			observability.FromContext(ctx).Warn("order.status_cache.get_failed", zap.Error(err))
		}
		if ok {
			writeJSON(w, http.StatusOK, st)
			return
		}
	}

	view, err := h.Service.GetOrder(ctx, orderID)
	if err != nil {
		WriteError(ctx, w, FromError(ctx, err))
		return
	}
	st := h.cacheStatus(ctx, view.Order.ID, view.Order.Status, view.Order.UpdatedAt)
	writeJSON(w, http.StatusOK, st)
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(r.Context(), w, NewError("request.invalid_json", "invalid json", http.StatusBadRequest))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()

	res, err := h.Service.TransitionStatus(ctx, lifecycle.TransitionCommand{
		OrderID: chi.URLParam(r, "id"),
		ActorID: req.ActorID,
		Status:  req.Status,
		Note:    req.Note,
	})
	h.writeTransition(ctx, w, res, err)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(r.Context(), w, NewError("request.invalid_json", "invalid json", http.StatusBadRequest))
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()

	res, err := h.Service.CancelOrder(ctx, lifecycle.CancelCommand{
		OrderID: chi.URLParam(r, "id"),
		ActorID: req.ActorID,
		Reason:  req.Reason,
	})
	h.writeTransition(ctx, w, res, err)
}

func (h *OrdersHandler) writeTransition(ctx context.Context, w http.ResponseWriter, res lifecycle.TransitionResult, err error) {
	if err != nil {
		WriteError(ctx, w, FromError(ctx, err))
		return
	}
	h.cacheStatus(ctx, res.OrderID, res.NewStatus, time.Now())
	writeJSON(w, http.StatusOK, TransitionResp{
		OrderID:      res.OrderID,
		OldStatus:    res.OldStatus.String(),
		NewStatus:    res.NewStatus.String(),
		EscrowStatus: string(res.EscrowStatus),
	})
}

// cacheStatus overwrites the cached status. A failed write is logged only.
func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID string, status orders.Status, at time.Time) redisx.CachedStatus {
	st := redisx.CachedStatus{OrderID: orderID, Status: status.String(), UpdatedAt: at.UTC()}
	if h.Cache == nil {
		return st
	}
	if err := h.Cache.Set(ctx, st); err != nil {
		observability.FromContext(ctx).Warn("order.status_cache.set_failed", zap.String("order_id", orderID), zap.Error(err))
	}
	return st
}
