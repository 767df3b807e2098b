package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
)

// InventoryLedger is satisfied by *inventory.Ledger.
type InventoryLedger interface {
	Restock(ctx context.Context, productID string, qty int) (inventory.Record, error)
	Record(ctx context.Context, productID string) (inventory.Record, error)
	Transactions(ctx context.Context, productID string) ([]inventory.Transaction, error)
}

// InventoryHandler exposes stock levels and the transaction log.
type InventoryHandler struct {
	Ledger  InventoryLedger
	Timeout time.Duration
}

type RestockReq struct {
	Quantity int `json:"quantity"`
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Get("/inventory/{product_id}", h.get)
	r.Get("/inventory/{product_id}/transactions", h.transactions)
	r.Post("/inventory/{product_id}/restock", h.restock)
}

func (h *InventoryHandler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}

func (h *InventoryHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rec, err := h.Ledger.Record(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		WriteError(ctx, w, FromError(ctx, err))
		return
	}
	writeJSON(w, http.StatusOK, newInventoryResp(rec))
}

func (h *InventoryHandler) transactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	txs, err := h.Ledger.Transactions(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		WriteError(ctx, w, FromError(ctx, err))
		return
	}
	out := make([]inventoryTxResp, 0, len(txs))
	for _, tx := range txs {
		out = append(out, inventoryTxResp{
			ID:          tx.ID,
			Delta:       tx.Delta,
			Reason:      string(tx.Reason),
			RelatedType: tx.RelatedType,
			RelatedID:   tx.RelatedID,
			CreatedAt:   tx.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InventoryHandler) restock(w http.ResponseWriter, r *http.Request) {
	var req RestockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(r.Context(), w, NewError("request.invalid_json", "invalid json", http.StatusBadRequest))
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rec, err := h.Ledger.Restock(ctx, chi.URLParam(r, "product_id"), req.Quantity)
	if err != nil {
		WriteError(ctx, w, FromError(ctx, err))
		return
	}
	writeJSON(w, http.StatusOK, newInventoryResp(rec))
}
