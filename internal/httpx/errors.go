package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/observability"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
)

// Error is the JSON error envelope returned by the API.
type Error struct {
	Code    string
	Message string
	Status  int
}

func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: sanitize(code, 80), Message: sanitize(message, 512), Status: status}
}

// FromError maps a typed error onto its HTTP status. Internal failures are
// logged and reported without their cause.
func FromError(ctx context.Context, err error) Error {
	if errors.Is(err, redisx.ErrIdempotencyInFlight) {
		return NewError("order.idempotency_in_flight", err.Error(), http.StatusConflict)
	}
	code := apperr.CodeOf(err)
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return NewError(code, err.Error(), http.StatusBadRequest)
	case apperr.KindNotFound:
		return NewError(code, err.Error(), http.StatusNotFound)
	case apperr.KindConflict:
		return NewError(code, err.Error(), http.StatusConflict)
	}
	observability.FromContext(ctx).Error("http.internal_error", zap.Error(err))
	return NewError("internal", "internal server error", http.StatusInternalServerError)
}

func WriteError(ctx context.Context, w http.ResponseWriter, e Error) {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	payload := map[string]any{
		"error":   e.Code,
		"message": e.Message,
		"status":  status,
	}
	if id := sanitize(middleware.GetReqID(ctx), 80); id != "" {
		payload["request_id"] = id
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func sanitize(value string, limit int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
