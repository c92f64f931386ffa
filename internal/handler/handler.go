// Package handler exposes the checkout core over HTTP. Requests are decoded
// into typed DTOs and validated once here; domain errors are mapped to typed
// JSON error bodies without leaking internals.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ayurkart/checkout/internal/domain/order"
)

// Handler wires the order service to HTTP routes.
type Handler struct {
	orders   *order.Service
	security *SecurityHandler
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(orders *order.Service, security *SecurityHandler) *Handler {
	return &Handler{
		orders:   orders,
		security: security,
	}
}

// Routes returns the API router. Operator endpoints (order listing, status
// updates) sit behind API-key authentication; customer checkout and the
// gateway callback do not.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/orders", h.CreateOrder)
	r.Post("/orders/cod", h.CreateCODOrder)
	r.Post("/payments/confirm", h.ConfirmPayment)
	r.Get("/orders/{orderID}", h.GetOrder)

	r.Group(func(r chi.Router) {
		r.Use(h.security.RequireAPIKey)
		r.Get("/orders", h.ListOrders)
		r.Patch("/orders/{orderID}/status", h.UpdateOrderStatus)
	})

	return r
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Details carries structured per-item context, e.g. stock shortages.
	Details any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeInternalError logs the cause with full context and answers with an
// opaque failure: stack traces and credentials stay on the server.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
