package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ayurkart/checkout/internal/domain/order"
	"github.com/ayurkart/checkout/internal/domain/stock"
)

// --- Request DTOs ---

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type shippingAddressRequest struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

type createOrderRequest struct {
	CustomerEmail   string                 `json:"customer_email"`
	Items           []orderItemRequest     `json:"items"`
	ShippingAddress shippingAddressRequest `json:"shipping_address"`
	CouponCode      string                 `json:"coupon_code"`
	Notes           string                 `json:"notes"`
}

type confirmPaymentRequest struct {
	IntentID  string `json:"payment_intent_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

// --- Response DTOs ---

type orderItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type orderResponse struct {
	ID              string                 `json:"id"`
	CustomerEmail   string                 `json:"customer_email"`
	Items           []orderItemResponse    `json:"items"`
	ShippingAddress shippingAddressRequest `json:"shipping_address"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	DiscountAmount  decimal.Decimal        `json:"discount_amount"`
	ShippingCost    decimal.Decimal        `json:"shipping_cost"`
	TaxAmount       decimal.Decimal        `json:"tax_amount"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	CouponCode      string                 `json:"coupon_code,omitempty"`
	PaymentIntentID string                 `json:"payment_intent_id,omitempty"`
	PaymentStatus   string                 `json:"payment_status"`
	Status          string                 `json:"status"`
	TrackingNumber  string                 `json:"tracking_number,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	ConfirmedAt     *time.Time             `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time             `json:"delivered_at,omitempty"`
}

// CreateOrder handles the online-payment checkout.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.orders.CreateOrder(r.Context(), toDomainRequest(req))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order))
}

// CreateCODOrder handles the cash-on-delivery checkout.
func (h *Handler) CreateCODOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.orders.CreateCODOrder(r.Context(), toDomainRequest(req))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order))
}

// ConfirmPayment handles the gateway's payment confirmation callback.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.ConfirmPayment(r.Context(), order.ConfirmPaymentRequest{
		IntentID:  req.IntentID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// GetOrder returns a single order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListOrders returns a customer's orders, newest first. Operator-only.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter required")
		return
	}

	orders, err := h.orders.ListOrdersByEmail(r.Context(), email)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateOrderStatus applies an administrative status transition. Operator-only.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"),
		order.Status(req.Status), req.TrackingNumber)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// writeOrderError maps domain errors to HTTP responses. Stock conflicts carry
// per-item detail so the caller can fix the cart in one round trip; payment
// verification failures stay deliberately generic.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		quantityErr   *order.InvalidQuantityError
		transitionErr *order.InvalidTransitionError
		stockErr      *stock.InsufficientStockError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &quantityErr):
		writeError(w, http.StatusBadRequest, quantityErr.Error())
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, errorResponse{
			Code:    http.StatusConflict,
			Message: "insufficient stock",
			Details: stockErr.Shortages,
		})
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrPaymentVerificationFailed):
		writeError(w, http.StatusBadRequest, "payment verification failed")
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusUnprocessableEntity, transitionErr.Error())
	default:
		writeInternalError(w, r, err)
	}
}

func toDomainRequest(req createOrderRequest) order.CreateOrderRequest {
	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return order.CreateOrderRequest{
		CustomerEmail: req.CustomerEmail,
		Items:         items,
		ShippingAddress: order.ShippingAddress{
			FullName:     req.ShippingAddress.FullName,
			Phone:        req.ShippingAddress.Phone,
			AddressLine1: req.ShippingAddress.AddressLine1,
			AddressLine2: req.ShippingAddress.AddressLine2,
			City:         req.ShippingAddress.City,
			State:        req.ShippingAddress.State,
			PostalCode:   req.ShippingAddress.PostalCode,
			Country:      req.ShippingAddress.Country,
		},
		CouponCode: req.CouponCode,
		Notes:      req.Notes,
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}
	return orderResponse{
		ID:            o.ID,
		CustomerEmail: o.CustomerEmail,
		Items:         items,
		ShippingAddress: shippingAddressRequest{
			FullName:     o.ShippingAddress.FullName,
			Phone:        o.ShippingAddress.Phone,
			AddressLine1: o.ShippingAddress.AddressLine1,
			AddressLine2: o.ShippingAddress.AddressLine2,
			City:         o.ShippingAddress.City,
			State:        o.ShippingAddress.State,
			PostalCode:   o.ShippingAddress.PostalCode,
			Country:      o.ShippingAddress.Country,
		},
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		ShippingCost:    o.ShippingCost,
		TaxAmount:       o.TaxAmount,
		TotalAmount:     o.TotalAmount,
		CouponCode:      o.CouponCode,
		PaymentIntentID: o.PaymentIntentID,
		PaymentStatus:   string(o.PaymentStatus),
		Status:          string(o.Status),
		TrackingNumber:  o.TrackingNumber,
		CreatedAt:       o.CreatedAt,
		ConfirmedAt:     o.ConfirmedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
	}
}
