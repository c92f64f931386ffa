// Package order holds the order model and the orchestration service that
// spans stock, pricing, coupons, payments, and persistence.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no order matches the given identifier.
var ErrNotFound = errors.New("order not found")

// Item is one line of an order. Name and price are snapshotted from the
// catalog at creation time and never re-read afterwards.
type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ShippingAddress is where the order ships to.
type ShippingAddress struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// Order is the persisted order record. Monetary fields satisfy
// TotalAmount = Subtotal - DiscountAmount + ShippingCost + TaxAmount,
// all rounded to 2 decimal places. Orders are never deleted; cancellation
// and refund are status transitions.
type Order struct {
	ID              string
	CustomerEmail   string
	Items           []Item
	ShippingAddress ShippingAddress

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingCost   decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal

	CouponCode      string
	PaymentIntentID string
	PaymentID       string
	PaymentStatus   PaymentStatus
	Status          Status

	TrackingNumber string
	Notes          string
	// NeedsReview marks orders whose payment was confirmed but whose stock
	// decrement failed; they await manual reconciliation.
	NeedsReview bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ConfirmedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// StatusUpdate carries an administrative status change to the store.
// Nil pointer fields are left untouched.
type StatusUpdate struct {
	Status         Status
	PaymentStatus  *PaymentStatus
	TrackingNumber string
	ConfirmedAt    *time.Time
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
}

// Repository defines persistence for orders and the processed-payment marker.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetByIntentID locates an order by its gateway intent id, the
	// correlation used when a payment confirmation callback arrives.
	GetByIntentID(ctx context.Context, intentID string) (*Order, error)
	ListByEmail(ctx context.Context, email string) ([]Order, error)
	SetPaymentIntent(ctx context.Context, orderID, intentID string) error
	// ConfirmPayment transitions the order to confirmed, records the gateway
	// payment id and confirmation time, and inserts the processed-payment
	// marker — all in one transaction. It returns false when the
	// (intentID, paymentID) pair was already processed, in which case
	// nothing is mutated.
	ConfirmPayment(ctx context.Context, orderID, intentID, paymentID string, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, orderID string, upd StatusUpdate) error
	// FlagForReview marks the order for manual reconciliation.
	FlagForReview(ctx context.Context, orderID string) error
}
