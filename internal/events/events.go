// Package events publishes order lifecycle events for downstream consumers
// (email, analytics). Publishing is best-effort: a broker outage must never
// fail a checkout.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event types emitted by the order service.
const (
	OrderCreated   = "order.created"
	OrderConfirmed = "order.confirmed"
	OrderUpdated   = "order.status_updated"
)

// OrderEvent is the payload published for every order transition.
type OrderEvent struct {
	Type          string          `json:"type"`
	OrderID       string          `json:"order_id"`
	CustomerEmail string          `json:"customer_email"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Publisher emits order events.
type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// Nop discards all events. Used when no brokers are configured and in tests.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
