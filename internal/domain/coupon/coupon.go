// Package coupon owns coupon validity rules and usage accounting.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage discounts a percentage of the order amount.
	TypePercentage Type = "percentage"
	// TypeFixedAmount discounts a fixed monetary value.
	TypeFixedAmount Type = "fixed_amount"
)

// Validation failures, in the exact order checks run. The first applicable
// reason is the one reported.
var (
	ErrNotFound          = errors.New("coupon not found")
	ErrInactive          = errors.New("coupon is not active")
	ErrExpired           = errors.New("coupon has expired")
	ErrBelowMinimum      = errors.New("order amount below coupon minimum")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Rule is a coupon's discount behaviour and eligibility constraints.
// Codes are stored upper-cased; lookups normalize before matching.
type Rule struct {
	Code               string
	Description        string
	Type               Type
	Value              decimal.Decimal
	MinimumOrderAmount decimal.Decimal
	// MaxDiscountAmount caps the computed discount when set (nil = no cap).
	MaxDiscountAmount *decimal.Decimal
	// UsageLimit bounds total redemptions when > 0.
	UsageLimit int
	UsageCount int
	Active     bool
	ExpiresAt  time.Time
}

// Repository provides lookup and usage mutation of coupon rules.
// IncrementUsage must be atomic: concurrent confirmations of two orders
// carrying the same code both count.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUsage(ctx context.Context, code string) error
}
