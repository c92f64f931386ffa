// Package stock defines the ledger owning per-product available quantity.
package stock

import (
	"context"
	"fmt"
	"strings"
)

// Item is a (product, quantity) pair passed to ledger operations.
type Item struct {
	ProductID string
	Quantity  int
}

// ShortageReason classifies why a single item could not be satisfied.
type ShortageReason string

const (
	ReasonNotFound     ShortageReason = "not_found"
	ReasonInactive     ShortageReason = "inactive"
	ReasonInsufficient ShortageReason = "insufficient_quantity"
)

// Shortage describes one unsatisfiable line item. Available and Requested are
// only meaningful for ReasonInsufficient.
type Shortage struct {
	ProductID string         `json:"product_id"`
	Reason    ShortageReason `json:"reason"`
	Available int            `json:"available,omitempty"`
	Requested int            `json:"requested,omitempty"`
}

func (s Shortage) String() string {
	switch s.Reason {
	case ReasonInsufficient:
		return fmt.Sprintf("product %s: short by %d (available %d, requested %d)",
			s.ProductID, s.Requested-s.Available, s.Available, s.Requested)
	case ReasonInactive:
		return fmt.Sprintf("product %s: not active", s.ProductID)
	default:
		return fmt.Sprintf("product %s: not found", s.ProductID)
	}
}

// InsufficientStockError reports every failing item of a check or decrement,
// so the caller sees the complete picture in one round trip.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		parts[i] = s.String()
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// Ledger owns authoritative available quantities.
//
// CheckAvailability is advisory: it takes no locks and reserves nothing, so
// stock can still vanish before a later Decrement. Decrement re-validates
// inside a single transaction and applies all items or none.
type Ledger interface {
	CheckAvailability(ctx context.Context, items []Item) error
	Decrement(ctx context.Context, items []Item) error
	// Restock adds quantities back, compensating a decrement whose
	// surrounding operation failed afterwards.
	Restock(ctx context.Context, items []Item) error
}
