package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. Orders snapshot Name and Price at creation
// time, so later catalog edits never rewrite order history.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
	Active   bool
}

// Repository defines the read contract the checkout core has on the catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
