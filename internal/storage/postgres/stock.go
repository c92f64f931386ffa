package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayurkart/checkout/internal/domain/stock"
)

var _ stock.Ledger = (*StockLedger)(nil)

// StockLedger implements stock.Ledger on the products table.
type StockLedger struct {
	pool *pgxpool.Pool
}

// NewStockLedger returns a StockLedger that uses the given pool.
func NewStockLedger(pool *pgxpool.Pool) *StockLedger {
	return &StockLedger{pool: pool}
}

type stockRow struct {
	quantity int
	active   bool
}

// CheckAvailability verifies every item can be satisfied right now. It takes
// no locks and reserves nothing; the result is advisory. All failing items
// are reported together.
func (l *StockLedger) CheckAvailability(ctx context.Context, items []stock.Item) error {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	rows, err := l.pool.Query(ctx, `SELECT id, quantity, active FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return errors.Wrap(err, "query stock")
	}
	defer rows.Close()

	found := make(map[string]stockRow, len(items))
	for rows.Next() {
		var (
			id string
			sr stockRow
		)
		if err := rows.Scan(&id, &sr.quantity, &sr.active); err != nil {
			return errors.Wrap(err, "scan stock row")
		}
		found[id] = sr
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate stock rows")
	}

	var shortages []stock.Shortage
	for _, item := range items {
		shortages = appendShortage(shortages, item, found)
	}
	if len(shortages) > 0 {
		return &stock.InsufficientStockError{Shortages: shortages}
	}

	return nil
}

// Decrement applies all item decrements as one transaction. Each update
// re-validates availability with a conditional WHERE clause, so a concurrent
// checkout that drained the stock causes a clean rollback — the earlier
// advisory check is never trusted. Either every quantity is reduced or none.
func (l *StockLedger) Decrement(ctx context.Context, items []stock.Item) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var shortages []stock.Shortage
	for _, item := range items {
		tag, err := tx.Exec(ctx,
			`UPDATE products
			 SET quantity = quantity - $2, updated_at = now()
			 WHERE id = $1 AND active AND quantity >= $2`,
			item.ProductID, item.Quantity,
		)
		if err != nil {
			return errors.Wrapf(err, "decrement product %q", item.ProductID)
		}
		if tag.RowsAffected() == 0 {
			s, err := l.classify(ctx, tx, item)
			if err != nil {
				return err
			}
			shortages = append(shortages, s)
		}
	}

	if len(shortages) > 0 {
		// Rollback via the deferred call; nothing is applied.
		return &stock.InsufficientStockError{Shortages: shortages}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit decrement")
	}

	return nil
}

// Restock adds quantities back after a failed follow-up operation. It does
// not require the product to be active: returned units belong to the shelf
// even when the listing was pulled meanwhile.
func (l *StockLedger) Restock(ctx context.Context, items []stock.Item) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, item := range items {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET quantity = quantity + $2, updated_at = now() WHERE id = $1`,
			item.ProductID, item.Quantity,
		); err != nil {
			return errors.Wrapf(err, "restock product %q", item.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit restock")
	}

	return nil
}

// classify turns a failed conditional decrement into a precise shortage.
func (l *StockLedger) classify(ctx context.Context, tx pgx.Tx, item stock.Item) (stock.Shortage, error) {
	var sr stockRow
	err := tx.QueryRow(ctx,
		`SELECT quantity, active FROM products WHERE id = $1`, item.ProductID,
	).Scan(&sr.quantity, &sr.active)
	if errors.Is(err, pgx.ErrNoRows) {
		return stock.Shortage{ProductID: item.ProductID, Reason: stock.ReasonNotFound}, nil
	}
	if err != nil {
		return stock.Shortage{}, errors.Wrapf(err, "inspect product %q", item.ProductID)
	}

	if !sr.active {
		return stock.Shortage{ProductID: item.ProductID, Reason: stock.ReasonInactive}, nil
	}
	return stock.Shortage{
		ProductID: item.ProductID,
		Reason:    stock.ReasonInsufficient,
		Available: sr.quantity,
		Requested: item.Quantity,
	}, nil
}

func appendShortage(shortages []stock.Shortage, item stock.Item, found map[string]stockRow) []stock.Shortage {
	sr, ok := found[item.ProductID]
	switch {
	case !ok:
		return append(shortages, stock.Shortage{ProductID: item.ProductID, Reason: stock.ReasonNotFound})
	case !sr.active:
		return append(shortages, stock.Shortage{ProductID: item.ProductID, Reason: stock.ReasonInactive})
	case sr.quantity < item.Quantity:
		return append(shortages, stock.Shortage{
			ProductID: item.ProductID,
			Reason:    stock.ReasonInsufficient,
			Available: sr.quantity,
			Requested: item.Quantity,
		})
	}
	return shortages
}
