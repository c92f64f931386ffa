package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayurkart/checkout/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Item
// lists and shipping addresses are stored as JSONB documents.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, customer_email, items, shipping_address,
	subtotal, discount_amount, shipping_cost, tax_amount, total_amount,
	COALESCE(coupon_code, ''), COALESCE(payment_intent_id, ''), COALESCE(payment_id, ''),
	payment_status, status, COALESCE(tracking_number, ''), COALESCE(notes, ''),
	needs_review, created_at, updated_at, confirmed_at, shipped_at, delivered_at`

// Create persists a new order with its full pricing breakdown.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}
	addrJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return errors.Wrap(err, "marshal shipping address")
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO orders (
			id, customer_email, items, shipping_address,
			subtotal, discount_amount, shipping_cost, tax_amount, total_amount,
			coupon_code, payment_intent_id, payment_status, status, notes,
			created_at, updated_at, confirmed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			NULLIF($10, ''), NULLIF($11, ''), $12, $13, NULLIF($14, ''),
			$15, $16, $17
		)`,
		o.ID, o.CustomerEmail, itemsJSON, addrJSON,
		o.Subtotal, o.DiscountAmount, o.ShippingCost, o.TaxAmount, o.TotalAmount,
		o.CouponCode, o.PaymentIntentID, string(o.PaymentStatus), string(o.Status), o.Notes,
		o.CreatedAt, o.UpdatedAt, o.ConfirmedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}

	return nil
}

// GetByID returns the order with the given id, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetByIntentID returns the order correlated with a gateway intent id.
func (r *OrderRepository) GetByIntentID(ctx context.Context, intentID string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, intentID)
	return scanOrder(row)
}

// ListByEmail returns all orders of a customer, newest first.
func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}

	return orders, nil
}

// SetPaymentIntent records the gateway intent id on a freshly created order.
// The column is unique, so a correlation can never point at two orders.
func (r *OrderRepository) SetPaymentIntent(ctx context.Context, orderID, intentID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_intent_id = $2, updated_at = now() WHERE id = $1`,
		orderID, intentID)
	if err != nil {
		return errors.Wrapf(err, "set payment intent on %q", orderID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ConfirmPayment records a verified gateway callback. The processed-payment
// marker insert and the order transition share one transaction: a redelivered
// callback hits the marker's primary key, changes nothing, and reports
// applied=false.
func (r *OrderRepository) ConfirmPayment(ctx context.Context, orderID, intentID, paymentID string, at time.Time) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO payment_events (intent_id, payment_id, processed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (intent_id, payment_id) DO NOTHING`,
		intentID, paymentID, at)
	if err != nil {
		return false, errors.Wrap(err, "record payment event")
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	tag, err = tx.Exec(ctx,
		`UPDATE orders
		 SET status = $2, payment_status = $3, payment_id = $4,
		     confirmed_at = $5, updated_at = $5
		 WHERE id = $1`,
		orderID, string(order.StatusConfirmed), string(order.PaymentCompleted), paymentID, at)
	if err != nil {
		return false, errors.Wrapf(err, "confirm order %q", orderID)
	}
	if tag.RowsAffected() == 0 {
		return false, order.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "commit confirmation")
	}

	return true, nil
}

// UpdateStatus applies an administrative status change. Nil timestamp fields
// leave the stored values untouched.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, upd order.StatusUpdate) error {
	var paymentStatus *string
	if upd.PaymentStatus != nil {
		s := string(*upd.PaymentStatus)
		paymentStatus = &s
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET status = $2,
		     payment_status = COALESCE($3, payment_status),
		     tracking_number = COALESCE(NULLIF($4, ''), tracking_number),
		     confirmed_at = COALESCE($5, confirmed_at),
		     shipped_at = COALESCE($6, shipped_at),
		     delivered_at = COALESCE($7, delivered_at),
		     updated_at = now()
		 WHERE id = $1`,
		orderID, string(upd.Status), paymentStatus, upd.TrackingNumber,
		upd.ConfirmedAt, upd.ShippedAt, upd.DeliveredAt)
	if err != nil {
		return errors.Wrapf(err, "update status of %q", orderID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	return nil
}

// FlagForReview marks an order for manual reconciliation.
func (r *OrderRepository) FlagForReview(ctx context.Context, orderID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET needs_review = TRUE, updated_at = now() WHERE id = $1`, orderID)
	if err != nil {
		return errors.Wrapf(err, "flag order %q", orderID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// scanTarget is satisfied by both pgx.Row and pgx.Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

func scanOrder(row scanTarget) (*order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		addrJSON      []byte
		paymentStatus string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.CustomerEmail, &itemsJSON, &addrJSON,
		&o.Subtotal, &o.DiscountAmount, &o.ShippingCost, &o.TaxAmount, &o.TotalAmount,
		&o.CouponCode, &o.PaymentIntentID, &o.PaymentID,
		&paymentStatus, &status, &o.TrackingNumber, &o.Notes,
		&o.NeedsReview, &o.CreatedAt, &o.UpdatedAt, &o.ConfirmedAt, &o.ShippedAt, &o.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan order")
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshal order items")
	}
	if err := json.Unmarshal(addrJSON, &o.ShippingAddress); err != nil {
		return nil, errors.Wrap(err, "unmarshal shipping address")
	}
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)

	return &o, nil
}
