package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ayurkart/checkout/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Codes are stored upper-cased; callers pass normalized codes.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon rule. Returns coupon.ErrNotFound when no such
// code exists; active/expiry/usage checks are the ledger's concern, so
// inactive and exhausted rows are returned as-is.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT code, description, coupon_type, value, minimum_order_amount,
		        maximum_discount_amount, COALESCE(usage_limit, 0), usage_count,
		        active, expires_at
		 FROM coupons WHERE code = $1`, code)

	var (
		rule        coupon.Rule
		maxDiscount decimal.NullDecimal
	)
	err := row.Scan(
		&rule.Code, &rule.Description, &rule.Type, &rule.Value,
		&rule.MinimumOrderAmount, &maxDiscount, &rule.UsageLimit,
		&rule.UsageCount, &rule.Active, &rule.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}

	if maxDiscount.Valid {
		rule.MaxDiscountAmount = &maxDiscount.Decimal
	}

	return &rule, nil
}

// IncrementUsage atomically counts one redemption.
func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE coupons SET usage_count = usage_count + 1 WHERE code = $1`, code)
	if err != nil {
		return errors.Wrapf(err, "increment usage for %q", code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}
