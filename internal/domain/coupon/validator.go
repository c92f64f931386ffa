package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Ledger validates coupons against an order amount and accounts usage.
// Validation never mutates state: usage is incremented separately, exactly
// once per order that actually commits a discount, so an abandoned checkout
// does not consume coupon inventory.
type Ledger interface {
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*Rule, error)
	IncrementUsage(ctx context.Context, code string) error
}

// RepoLedger implements Ledger on top of a Repository.
type RepoLedger struct {
	repo Repository
	now  func() time.Time
}

// NewRepoLedger creates a RepoLedger backed by the given Repository.
func NewRepoLedger(repo Repository) *RepoLedger {
	return &RepoLedger{repo: repo, now: time.Now}
}

// Validate checks a code against the order amount. Checks run in a fixed
// order — not found, inactive, expired, below minimum, usage limit — so the
// first applicable reason is reported deterministically.
func (l *RepoLedger) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*Rule, error) {
	rule, err := l.repo.FindByCode(ctx, normalize(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !rule.Active {
		return nil, ErrInactive
	}
	if l.now().After(rule.ExpiresAt) {
		return nil, ErrExpired
	}
	if orderAmount.LessThan(rule.MinimumOrderAmount) {
		return nil, ErrBelowMinimum
	}
	if rule.UsageLimit > 0 && rule.UsageCount >= rule.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	return rule, nil
}

// IncrementUsage records one redemption of the code.
func (l *RepoLedger) IncrementUsage(ctx context.Context, code string) error {
	return l.repo.IncrementUsage(ctx, normalize(code))
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
