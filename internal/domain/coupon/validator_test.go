package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	rules      map[string]*Rule
	findErr    error
	usageCalls []string
	usageErr   error
}

func (m *mockRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	rule, ok := m.rules[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rule
	return &cp, nil
}

func (m *mockRepo) IncrementUsage(_ context.Context, code string) error {
	m.usageCalls = append(m.usageCalls, code)
	return m.usageErr
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newLedger(repo *mockRepo) *RepoLedger {
	l := NewRepoLedger(repo)
	l.now = func() time.Time { return testNow }
	return l
}

func activeRule(code string) *Rule {
	return &Rule{
		Code:               code,
		Type:               TypePercentage,
		Value:              decimal.NewFromInt(10),
		MinimumOrderAmount: decimal.NewFromInt(200),
		Active:             true,
		ExpiresAt:          testNow.Add(24 * time.Hour),
	}
}

func TestValidate_Success(t *testing.T) {
	repo := &mockRepo{rules: map[string]*Rule{"SAVE10": activeRule("SAVE10")}}
	l := newLedger(repo)

	rule, err := l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(500))

	require.NoError(t, err)
	assert.Equal(t, "SAVE10", rule.Code)
	assert.Empty(t, repo.usageCalls, "validation must not consume usage")
}

func TestValidate_NormalizesCode(t *testing.T) {
	repo := &mockRepo{rules: map[string]*Rule{"SAVE10": activeRule("SAVE10")}}
	l := newLedger(repo)

	_, err := l.Validate(context.Background(), "  save10 ", decimal.NewFromInt(500))

	require.NoError(t, err)
}

func TestValidate_NotFound(t *testing.T) {
	l := newLedger(&mockRepo{rules: map[string]*Rule{}})

	_, err := l.Validate(context.Background(), "MISSING", decimal.NewFromInt(500))

	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidate_Inactive(t *testing.T) {
	rule := activeRule("SAVE10")
	rule.Active = false
	l := newLedger(&mockRepo{rules: map[string]*Rule{"SAVE10": rule}})

	_, err := l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(500))

	require.ErrorIs(t, err, ErrInactive)
}

func TestValidate_Expired(t *testing.T) {
	rule := activeRule("SAVE10")
	rule.ExpiresAt = testNow.Add(-time.Minute)
	l := newLedger(&mockRepo{rules: map[string]*Rule{"SAVE10": rule}})

	_, err := l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(500))

	require.ErrorIs(t, err, ErrExpired)
}

func TestValidate_BelowMinimum(t *testing.T) {
	l := newLedger(&mockRepo{rules: map[string]*Rule{"SAVE10": activeRule("SAVE10")}})

	_, err := l.Validate(context.Background(), "SAVE10", decimal.RequireFromString("199.99"))

	require.ErrorIs(t, err, ErrBelowMinimum)
}

func TestValidate_ExactMinimumAccepted(t *testing.T) {
	l := newLedger(&mockRepo{rules: map[string]*Rule{"SAVE10": activeRule("SAVE10")}})

	_, err := l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(200))

	require.NoError(t, err)
}

func TestValidate_UsageLimitReached(t *testing.T) {
	rule := activeRule("SAVE10")
	rule.UsageLimit = 5
	rule.UsageCount = 5
	l := newLedger(&mockRepo{rules: map[string]*Rule{"SAVE10": rule}})

	_, err := l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(500))

	require.ErrorIs(t, err, ErrUsageLimitReached)
}

func TestValidate_ZeroUsageLimitMeansUnlimited(t *testing.T) {
	rule := activeRule("SAVE10")
	rule.UsageLimit = 0
	rule.UsageCount = 100_000
	l := newLedger(&mockRepo{rules: map[string]*Rule{"SAVE10": rule}})

	_, err := l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(500))

	require.NoError(t, err)
}

// The checks run in a fixed order, so a coupon failing several of them
// reports the first applicable reason.
func TestValidate_ReasonOrdering(t *testing.T) {
	rule := activeRule("SAVE10")
	rule.Active = false
	rule.ExpiresAt = testNow.Add(-time.Hour)
	rule.UsageLimit = 1
	rule.UsageCount = 1
	l := newLedger(&mockRepo{rules: map[string]*Rule{"SAVE10": rule}})

	// Inactive wins over expired, below-minimum and usage-limit.
	_, err := l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrInactive)

	rule.Active = true
	_, err = l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrExpired)

	rule.ExpiresAt = testNow.Add(time.Hour)
	_, err = l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrBelowMinimum)

	_, err = l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(500))
	require.ErrorIs(t, err, ErrUsageLimitReached)
}

func TestValidate_RepoErrorWrapped(t *testing.T) {
	l := newLedger(&mockRepo{findErr: errors.New("connection reset")})

	_, err := l.Validate(context.Background(), "SAVE10", decimal.NewFromInt(500))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "lookup coupon")
}

func TestIncrementUsage_NormalizesCode(t *testing.T) {
	repo := &mockRepo{rules: map[string]*Rule{}}
	l := newLedger(repo)

	require.NoError(t, l.IncrementUsage(context.Background(), " save10 "))
	assert.Equal(t, []string{"SAVE10"}, repo.usageCalls)
}
