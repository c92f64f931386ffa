package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeDiscount calculates the discount a rule grants on the given order
// amount. Percentage rules discount orderAmount * value / 100; fixed rules
// discount the value itself. The result is capped by the rule's maximum
// discount when set, then by the order amount, and is never negative.
func ComputeDiscount(rule *Rule, orderAmount decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch rule.Type {
	case TypePercentage:
		amount = orderAmount.Mul(rule.Value).Div(hundred)
	case TypeFixedAmount:
		amount = rule.Value
	default:
		return decimal.Zero
	}

	if rule.MaxDiscountAmount != nil && amount.GreaterThan(*rule.MaxDiscountAmount) {
		amount = *rule.MaxDiscountAmount
	}
	if amount.GreaterThan(orderAmount) {
		amount = orderAmount
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return amount.Round(2)
}
