// Package domain provides shared domain primitives: money rounding and the
// operations-desk clock. It has no infrastructure dependencies.
package domain

import (
	"github.com/shopspring/decimal"
)

// Monetary precision conventions:
//   - prices carry 3 decimal places
//   - cash and market-value totals carry 2 decimal places (half-even)
//   - percentages carry 4 decimal places before comparison and display

// RoundPrice rounds a price to 3 decimal places.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(3)
}

// RoundCash rounds a monetary total to 2 decimal places using half-even
// (banker's) rounding, so aggregation does not drift in one direction.
func RoundCash(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// RoundPercent rounds a percentage to 4 decimal places.
func RoundPercent(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}

// MarketValue computes shares * price rounded to 2 decimal places.
func MarketValue(shares int64, price decimal.Decimal) decimal.Decimal {
	return RoundCash(decimal.NewFromInt(shares).Mul(price))
}

// Percent computes numerator / denominator * 100 at 4 decimal places.
// The caller must guard against a zero denominator.
func Percent(numerator, denominator decimal.Decimal) decimal.Decimal {
	return RoundPercent(numerator.Div(denominator).Mul(decimal.NewFromInt(100)))
}

// Money converts a stored float into a 2dp decimal.
func Money(f float64) decimal.Decimal {
	return RoundCash(decimal.NewFromFloat(f))
}

// Price converts a stored float into a 3dp decimal.
func Price(f float64) decimal.Decimal {
	return RoundPrice(decimal.NewFromFloat(f))
}
