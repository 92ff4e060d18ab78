// Package money centralizes fixed-point monetary arithmetic. Amounts are
// integer cents everywhere inside the service; decimals appear only at the
// serialization boundary and inside rate math. Every rounding step is
// half-away-from-zero so the per-vendor splits reconcile to the cent.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FromDecimal converts a decimal amount of currency units into cents,
// rounding half away from zero.
func FromDecimal(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// ToDecimal converts cents into a two-decimal currency amount.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}

// Percent applies a percentage rate to an amount of cents.
// Percent(10000, 8.25) = 825.
func Percent(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).
		Mul(rate).
		Div(hundred).
		Round(0).
		IntPart()
}

// ScaleRatio scales cents by numerator/denominator. A zero denominator
// yields zero rather than panicking; callers guard against it upstream.
func ScaleRatio(cents, numerator, denominator int64) int64 {
	if denominator == 0 {
		return 0
	}
	return decimal.NewFromInt(cents).
		Mul(decimal.NewFromInt(numerator)).
		Div(decimal.NewFromInt(denominator)).
		Round(0).
		IntPart()
}

// Format renders cents as a fixed two-decimal string, e.g. 12345 -> "123.45".
func Format(cents int64) string {
	return ToDecimal(cents).StringFixed(2)
}

// Parse converts a two-decimal amount string into cents.
func Parse(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	return FromDecimal(d), nil
}

// Min returns the smaller of two cent amounts.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
