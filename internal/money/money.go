// Package money holds the fixed-point currency helpers shared by the pricing
// code. All amounts are shopspring decimals with two fractional digits.
package money

import "github.com/shopspring/decimal"

// Places is the number of fractional digits kept for currency amounts.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round rounds d half-up to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	// decimal.Round rounds half away from zero, which is half-up for the
	// non-negative amounts used here.
	return d.Round(Places)
}

// LineTotal returns unit × qty rounded to currency precision.
func LineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return Round(unit.Mul(decimal.NewFromInt(int64(qty))))
}

// Percent returns pct percent of amount, rounded to currency precision.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(pct).Div(hundred))
}

// Clamp limits d to the closed range [0, upper].
func Clamp(d, upper decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, upper)
}

// Sum adds amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Format renders d with exactly two decimal places, e.g. "1000.00".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
