package models

import "github.com/shopspring/decimal"

// Monetary arithmetic helpers. The normalizer, the validators and the UBL
// serializer must all round identically or independently recomputed totals
// would disagree with the serialized XML; they all go through these helpers.
//
// Rounding rule: half away from zero at 2 decimal places, which is what
// decimal.Round implements (19.995 x 3 = 59.985 -> 59.99).

// Round2 rounds v half away from zero at 2 decimals.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// MulRound2 multiplies a and b exactly in decimal space and rounds the
// product to 2 decimals. Multiplying in float64 first would lose the exact
// decimal representation of the inputs and round the wrong way on ties.
func MulRound2(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(2).Float64()
	return f
}

// RateAmount computes amount x rate / 100 exactly and unrounded, for summing
// VAT contributions across lines before a single final rounding.
func RateAmount(amount, rate float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(rate)).
		Div(decimal.NewFromInt(100))
}

// Dec converts a float64 amount to its exact decimal form.
func Dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
