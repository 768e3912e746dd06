/*
money.go - Exact-cents currency math

PURPOSE:
  Money is a two-decimal currency quantity backed by decimal.Decimal, so no
  binary floating-point drift can creep into funding amounts. Floats exist
  only at the serialization boundary (see api/dto.go).

ROUNDING:
  All rounding is round-half-up (never banker's rounding). SplitExact
  deliberately concentrates rounding error in the LAST slot: every share
  rounds half-up to two decimals and the final share absorbs whatever
  remainder keeps the sum exactly equal to the rounded total. This
  asymmetry is a load-bearing behavior, not an accident.

SEE ALSO:
  - transfers.go: Uses SplitExact for split-remainder distribution
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Two-decimal currency amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

// MustParseMoney parses a decimal string, returning zero on failure.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money           { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money           { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) Neg() Money                  { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) GreaterThan(o Money) bool    { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool       { return m.Value.LessThan(o.Value) }
func (m Money) Equal(o Money) bool          { return m.Value.Equal(o.Value) }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// Float64 converts for the serialization boundary only.
func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

func (m Money) String() string { return m.Value.StringFixed(2) }

// =============================================================================
// CURRENCY MATH
// =============================================================================

// RoundCurrency rounds to two decimal places using round-half-up
// (decimal.Round is half-away-from-zero, which is half-up for the
// non-negative amounts money math deals in). Never fails.
func RoundCurrency(m Money) Money {
	return Money{Value: m.Value.Round(2)}
}

// PercentageOf returns round(base * percent / 100) to the cent.
func PercentageOf(base Money, percent decimal.Decimal) Money {
	return RoundCurrency(Money{Value: base.Value.Mul(percent).Div(decimal.NewFromInt(100))})
}

// SplitExact divides total into n parts that sum to exactly
// RoundCurrency(total). Every share is total/n rounded half-up to two
// decimals; the last share absorbs the remainder so not a cent is lost or
// invented. n <= 0 returns an empty slice; a zero total returns n zeros.
func SplitExact(total Money, n int) []Money {
	if n <= 0 {
		return []Money{}
	}

	rounded := RoundCurrency(total)
	share := RoundCurrency(Money{Value: rounded.Value.Div(decimal.NewFromInt(int64(n)))})

	parts := make([]Money, n)
	for i := 0; i < n-1; i++ {
		parts[i] = share
	}
	// Last slot absorbs rounding drift so the sum stays exact.
	parts[n-1] = rounded.Sub(share.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts
}

// SumTransfers totals the amounts of a transfer list.
func SumTransfers(transfers []PlannedTransfer) Money {
	total := Zero()
	for _, t := range transfers {
		total = total.Add(t.Amount)
	}
	return total
}
