package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/funding-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(v float64) engine.Money {
	return engine.NewMoney(v)
}

func moneyPtr(v float64) *engine.Money {
	m := engine.NewMoney(v)
	return &m
}

func pct(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func assertMoney(t *testing.T, got engine.Money, want float64, label string) {
	t.Helper()
	if !got.Equal(money(want)) {
		t.Errorf("%s: expected %v, got %v", label, want, got.Value)
	}
}

// =============================================================================
// ROUNDING
// =============================================================================

func TestRoundCurrency_HalfUp(t *testing.T) {
	// Round-half-up, never banker's rounding: .005 always goes up.
	cases := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.015", "1.02"}, // Banker's rounding would give 1.02 here too...
		{"1.025", "1.03"}, // ...but not here (banker's: 1.02)
		{"2.675", "2.68"},
		{"10.994", "10.99"},
		{"0", "0.00"},
	}

	for _, c := range cases {
		got := engine.RoundCurrency(engine.MustParseMoney(c.in))
		if got.String() != c.want {
			t.Errorf("RoundCurrency(%s): expected %s, got %s", c.in, c.want, got.String())
		}
	}
}

func TestPercentageOf(t *testing.T) {
	assertMoney(t, engine.PercentageOf(money(1000), pct(30)), 300, "30% of 1000")
	assertMoney(t, engine.PercentageOf(money(2000), pct(50)), 1000, "50% of 2000")
	assertMoney(t, engine.PercentageOf(money(0.10), pct(33)), 0.03, "33% of 0.10 rounds half-up")
	assertMoney(t, engine.PercentageOf(money(100), pct(0)), 0, "0% of anything")
}

// =============================================================================
// EXACT SPLITTING
// =============================================================================

func TestSplitExact_RemainderGoesToLastSlot(t *testing.T) {
	// GIVEN: $100 split three ways
	// WHEN: Splitting exactly
	// THEN: [33.33, 33.33, 33.34] - the last slot absorbs the extra cent

	parts := engine.SplitExact(money(100), 3)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	assertMoney(t, parts[0], 33.33, "first part")
	assertMoney(t, parts[1], 33.33, "second part")
	assertMoney(t, parts[2], 33.34, "last part absorbs remainder")
}

func TestSplitExact_EvenSplit(t *testing.T) {
	parts := engine.SplitExact(money(300), 2)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	assertMoney(t, parts[0], 150, "first part")
	assertMoney(t, parts[1], 150, "second part")
}

func TestSplitExact_SumIsAlwaysExact(t *testing.T) {
	// Property: for any total and n >= 1, the parts sum to exactly
	// RoundCurrency(total). No cent is ever lost or invented.

	totals := []float64{100, 0.01, 0.05, 999.99, 1234.567, 0.10, 7}
	for _, total := range totals {
		for n := 1; n <= 7; n++ {
			parts := engine.SplitExact(money(total), n)
			if len(parts) != n {
				t.Fatalf("SplitExact(%v, %d): expected %d parts, got %d", total, n, n, len(parts))
			}

			sum := engine.Zero()
			for _, p := range parts {
				sum = sum.Add(p)
			}
			want := engine.RoundCurrency(money(total))
			if !sum.Equal(want) {
				t.Errorf("SplitExact(%v, %d): parts sum to %v, expected %v", total, n, sum.Value, want.Value)
			}
		}
	}
}

func TestSplitExact_EdgeCases(t *testing.T) {
	if parts := engine.SplitExact(money(100), 0); len(parts) != 0 {
		t.Errorf("n=0 should return empty slice, got %d parts", len(parts))
	}
	if parts := engine.SplitExact(money(100), -2); len(parts) != 0 {
		t.Errorf("negative n should return empty slice, got %d parts", len(parts))
	}

	parts := engine.SplitExact(engine.Zero(), 3)
	if len(parts) != 3 {
		t.Fatalf("zero total should return n zeros, got %d parts", len(parts))
	}
	for i, p := range parts {
		if !p.IsZero() {
			t.Errorf("part %d of zero split should be zero, got %v", i, p.Value)
		}
	}
}
