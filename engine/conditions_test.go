package engine_test

import (
	"testing"
	"time"

	"github.com/warp/funding-engine/engine"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func snapshot(id string, balance float64, monthlyTarget *engine.Money) engine.EnvelopeSnapshot {
	return engine.EnvelopeSnapshot{
		ID:             engine.EnvelopeID(id),
		Name:           id,
		CurrentBalance: money(balance),
		MonthlyTarget:  monthlyTarget,
	}
}

func manualContext(unassigned float64, envelopes ...engine.EnvelopeSnapshot) engine.Context {
	return engine.Context{
		UnassignedCash: money(unassigned),
		Envelopes:      envelopes,
		Trigger:        engine.TriggerManual,
		AsOf:           time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// CONDITION EVALUATION
// =============================================================================

func TestEvaluateConditions_EmptyListIsVacuouslyTrue(t *testing.T) {
	ctx := manualContext(0)
	if !engine.EvaluateConditions(nil, ctx) {
		t.Error("empty condition list should pass")
	}
	if !engine.EvaluateConditions([]engine.Condition{}, ctx) {
		t.Error("empty condition slice should pass")
	}
}

func TestEvaluateConditions_AllMustHold(t *testing.T) {
	ctx := manualContext(500, snapshot("rent", 100, nil))

	passing := engine.Condition{Type: engine.ConditionUnassignedAbove, Value: money(100)}
	failing := engine.Condition{Type: engine.ConditionUnassignedAbove, Value: money(9999)}

	if !engine.EvaluateConditions([]engine.Condition{passing, passing}, ctx) {
		t.Error("all-passing conditions should hold")
	}
	if engine.EvaluateConditions([]engine.Condition{passing, failing}, ctx) {
		t.Error("one failing condition should fail the whole list")
	}
}

func TestBalanceConditions_EnvelopeAndUnassigned(t *testing.T) {
	ctx := manualContext(500, snapshot("rent", 100, nil))

	lessThan := func(envelopeID string, value float64) engine.Condition {
		return engine.Condition{
			Type:       engine.ConditionBalanceLessThan,
			EnvelopeID: engine.EnvelopeID(envelopeID),
			Value:      money(value),
		}
	}
	greaterThan := func(envelopeID string, value float64) engine.Condition {
		return engine.Condition{
			Type:       engine.ConditionBalanceGreaterThan,
			EnvelopeID: engine.EnvelopeID(envelopeID),
			Value:      money(value),
		}
	}

	// Envelope balance comparisons
	if !engine.EvaluateConditions([]engine.Condition{lessThan("rent", 200)}, ctx) {
		t.Error("rent balance 100 < 200 should hold")
	}
	if engine.EvaluateConditions([]engine.Condition{lessThan("rent", 50)}, ctx) {
		t.Error("rent balance 100 < 50 should not hold")
	}
	if !engine.EvaluateConditions([]engine.Condition{greaterThan("rent", 50)}, ctx) {
		t.Error("rent balance 100 > 50 should hold")
	}

	// Empty envelope id compares against unassigned cash
	if !engine.EvaluateConditions([]engine.Condition{lessThan("", 600)}, ctx) {
		t.Error("unassigned 500 < 600 should hold")
	}
	if !engine.EvaluateConditions([]engine.Condition{greaterThan("", 400)}, ctx) {
		t.Error("unassigned 500 > 400 should hold")
	}
}

func TestBalanceConditions_MissingEnvelopeFailsClosed(t *testing.T) {
	// GIVEN: A condition referencing an envelope that does not exist
	// THEN: The condition is false - no data, no money moves

	ctx := manualContext(500)
	cond := engine.Condition{
		Type:       engine.ConditionBalanceLessThan,
		EnvelopeID: "ghost",
		Value:      money(1000000),
	}
	if engine.EvaluateConditions([]engine.Condition{cond}, ctx) {
		t.Error("condition on nonexistent envelope should fail closed")
	}
}

func TestUnassignedAbove_StrictlyGreater(t *testing.T) {
	ctx := manualContext(500)

	above := func(v float64) engine.Condition {
		return engine.Condition{Type: engine.ConditionUnassignedAbove, Value: money(v)}
	}

	if !engine.EvaluateConditions([]engine.Condition{above(499)}, ctx) {
		t.Error("500 > 499 should hold")
	}
	if engine.EvaluateConditions([]engine.Condition{above(500)}, ctx) {
		t.Error("500 > 500 should not hold (strict)")
	}
}

func TestDateRange_InclusiveBounds(t *testing.T) {
	ctx := manualContext(0)
	// ctx.AsOf is June 15

	rangeCond := func(start, end time.Time) engine.Condition {
		return engine.Condition{
			Type:      engine.ConditionDateRange,
			StartDate: timePtr(start),
			EndDate:   timePtr(end),
		}
	}

	june1 := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	june15 := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	june30 := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	july1 := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	if !engine.EvaluateConditions([]engine.Condition{rangeCond(june1, june30)}, ctx) {
		t.Error("June 15 within [June 1, June 30] should hold")
	}
	if !engine.EvaluateConditions([]engine.Condition{rangeCond(june15, june30)}, ctx) {
		t.Error("start bound is inclusive")
	}
	if !engine.EvaluateConditions([]engine.Condition{rangeCond(june1, june15)}, ctx) {
		t.Error("end bound is inclusive")
	}
	if engine.EvaluateConditions([]engine.Condition{rangeCond(june30, july1)}, ctx) {
		t.Error("June 15 outside [June 30, July 1] should not hold")
	}
}

func TestDateRange_MissingBoundsFailOpen(t *testing.T) {
	// Asymmetric with the envelope-lookup case on purpose: an unbounded
	// range does not gate.
	ctx := manualContext(0)

	cond := engine.Condition{Type: engine.ConditionDateRange}
	if !engine.EvaluateConditions([]engine.Condition{cond}, ctx) {
		t.Error("date range with no bounds should pass")
	}

	cond.StartDate = timePtr(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	if !engine.EvaluateConditions([]engine.Condition{cond}, ctx) {
		t.Error("date range with only a start bound should pass")
	}
}

func TestTransactionAmount_Operators(t *testing.T) {
	ctx := manualContext(0)
	ctx.NewIncomeAmount = moneyPtr(2000)

	cond := func(op engine.CompareOp, v float64) engine.Condition {
		return engine.Condition{
			Type:     engine.ConditionTransactionAmount,
			Operator: op,
			Value:    money(v),
		}
	}

	cases := []struct {
		c        engine.Condition
		expected bool
	}{
		{cond(engine.OpGreaterThan, 1500), true},
		{cond(engine.OpGreaterThan, 2000), false},
		{cond(engine.OpLessThan, 2500), true},
		{cond(engine.OpLessThan, 2000), false},
		{cond(engine.OpEquals, 2000), true},
		{cond(engine.OpEquals, 2000.005), true}, // Within 0.01 tolerance
		{cond(engine.OpEquals, 2000.02), false},
		{cond(engine.OpGreaterThanOrEqual, 2000), true},
		{cond(engine.OpLessThanOrEqual, 2000), true},
		{cond(engine.CompareOp("squints_at"), 9999), true}, // Unknown operator does not gate
	}

	for i, c := range cases {
		got := engine.EvaluateConditions([]engine.Condition{c.c}, ctx)
		if got != c.expected {
			t.Errorf("case %d (%s %v): expected %v, got %v", i, c.c.Operator, c.c.Value.Value, c.expected, got)
		}
	}
}

func TestTransactionAmount_AbsentIncomeFails(t *testing.T) {
	ctx := manualContext(1000)

	cond := engine.Condition{
		Type:     engine.ConditionTransactionAmount,
		Operator: engine.OpGreaterThan,
		Value:    money(1),
	}
	if engine.EvaluateConditions([]engine.Condition{cond}, ctx) {
		t.Error("transaction-amount condition without income should fail")
	}
}
