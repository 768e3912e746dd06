/*
conditions.go - Condition evaluation for conditional rules

PURPOSE:
  Evaluates a rule's condition list against the simulation context. All
  conditions must hold (logical AND); an empty list is vacuously true.

FAIL-OPEN vs FAIL-CLOSED:
  The two lookup failure modes are deliberately asymmetric, preserved from
  the reference behavior rather than harmonized:
  - A balance condition referencing an envelope that does not exist is
    FALSE (fails closed: no data, no money moves).
  - A date-range condition with a missing bound is TRUE (fails open: an
    unbounded range does not gate anything).
  Flagged as an open product question in DESIGN.md; do not "fix" silently.

SEE ALSO:
  - eligibility.go: Where conditions plug into the per-rule gate
*/
package engine

import "time"

// EqualsTolerance is the slack allowed by the "equals" operator on
// transaction-amount conditions.
var equalsTolerance = NewMoney(0.01)

// EvaluateConditions reports whether every condition holds against the
// context. An empty condition list is vacuously true: the rule has no
// gating conditions and proceeds.
func EvaluateConditions(conditions []Condition, ctx Context) bool {
	for _, c := range conditions {
		if !evaluateCondition(c, ctx) {
			return false
		}
	}
	return true
}

func evaluateCondition(c Condition, ctx Context) bool {
	switch c.Type {
	case ConditionBalanceLessThan:
		return balanceOf(c, ctx, func(balance Money) bool { return balance.LessThan(c.Value) })

	case ConditionBalanceGreaterThan:
		return balanceOf(c, ctx, func(balance Money) bool { return balance.GreaterThan(c.Value) })

	case ConditionUnassignedAbove:
		return ctx.UnassignedCash.GreaterThan(c.Value)

	case ConditionDateRange:
		return dateRangeHolds(c, ctx.EffectiveDate())

	case ConditionTransactionAmount:
		return transactionAmountHolds(c, ctx)

	default:
		// Unknown condition types do not gate.
		return true
	}
}

// balanceOf applies cmp to the referenced envelope's balance, or to the
// unassigned cash pool when no envelope is named. A named envelope that
// does not exist makes the condition false.
func balanceOf(c Condition, ctx Context, cmp func(Money) bool) bool {
	if c.EnvelopeID != "" {
		env, ok := ctx.Envelope(c.EnvelopeID)
		if !ok {
			return false
		}
		return cmp(env.CurrentBalance)
	}
	return cmp(ctx.UnassignedCash)
}

// dateRangeHolds checks asOf in [start, end] inclusive. Missing bounds make
// the condition vacuously true.
func dateRangeHolds(c Condition, asOf time.Time) bool {
	if c.StartDate == nil || c.EndDate == nil {
		return true
	}
	day := truncateToDay(asOf)
	return !day.Before(truncateToDay(*c.StartDate)) && !day.After(truncateToDay(*c.EndDate))
}

// transactionAmountHolds compares the context's new income amount against
// the threshold. Absent income makes the condition false; an unrecognized
// operator does not gate.
func transactionAmountHolds(c Condition, ctx Context) bool {
	if ctx.NewIncomeAmount == nil {
		return false
	}
	income := *ctx.NewIncomeAmount

	switch c.Operator {
	case OpGreaterThan:
		return income.GreaterThan(c.Value)
	case OpLessThan:
		return income.LessThan(c.Value)
	case OpEquals:
		diff := Money{Value: income.Value.Sub(c.Value.Value).Abs()}
		return diff.LessThan(equalsTolerance)
	case OpGreaterThanOrEqual:
		return !income.LessThan(c.Value)
	case OpLessThanOrEqual:
		return !income.GreaterThan(c.Value)
	default:
		return true
	}
}
