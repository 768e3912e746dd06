/*
funding.go - Funding-amount calculation per rule type

PURPOSE:
  Computes how much a rule would draw from the shared pool, given the
  CURRENT available cash. The orchestrator threads the shrinking pool
  through the `available` parameter; the Context is never cloned or
  mutated to carry it.

AMOUNT SEMANTICS:
  fixed_amount:    min(configured amount, available)
  percentage:      round(base * pct / 100); base resolved from SourceType
  priority_fill:   monthly target - current balance, floored at 0,
                   capped by available
  split_remainder: the entire available pool (distribution happens in
                   transfers.go)
  conditional:     0 - conditions gate eligibility, the type itself
                   computes nothing
  anything else:   0

  A zero result is a normal outcome, not an error; the orchestrator records
  it as "No funds available" or "Amount calculated as zero" depending on
  whether the pool was already empty.
*/
package engine

// FundingAmount computes the amount a rule would draw given the current
// available cash. No rule type fails for a legitimate input.
func FundingAmount(rule Rule, ctx Context, available Money) Money {
	switch rule.Type {
	case RuleFixedAmount:
		return rule.Config.Amount.Min(available)

	case RulePercentage:
		base := PercentageBase(rule, ctx, available)
		return PercentageOf(base, rule.Config.Percentage)

	case RulePriorityFill:
		return priorityFillAmount(rule, ctx, available)

	case RuleSplitRemainder:
		// The whole pool; SplitExact fans it out across targets.
		return available

	case RuleConditional:
		return Zero()

	default:
		return Zero()
	}
}

// PercentageBase resolves the base amount a percentage rule applies to.
// Unknown sources and an income source without an income amount fall back
// to the available pool; a named source envelope that does not exist
// contributes zero.
func PercentageBase(rule Rule, ctx Context, available Money) Money {
	switch rule.Config.SourceType {
	case SourceUnassigned:
		return available

	case SourceEnvelope:
		if rule.Config.SourceID == "" {
			return Zero()
		}
		env, ok := ctx.Envelope(rule.Config.SourceID)
		if !ok {
			return Zero()
		}
		return env.CurrentBalance

	case SourceIncome:
		if ctx.NewIncomeAmount != nil {
			return *ctx.NewIncomeAmount
		}
		return available

	default:
		return available
	}
}

// priorityFillAmount tops the target envelope up to its monthly target,
// capped by available cash. Missing target configuration or an unknown
// envelope yields zero.
func priorityFillAmount(rule Rule, ctx Context, available Money) Money {
	if rule.Config.TargetID == "" {
		return Zero()
	}

	target, ok := ctx.Envelope(rule.Config.TargetID)
	if !ok {
		return Zero()
	}

	monthly := Zero()
	if target.MonthlyTarget != nil {
		monthly = *target.MonthlyTarget
	}

	needed := monthly.Sub(target.CurrentBalance)
	return needed.Min(available).Max(Zero())
}
