/*
simulation.go - The sequential simulation orchestrator

PURPOSE:
  Runs a full simulation pass: filter rules through eligibility, sort the
  survivors deterministically, then walk them in order against a shrinking
  cash pool, aggregating planned transfers and per-rule outcomes.

ORDERING IS LOAD-BEARING:
  Later rules see the depletion caused by earlier ones, so funded amounts
  are order-dependent. Priority ascending with CreatedAt ascending as the
  tiebreak makes execution order stable and reproducible; this is why rules
  cannot be evaluated in parallel without changing semantics.

FAILURE ISOLATION:
  Everything attributable to one rule stays scoped to that rule:
  - amount <= 0 is a soft failure recorded with an explanatory message
  - a panic during one rule's evaluation is recovered and recorded as that
    rule's failure; the batch continues
  Only a failure outside the per-rule loop (filtering/sorting) aborts the
  whole call, and then no partial simulation is reported.

STATE MACHINE (per rule):
  candidate -> eligible/skipped -> funded/unfunded -> planned
*/
package engine

import "fmt"

// Soft-failure messages recorded on rules that compute a non-positive
// funding amount.
const (
	ReasonNoFunds    = "No funds available"
	ReasonZeroAmount = "Amount calculated as zero"
)

// Simulate evaluates all applicable rules against the context without
// mutating anything. The returned outcome is complete even when individual
// rules fail; a non-nil error means a structural failure before or around
// the per-rule loop, and then no outcome is returned at all.
func Simulate(rules []Rule, ctx Context) (outcome *SimulationOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = fmt.Errorf("simulation failed: %v", r)
		}
	}()

	executable := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if ShouldExecute(rule, ctx) {
			executable = append(executable, rule)
		}
	}
	sorted := SortRulesByPriority(executable)

	sim := &SimulationOutcome{
		TotalPlanned:     Zero(),
		PlannedTransfers: []PlannedTransfer{},
		RuleResults:      []RuleOutcome{},
		RemainingCash:    ctx.UnassignedCash,
		Errors:           []RuleError{},
	}

	available := ctx.UnassignedCash

	for _, rule := range sorted {
		result := SimulateRule(rule, ctx, available)

		switch {
		case result.Success && result.Amount.IsPositive():
			sim.RuleResults = append(sim.RuleResults, result)
			sim.PlannedTransfers = append(sim.PlannedTransfers, result.PlannedTransfers...)
			sim.TotalPlanned = sim.TotalPlanned.Add(result.Amount)
			sim.RulesExecuted++
			available = available.Sub(result.Amount)

		case !result.Success:
			sim.RuleResults = append(sim.RuleResults, result)
			if result.Error != "" {
				sim.Errors = append(sim.Errors, RuleError{
					RuleID:   rule.ID,
					RuleName: rule.Name,
					Error:    result.Error,
				})
			}
		}
	}

	sim.RemainingCash = available.Max(Zero())
	return sim, nil
}

// SimulateRule evaluates a single rule against the current available cash.
// A panic during evaluation is recovered into a failed outcome so one bad
// rule cannot abort the batch.
func SimulateRule(rule Rule, ctx Context, available Money) (result RuleOutcome) {
	defer func() {
		if r := recover(); r != nil {
			result = RuleOutcome{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Success:  false,
				Error:    fmt.Sprintf("%v", r),
				Amount:   Zero(),
			}
		}
	}()

	amount := FundingAmount(rule, ctx, available)

	if !amount.IsPositive() {
		reason := ReasonZeroAmount
		if !available.IsPositive() {
			reason = ReasonNoFunds
		}
		return RuleOutcome{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Success:  false,
			Error:    reason,
			Amount:   Zero(),
		}
	}

	transfers := PlanTransfers(rule, amount)
	targets := make([]EnvelopeID, 0, len(transfers))
	for _, t := range transfers {
		targets = append(targets, t.ToEnvelopeID)
	}

	return RuleOutcome{
		RuleID:           rule.ID,
		RuleName:         rule.Name,
		Success:          true,
		Amount:           amount,
		PlannedTransfers: transfers,
		TargetEnvelopes:  targets,
	}
}
