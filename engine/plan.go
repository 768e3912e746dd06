/*
plan.go - Execution planning, validation, and summaries

PURPOSE:
  Wraps a simulation outcome into a reviewable execution plan: when it was
  planned, what would move, what failed, and warnings worth surfacing
  before anyone applies the plan. Also validates transfer feasibility and
  renders display summaries. All of it is derived data; nothing here feeds
  back into the simulation decision.
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EXECUTION PLAN
// =============================================================================

// ExecutionPlan is a reviewable snapshot of what a simulation would do.
type ExecutionPlan struct {
	PlannedAt      time.Time
	Trigger        TriggerType
	InitialCash    Money
	FinalCash      Money
	TotalToMove    Money
	RulesCount     int
	TransfersCount int
	Rules          []RuleOutcome // Successful rules only
	Transfers      []PlannedTransfer
	Errors         []RuleError
	Warnings       []PlanWarning
}

type WarningSeverity string

const (
	SeverityLow    WarningSeverity = "low"
	SeverityMedium WarningSeverity = "medium"
	SeverityHigh   WarningSeverity = "high"
)

// PlanWarning flags a potential issue in an execution plan.
type PlanWarning struct {
	Type     string
	Message  string
	Severity WarningSeverity
}

// BuildExecutionPlan runs a simulation and wraps it into a plan with
// warnings. The error mirrors Simulate's batch-fatal semantics.
func BuildExecutionPlan(rules []Rule, ctx Context) (*ExecutionPlan, error) {
	sim, err := Simulate(rules, ctx)
	if err != nil {
		return nil, err
	}

	successful := make([]RuleOutcome, 0, len(sim.RuleResults))
	for _, r := range sim.RuleResults {
		if r.Success {
			successful = append(successful, r)
		}
	}

	return &ExecutionPlan{
		PlannedAt:      time.Now().UTC(),
		Trigger:        ctx.Trigger,
		InitialCash:    ctx.UnassignedCash,
		FinalCash:      sim.RemainingCash,
		TotalToMove:    sim.TotalPlanned,
		RulesCount:     sim.RulesExecuted,
		TransfersCount: len(sim.PlannedTransfers),
		Rules:          successful,
		Transfers:      sim.PlannedTransfers,
		Errors:         sim.Errors,
		Warnings:       PlanWarnings(sim, ctx),
	}, nil
}

// PlanWarnings derives warnings from a simulation outcome:
// rules starved of cash, nothing executing at all, or a nearly-drained
// pool (under 5% remaining).
func PlanWarnings(sim *SimulationOutcome, ctx Context) []PlanWarning {
	var warnings []PlanWarning

	for _, e := range sim.Errors {
		if e.Error == ReasonNoFunds {
			warnings = append(warnings, PlanWarning{
				Type:     "insufficient_funds",
				Message:  "Some rules cannot execute due to insufficient unassigned cash",
				Severity: SeverityHigh,
			})
			break
		}
	}

	if sim.RulesExecuted == 0 {
		warnings = append(warnings, PlanWarning{
			Type:     "no_execution",
			Message:  "No rules will execute with current conditions",
			Severity: SeverityMedium,
		})
	}

	if ctx.UnassignedCash.IsPositive() && sim.RemainingCash.IsPositive() {
		remainingPct := sim.RemainingCash.Value.Div(ctx.UnassignedCash.Value).Mul(decimal.NewFromInt(100))
		if remainingPct.LessThan(decimal.NewFromInt(5)) {
			warnings = append(warnings, PlanWarning{
				Type:     "low_remaining_cash",
				Message:  "Only $" + sim.RemainingCash.String() + " will remain unassigned",
				Severity: SeverityLow,
			})
		}
	}

	return warnings
}

// =============================================================================
// TRANSFER VALIDATION
// =============================================================================

// TransferValidationError describes one infeasible transfer, or an
// aggregate problem when TransferIndex is nil.
type TransferValidationError struct {
	TransferIndex *int
	Error         string
}

// TransferValidation is the result of checking plan feasibility.
type TransferValidation struct {
	IsValid     bool
	Errors      []TransferValidationError
	TotalAmount Money
}

// ValidateTransfers checks that every target envelope exists, every amount
// is positive, and the total does not exceed the available pool.
func ValidateTransfers(transfers []PlannedTransfer, ctx Context) TransferValidation {
	var errs []TransferValidationError
	total := Zero()

	for i, transfer := range transfers {
		idx := i
		if transfer.ToEnvelopeID != UnassignedPool {
			if _, ok := ctx.Envelope(transfer.ToEnvelopeID); !ok {
				errs = append(errs, TransferValidationError{
					TransferIndex: &idx,
					Error:         "target envelope " + string(transfer.ToEnvelopeID) + " not found",
				})
			}
		}
		if !transfer.Amount.IsPositive() {
			errs = append(errs, TransferValidationError{
				TransferIndex: &idx,
				Error:         "transfer amount must be positive",
			})
		}
		total = total.Add(transfer.Amount)
	}

	if total.GreaterThan(ctx.UnassignedCash) {
		errs = append(errs, TransferValidationError{
			Error: "total transfers ($" + total.String() + ") exceed available cash ($" + ctx.UnassignedCash.String() + ")",
		})
	}

	return TransferValidation{
		IsValid:     len(errs) == 0,
		Errors:      errs,
		TotalAmount: total,
	}
}

// =============================================================================
// PLAN SUMMARY
// =============================================================================

// PlanSummary is a display-oriented digest of an execution plan.
type PlanSummary struct {
	TotalAmount    Money
	RulesCount     int
	TransfersCount int
	RemainingCash  Money
	HasErrors      bool
	HasWarnings    bool
	Rules          []RuleSummaryLine
	Transfers      []TransferSummaryLine
}

type RuleSummaryLine struct {
	Name        string
	Amount      Money
	TargetCount int
	Targets     []string // Envelope names where known, ids otherwise
}

type TransferSummaryLine struct {
	Amount      Money
	To          string
	Description string
}

// SummarizePlan renders a plan for display, resolving envelope names.
func SummarizePlan(plan *ExecutionPlan, envelopes []EnvelopeSnapshot) PlanSummary {
	name := func(id EnvelopeID) string {
		for _, e := range envelopes {
			if e.ID == id && e.Name != "" {
				return e.Name
			}
		}
		return string(id)
	}

	summary := PlanSummary{
		TotalAmount:    plan.TotalToMove,
		RulesCount:     plan.RulesCount,
		TransfersCount: plan.TransfersCount,
		RemainingCash:  plan.FinalCash,
		HasErrors:      len(plan.Errors) > 0,
		HasWarnings:    len(plan.Warnings) > 0,
	}

	for _, rule := range plan.Rules {
		targets := make([]string, 0, len(rule.TargetEnvelopes))
		for _, id := range rule.TargetEnvelopes {
			targets = append(targets, name(id))
		}
		summary.Rules = append(summary.Rules, RuleSummaryLine{
			Name:        rule.RuleName,
			Amount:      rule.Amount,
			TargetCount: len(rule.TargetEnvelopes),
			Targets:     targets,
		})
	}

	for _, transfer := range plan.Transfers {
		summary.Transfers = append(summary.Transfers, TransferSummaryLine{
			Amount:      transfer.Amount,
			To:          name(transfer.ToEnvelopeID),
			Description: transfer.Description,
		})
	}

	return summary
}
