/*
Package engine provides the auto-funding simulation core.

PURPOSE:
  This package contains the pure, side-effect-free evaluator that takes a
  prioritized set of funding rules and a budget snapshot (unassigned cash,
  envelope balances) and produces a non-mutating execution plan: which
  transfers would happen, in what order, for how much. Nothing here touches
  persistent state; callers own storage and transport.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: An exact two-decimal currency quantity (see money.go)
  - Rule/RuleConfig: A configured policy for moving money out of the pool
  - Condition: A predicate gating a conditional rule
  - Context: The budget snapshot a simulation runs against
  - PlannedTransfer/RuleOutcome/SimulationOutcome: Simulation outputs

DESIGN PRINCIPLES:
  1. Purity: A simulation call reads its inputs and builds fresh outputs;
     nothing is mutated in place and nothing outlives the call
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Closed enums: Rule types, triggers, and condition types are typed
     constants dispatched with exhaustive switches, not string maps
  4. Isolation: One rule's failure never aborts the batch

USAGE:
  outcome, err := engine.Simulate(rules, engine.Context{
      UnassignedCash: engine.NewMoney(1000),
      Envelopes:      snapshots,
      Trigger:        engine.TriggerManual,
  })

SEE ALSO:
  - money.go: Exact currency math (rounding, splitting)
  - simulation.go: The sequential orchestrator
  - impact.go: Post-hoc balance projection
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RuleID string
type EnvelopeID string

// UnassignedPool is the pseudo-envelope every planned transfer draws from.
// Rules only compete for the shared pool; they never move money between
// envelopes directly.
const UnassignedPool EnvelopeID = "unassigned"

// =============================================================================
// RULE TYPE - What a rule computes
// =============================================================================

type RuleType string

const (
	RuleFixedAmount    RuleType = "fixed_amount"    // "Move $200 to Rent"
	RulePercentage     RuleType = "percentage"      // "Move 30% to Savings"
	RuleConditional    RuleType = "conditional"     // "If balance < $50, run"
	RuleSplitRemainder RuleType = "split_remainder" // "Split leftover funds"
	RulePriorityFill   RuleType = "priority_fill"   // "Top up Rent to target"
)

// RuleTypes lists every valid rule type, for validation.
func RuleTypes() []RuleType {
	return []RuleType{RuleFixedAmount, RulePercentage, RuleConditional, RuleSplitRemainder, RulePriorityFill}
}

// =============================================================================
// TRIGGER TYPE - What makes a rule eligible to run
// =============================================================================

type TriggerType string

const (
	TriggerManual         TriggerType = "manual"          // User clicks "Run Rules"
	TriggerIncomeDetected TriggerType = "income_detected" // New positive transaction
	TriggerWeekly         TriggerType = "weekly"
	TriggerBiweekly       TriggerType = "biweekly"
	TriggerMonthly        TriggerType = "monthly"
	TriggerPayday         TriggerType = "payday" // Detected payday pattern
)

// TriggerTypes lists every valid trigger type, for validation.
func TriggerTypes() []TriggerType {
	return []TriggerType{TriggerManual, TriggerIncomeDetected, TriggerWeekly, TriggerBiweekly, TriggerMonthly, TriggerPayday}
}

// IsTimeBased reports whether the trigger is schedule-driven and therefore
// subject to the minimum-elapsed-days check in schedule.go.
func (t TriggerType) IsTimeBased() bool {
	switch t {
	case TriggerWeekly, TriggerBiweekly, TriggerMonthly, TriggerPayday:
		return true
	default:
		return false
	}
}

// =============================================================================
// SOURCE / TARGET CONFIGURATION
// =============================================================================

// SourceType identifies where a percentage rule's base amount comes from.
type SourceType string

const (
	SourceUnassigned SourceType = "unassigned" // The shared cash pool
	SourceEnvelope   SourceType = "envelope"   // A named envelope's balance
	SourceIncome     SourceType = "income"     // The incoming paycheck amount
)

// TargetType identifies how a rule distributes its funding amount.
type TargetType string

const (
	TargetEnvelope TargetType = "envelope" // Single destination
	TargetMultiple TargetType = "multiple" // Fan out across TargetIDs
)

// =============================================================================
// RULE - A configured funding policy
// =============================================================================

// Rule is a configured policy for moving money out of the unassigned cash
// pool. Rules are immutable inputs to a simulation; execution bookkeeping
// (LastExecuted, ExecutionCount) is maintained by the caller.
type Rule struct {
	ID          RuleID
	Name        string
	Description string
	Type        RuleType
	Trigger     TriggerType

	// Priority orders execution: lower runs first. Ties are broken by
	// ascending CreatedAt so execution order is stable and reproducible.
	Priority  int
	Enabled   bool
	CreatedAt time.Time

	// LastExecuted is nil until the rule has run at least once.
	LastExecuted   *time.Time
	ExecutionCount int

	Config RuleConfig
}

// RuleConfig holds the type-specific knobs for a rule.
// Invariants: Amount and Percentage are non-negative; TargetIDs is non-empty
// when TargetType is TargetMultiple.
type RuleConfig struct {
	SourceType SourceType
	SourceID   EnvelopeID // Set when SourceType is SourceEnvelope

	TargetType TargetType
	TargetID   EnvelopeID   // Single-target rules
	TargetIDs  []EnvelopeID // Split-remainder rules, in distribution order

	Amount     Money           // Fixed-amount rules
	Percentage decimal.Decimal // Percentage rules, 0-100

	Conditions []Condition // Conditional rules

	// Schedule is an opaque sub-config reserved for trigger-specific
	// settings (e.g. preferred weekday). The engine does not interpret it.
	Schedule map[string]any
}

// =============================================================================
// CONDITION - Predicate gating a conditional rule
// =============================================================================

type ConditionType string

const (
	ConditionBalanceLessThan    ConditionType = "balance_less_than"
	ConditionBalanceGreaterThan ConditionType = "balance_greater_than"
	ConditionDateRange          ConditionType = "date_range"
	ConditionTransactionAmount  ConditionType = "transaction_amount"
	ConditionUnassignedAbove    ConditionType = "unassigned_above"
)

// ConditionTypes lists every valid condition type, for validation.
func ConditionTypes() []ConditionType {
	return []ConditionType{
		ConditionBalanceLessThan,
		ConditionBalanceGreaterThan,
		ConditionDateRange,
		ConditionTransactionAmount,
		ConditionUnassignedAbove,
	}
}

// CompareOp is the comparison operator for transaction-amount conditions.
type CompareOp string

const (
	OpGreaterThan        CompareOp = "greater_than"
	OpLessThan           CompareOp = "less_than"
	OpEquals             CompareOp = "equals" // Within a 0.01 tolerance
	OpGreaterThanOrEqual CompareOp = "greater_than_or_equal"
	OpLessThanOrEqual    CompareOp = "less_than_or_equal"
)

// CompareOps lists every valid comparison operator, for validation.
func CompareOps() []CompareOp {
	return []CompareOp{OpGreaterThan, OpLessThan, OpEquals, OpGreaterThanOrEqual, OpLessThanOrEqual}
}

// Condition gates a conditional rule. An empty EnvelopeID on a balance
// condition means the condition applies to unassigned cash instead.
type Condition struct {
	ID         string
	Type       ConditionType
	EnvelopeID EnvelopeID
	Value      Money
	Operator   CompareOp // Transaction-amount conditions only

	// Date-range conditions only; nil bounds make the condition
	// vacuously true (fail open).
	StartDate *time.Time
	EndDate   *time.Time
}

// =============================================================================
// CONTEXT - The budget snapshot a simulation runs against
// =============================================================================

// EnvelopeSnapshot is a read-only view of one envelope at simulation time.
type EnvelopeSnapshot struct {
	ID             EnvelopeID
	Name           string
	CurrentBalance Money
	MonthlyTarget  *Money // nil when the envelope has no monthly target
}

// FillPercentage returns CurrentBalance / MonthlyTarget * 100, or zero when
// the envelope has no positive target.
func (e EnvelopeSnapshot) FillPercentage() decimal.Decimal {
	return fillPercentage(e.CurrentBalance, e.MonthlyTarget)
}

func fillPercentage(balance Money, target *Money) decimal.Decimal {
	if target == nil || !target.IsPositive() {
		return decimal.Zero
	}
	return balance.Value.Div(target.Value).Mul(decimal.NewFromInt(100))
}

// Context carries everything a simulation reads. It is never mutated; the
// orchestrator threads the shrinking cash pool as a separate parameter.
type Context struct {
	UnassignedCash Money

	// NewIncomeAmount is present only on income-triggered runs.
	NewIncomeAmount *Money

	Envelopes []EnvelopeSnapshot
	Trigger   TriggerType

	// AsOf defaults to time.Now when zero.
	AsOf time.Time
}

// Envelope looks up a snapshot by id.
func (c Context) Envelope(id EnvelopeID) (EnvelopeSnapshot, bool) {
	for _, e := range c.Envelopes {
		if e.ID == id {
			return e, true
		}
	}
	return EnvelopeSnapshot{}, false
}

// EffectiveDate returns AsOf, or the current time when AsOf is unset.
func (c Context) EffectiveDate() time.Time {
	if c.AsOf.IsZero() {
		return time.Now().UTC()
	}
	return c.AsOf
}

// =============================================================================
// SIMULATION OUTPUTS
// =============================================================================

// PlannedTransfer is a proposed (not executed) movement of money from the
// unassigned pool to an envelope. Invariant: Amount >= 0.
type PlannedTransfer struct {
	FromEnvelopeID EnvelopeID
	ToEnvelopeID   EnvelopeID
	Amount         Money
	Description    string
	RuleID         RuleID
	RuleName       string
}

// RuleOutcome is the per-rule result of a simulation pass.
type RuleOutcome struct {
	RuleID           RuleID
	RuleName         string
	Success          bool
	Error            string // Soft-failure or computation-failure message
	Amount           Money
	PlannedTransfers []PlannedTransfer
	TargetEnvelopes  []EnvelopeID
}

// RuleError is a per-rule error record in the aggregate error list.
type RuleError struct {
	RuleID   RuleID
	RuleName string
	Error    string
}

// SimulationOutcome aggregates a full simulation run.
type SimulationOutcome struct {
	TotalPlanned     Money
	RulesExecuted    int
	PlannedTransfers []PlannedTransfer
	RuleResults      []RuleOutcome
	RemainingCash    Money
	Errors           []RuleError
}
