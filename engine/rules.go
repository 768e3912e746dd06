/*
rules.go - Rule ordering, validation, filtering, and statistics

PURPOSE:
  Utilities around Rule values that are not part of the simulation hot
  path: the deterministic sort the orchestrator relies on, configuration
  validation for rule authoring, list filtering for UIs, and aggregate
  statistics.

SEE ALSO:
  - simulation.go: Consumes SortRulesByPriority
  - factory: Validates parsed rules with ValidateRule before use
*/
package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ORDERING
// =============================================================================

// SortRulesByPriority returns a new slice ordered by priority ascending
// (lower number runs first), ties broken by CreatedAt ascending. The input
// is not modified.
func SortRulesByPriority(rules []Rule) []Rule {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// NewDefaultRule returns a freshly-identified rule with safe defaults:
// manual fixed-amount rule, priority 100, enabled.
func NewDefaultRule() Rule {
	return Rule{
		ID:        RuleID("rule_" + uuid.NewString()),
		Name:      "Untitled Rule",
		Type:      RuleFixedAmount,
		Trigger:   TriggerManual,
		Priority:  100,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
		Config: RuleConfig{
			SourceType: SourceUnassigned,
			TargetType: TargetEnvelope,
			Amount:     Zero(),
			Percentage: decimal.Zero,
		},
	}
}

// NewDefaultCondition returns a freshly-identified condition of the given
// type with zero thresholds.
func NewDefaultCondition(condType ConditionType) Condition {
	return Condition{
		ID:       "condition_" + uuid.NewString(),
		Type:     condType,
		Value:    Zero(),
		Operator: OpGreaterThan,
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateRule checks a rule configuration for authoring errors. It
// returns every problem found, not just the first.
func ValidateRule(rule Rule) []string {
	var errs []string

	if strings.TrimSpace(rule.Name) == "" {
		errs = append(errs, "rule name is required")
	}
	if !containsRuleType(rule.Type) {
		errs = append(errs, "valid rule type is required")
	}
	if !containsTriggerType(rule.Trigger) {
		errs = append(errs, "valid trigger type is required")
	}

	switch rule.Type {
	case RuleFixedAmount:
		if !rule.Config.Amount.IsPositive() {
			errs = append(errs, "fixed amount rules require a positive amount")
		}
	case RulePercentage:
		pct := rule.Config.Percentage
		if !pct.IsPositive() || pct.GreaterThan(decimal.NewFromInt(100)) {
			errs = append(errs, "percentage rules require a percentage between 0 and 100")
		}
	case RuleConditional:
		if len(rule.Config.Conditions) == 0 {
			errs = append(errs, "conditional rules require at least one condition")
		}
	case RulePriorityFill:
		if rule.Config.TargetID == "" {
			errs = append(errs, "priority fill rules require a target envelope")
		}
	}

	if rule.Config.TargetType == TargetEnvelope && rule.Config.TargetID == "" {
		errs = append(errs, "single envelope rules require a target envelope")
	}
	if rule.Config.TargetType == TargetMultiple && len(rule.Config.TargetIDs) == 0 {
		errs = append(errs, "multiple envelope rules require at least one target envelope")
	}

	for i, cond := range rule.Config.Conditions {
		for _, msg := range ValidateCondition(cond) {
			errs = append(errs, fmt.Sprintf("condition %d: %s", i+1, msg))
		}
	}

	return errs
}

// ValidateCondition checks a single condition configuration.
func ValidateCondition(cond Condition) []string {
	var errs []string

	if !containsConditionType(cond.Type) {
		errs = append(errs, "valid condition type is required")
		return errs
	}

	switch cond.Type {
	case ConditionBalanceLessThan, ConditionBalanceGreaterThan, ConditionUnassignedAbove:
		if cond.Value.IsNegative() {
			errs = append(errs, "balance conditions require a non-negative value")
		}

	case ConditionDateRange:
		if cond.StartDate == nil || cond.EndDate == nil {
			errs = append(errs, "date range conditions require both start and end dates")
		} else if !cond.StartDate.Before(*cond.EndDate) {
			errs = append(errs, "start date must be before end date")
		}

	case ConditionTransactionAmount:
		if !containsCompareOp(cond.Operator) {
			errs = append(errs, "transaction amount conditions require a valid operator")
		}
	}

	return errs
}

func containsRuleType(t RuleType) bool {
	for _, v := range RuleTypes() {
		if v == t {
			return true
		}
	}
	return false
}

func containsTriggerType(t TriggerType) bool {
	for _, v := range TriggerTypes() {
		if v == t {
			return true
		}
	}
	return false
}

func containsConditionType(t ConditionType) bool {
	for _, v := range ConditionTypes() {
		if v == t {
			return true
		}
	}
	return false
}

func containsCompareOp(op CompareOp) bool {
	for _, v := range CompareOps() {
		if v == op {
			return true
		}
	}
	return false
}

// =============================================================================
// FILTERING & STATISTICS
// =============================================================================

// RuleFilters narrows a rule list. Zero-value fields are ignored.
type RuleFilters struct {
	Enabled *bool
	Type    RuleType
	Trigger TriggerType
	Search  string // Case-insensitive match on name/description
}

// FilterRules returns the rules matching every set filter.
func FilterRules(rules []Rule, filters RuleFilters) []Rule {
	filtered := make([]Rule, 0, len(rules))
	search := strings.ToLower(filters.Search)

	for _, rule := range rules {
		if filters.Enabled != nil && rule.Enabled != *filters.Enabled {
			continue
		}
		if filters.Type != "" && rule.Type != filters.Type {
			continue
		}
		if filters.Trigger != "" && rule.Trigger != filters.Trigger {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(rule.Name), search) &&
			!strings.Contains(strings.ToLower(rule.Description), search) {
			continue
		}
		filtered = append(filtered, rule)
	}
	return filtered
}

// RuleStatistics summarizes a rule list for dashboards.
type RuleStatistics struct {
	Total           int
	Enabled         int
	Disabled        int
	ByType          map[RuleType]int
	ByTrigger       map[TriggerType]int
	TotalExecutions int
	LastExecuted    *time.Time // Most recent execution across all rules
}

// ComputeRuleStatistics aggregates counts and execution totals.
func ComputeRuleStatistics(rules []Rule) RuleStatistics {
	stats := RuleStatistics{
		Total:     len(rules),
		ByType:    make(map[RuleType]int),
		ByTrigger: make(map[TriggerType]int),
	}

	for _, rule := range rules {
		if rule.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
		stats.ByType[rule.Type]++
		stats.ByTrigger[rule.Trigger]++
		stats.TotalExecutions += rule.ExecutionCount

		if rule.LastExecuted != nil {
			if stats.LastExecuted == nil || rule.LastExecuted.After(*stats.LastExecuted) {
				stats.LastExecuted = rule.LastExecuted
			}
		}
	}
	return stats
}

// =============================================================================
// DESCRIPTIONS
// =============================================================================

// DescribeRule renders a short human-readable action summary.
func DescribeRule(rule Rule) string {
	switch rule.Type {
	case RuleFixedAmount:
		return "Move $" + rule.Config.Amount.String()
	case RulePercentage:
		return "Move " + rule.Config.Percentage.String() + "%"
	case RulePriorityFill:
		return "Fill to monthly target"
	case RuleSplitRemainder:
		return "Split remaining funds"
	case RuleConditional:
		return fmt.Sprintf("If %d condition(s) met", len(rule.Config.Conditions))
	default:
		return string(rule.Type)
	}
}

// DescribeCondition renders a condition for display, resolving envelope
// names where possible.
func DescribeCondition(cond Condition, envelopes []EnvelopeSnapshot) string {
	name := func(id EnvelopeID) string {
		for _, e := range envelopes {
			if e.ID == id && e.Name != "" {
				return e.Name
			}
		}
		return string(id)
	}

	switch cond.Type {
	case ConditionBalanceLessThan:
		if cond.EnvelopeID != "" {
			return name(cond.EnvelopeID) + " balance < $" + cond.Value.String()
		}
		return "Unassigned cash < $" + cond.Value.String()

	case ConditionBalanceGreaterThan:
		if cond.EnvelopeID != "" {
			return name(cond.EnvelopeID) + " balance > $" + cond.Value.String()
		}
		return "Unassigned cash > $" + cond.Value.String()

	case ConditionUnassignedAbove:
		return "Unassigned cash > $" + cond.Value.String()

	case ConditionDateRange:
		if cond.StartDate == nil || cond.EndDate == nil {
			return "Any date"
		}
		return "Between " + cond.StartDate.Format("2006-01-02") + " and " + cond.EndDate.Format("2006-01-02")

	case ConditionTransactionAmount:
		symbols := map[CompareOp]string{
			OpGreaterThan:        ">",
			OpLessThan:           "<",
			OpEquals:             "=",
			OpGreaterThanOrEqual: ">=",
			OpLessThanOrEqual:    "<=",
		}
		sym, ok := symbols[cond.Operator]
		if !ok {
			sym = string(cond.Operator)
		}
		return "Transaction amount " + sym + " $" + cond.Value.String()

	default:
		return "Unknown condition"
	}
}
