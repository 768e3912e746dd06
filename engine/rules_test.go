package engine_test

import (
	"strings"
	"testing"
	"time"

	"github.com/warp/funding-engine/engine"
)

func TestSortRulesByPriority_DoesNotMutateInput(t *testing.T) {
	a := fixedRule("a", 5, 100, "env1")
	b := fixedRule("b", 1, 100, "env1")
	rules := []engine.Rule{a, b}

	sorted := engine.SortRulesByPriority(rules)
	if sorted[0].ID != "b" || sorted[1].ID != "a" {
		t.Errorf("expected [b a], got [%s %s]", sorted[0].ID, sorted[1].ID)
	}
	if rules[0].ID != "a" {
		t.Error("input slice must not be reordered")
	}
}

func TestNewDefaultRule(t *testing.T) {
	rule := engine.NewDefaultRule()

	if !strings.HasPrefix(string(rule.ID), "rule_") {
		t.Errorf("expected rule_ prefixed id, got %s", rule.ID)
	}
	if rule.Type != engine.RuleFixedAmount || rule.Trigger != engine.TriggerManual {
		t.Error("defaults should be a manual fixed-amount rule")
	}
	if rule.Priority != 100 || !rule.Enabled {
		t.Error("defaults should be priority 100 and enabled")
	}

	other := engine.NewDefaultRule()
	if rule.ID == other.ID {
		t.Error("each default rule gets a fresh id")
	}
}

func TestValidateRule_CollectsAllProblems(t *testing.T) {
	// A nameless rule with a bogus type and trigger: every problem reported.
	bad := engine.Rule{
		Name:    "   ",
		Type:    engine.RuleType("nonsense"),
		Trigger: engine.TriggerType("whenever"),
	}

	errs := engine.ValidateRule(bad)
	if len(errs) < 3 {
		t.Errorf("expected at least 3 problems, got %v", errs)
	}
}

func TestValidateRule_TypeSpecific(t *testing.T) {
	cases := []struct {
		label  string
		mutate func(*engine.Rule)
		substr string
	}{
		{
			"fixed amount must be positive",
			func(r *engine.Rule) { r.Config.Amount = engine.Zero() },
			"positive amount",
		},
		{
			"percentage over 100",
			func(r *engine.Rule) {
				r.Type = engine.RulePercentage
				r.Config.Percentage = pct(150)
			},
			"between 0 and 100",
		},
		{
			"conditional needs conditions",
			func(r *engine.Rule) { r.Type = engine.RuleConditional },
			"at least one condition",
		},
		{
			"priority fill needs a target",
			func(r *engine.Rule) {
				r.Type = engine.RulePriorityFill
				r.Config.TargetID = ""
			},
			"target envelope",
		},
		{
			"multi-target needs target ids",
			func(r *engine.Rule) {
				r.Type = engine.RuleSplitRemainder
				r.Config.TargetType = engine.TargetMultiple
				r.Config.TargetID = ""
				r.Config.TargetIDs = nil
			},
			"at least one target",
		},
	}

	for _, c := range cases {
		rule := fixedRule("r1", 1, 100, "env1")
		c.mutate(&rule)

		errs := engine.ValidateRule(rule)
		var found bool
		for _, e := range errs {
			if strings.Contains(e, c.substr) {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: expected an error containing %q, got %v", c.label, c.substr, errs)
		}
	}
}

func TestValidateRule_ValidRulePasses(t *testing.T) {
	rule := fixedRule("r1", 1, 100, "env1")
	if errs := engine.ValidateRule(rule); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateCondition(t *testing.T) {
	june1 := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	june30 := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

	// Date range missing a bound
	cond := engine.Condition{Type: engine.ConditionDateRange, StartDate: timePtr(june1)}
	if errs := engine.ValidateCondition(cond); len(errs) == 0 {
		t.Error("date range without an end should be invalid")
	}

	// Inverted range
	cond.EndDate = timePtr(june1.AddDate(0, 0, -5))
	if errs := engine.ValidateCondition(cond); len(errs) == 0 {
		t.Error("inverted date range should be invalid")
	}

	// Good range
	cond.EndDate = timePtr(june30)
	if errs := engine.ValidateCondition(cond); len(errs) != 0 {
		t.Errorf("valid date range should pass, got %v", errs)
	}

	// Transaction amount with a bad operator
	tx := engine.Condition{
		Type:     engine.ConditionTransactionAmount,
		Operator: engine.CompareOp("vibes"),
		Value:    money(100),
	}
	if errs := engine.ValidateCondition(tx); len(errs) == 0 {
		t.Error("unknown operator should be invalid")
	}

	// Negative balance threshold
	neg := engine.Condition{Type: engine.ConditionBalanceLessThan, Value: money(-5)}
	if errs := engine.ValidateCondition(neg); len(errs) == 0 {
		t.Error("negative balance threshold should be invalid")
	}
}

func TestValidateRule_ConditionErrorsArePrefixed(t *testing.T) {
	rule := fixedRule("r1", 1, 100, "env1")
	rule.Type = engine.RuleConditional
	rule.Config.Conditions = []engine.Condition{
		{Type: engine.ConditionUnassignedAbove, Value: money(100)},
		{Type: engine.ConditionType("bogus")},
	}

	errs := engine.ValidateRule(rule)
	var found bool
	for _, e := range errs {
		if strings.HasPrefix(e, "condition 2:") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a 'condition 2:' prefixed error, got %v", errs)
	}
}

func TestFilterRules(t *testing.T) {
	enabled := fixedRule("groceries", 1, 100, "env1")
	enabled.Name = "Groceries top-up"
	disabled := fixedRule("vacation", 2, 100, "env2")
	disabled.Name = "Vacation fund"
	disabled.Enabled = false
	weekly := fixedRule("savings", 3, 100, "env3")
	weekly.Name = "Savings sweep"
	weekly.Trigger = engine.TriggerWeekly
	weekly.Type = engine.RulePercentage

	rules := []engine.Rule{enabled, disabled, weekly}

	on := true
	if got := engine.FilterRules(rules, engine.RuleFilters{Enabled: &on}); len(got) != 2 {
		t.Errorf("enabled filter: expected 2, got %d", len(got))
	}
	if got := engine.FilterRules(rules, engine.RuleFilters{Type: engine.RulePercentage}); len(got) != 1 {
		t.Errorf("type filter: expected 1, got %d", len(got))
	}
	if got := engine.FilterRules(rules, engine.RuleFilters{Trigger: engine.TriggerWeekly}); len(got) != 1 {
		t.Errorf("trigger filter: expected 1, got %d", len(got))
	}
	if got := engine.FilterRules(rules, engine.RuleFilters{Search: "VACATION"}); len(got) != 1 {
		t.Errorf("search is case-insensitive: expected 1, got %d", len(got))
	}
	if got := engine.FilterRules(rules, engine.RuleFilters{}); len(got) != 3 {
		t.Errorf("empty filters pass everything: expected 3, got %d", len(got))
	}
}

func TestComputeRuleStatistics(t *testing.T) {
	early := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	a := fixedRule("a", 1, 100, "env1")
	a.ExecutionCount = 3
	a.LastExecuted = timePtr(early)
	b := fixedRule("b", 2, 100, "env2")
	b.Type = engine.RulePercentage
	b.ExecutionCount = 5
	b.LastExecuted = timePtr(late)
	c := fixedRule("c", 3, 100, "env3")
	c.Enabled = false

	stats := engine.ComputeRuleStatistics([]engine.Rule{a, b, c})

	if stats.Total != 3 || stats.Enabled != 2 || stats.Disabled != 1 {
		t.Errorf("counts wrong: %+v", stats)
	}
	if stats.ByType[engine.RuleFixedAmount] != 2 || stats.ByType[engine.RulePercentage] != 1 {
		t.Errorf("by-type counts wrong: %v", stats.ByType)
	}
	if stats.TotalExecutions != 8 {
		t.Errorf("expected 8 total executions, got %d", stats.TotalExecutions)
	}
	if stats.LastExecuted == nil || !stats.LastExecuted.Equal(late) {
		t.Errorf("expected most recent execution %v, got %v", late, stats.LastExecuted)
	}
}

func TestDescribeRule(t *testing.T) {
	fixed := fixedRule("r1", 1, 250, "env1")
	if got := engine.DescribeRule(fixed); got != "Move $250.00" {
		t.Errorf("fixed: got %q", got)
	}

	pctRule := fixedRule("r2", 1, 0, "env1")
	pctRule.Type = engine.RulePercentage
	pctRule.Config.Percentage = pct(30)
	if got := engine.DescribeRule(pctRule); got != "Move 30%" {
		t.Errorf("percentage: got %q", got)
	}

	fill := fixedRule("r3", 1, 0, "env1")
	fill.Type = engine.RulePriorityFill
	if got := engine.DescribeRule(fill); got != "Fill to monthly target" {
		t.Errorf("priority fill: got %q", got)
	}
}

func TestDescribeCondition(t *testing.T) {
	envelopes := []engine.EnvelopeSnapshot{
		{ID: "env_rent", Name: "Rent", CurrentBalance: engine.Zero()},
	}

	balance := engine.Condition{
		Type:       engine.ConditionBalanceLessThan,
		EnvelopeID: "env_rent",
		Value:      money(500),
	}
	if got := engine.DescribeCondition(balance, envelopes); got != "Rent balance < $500.00" {
		t.Errorf("balance: got %q", got)
	}

	unassigned := engine.Condition{Type: engine.ConditionUnassignedAbove, Value: money(1000)}
	if got := engine.DescribeCondition(unassigned, envelopes); got != "Unassigned cash > $1000.00" {
		t.Errorf("unassigned: got %q", got)
	}

	tx := engine.Condition{
		Type:     engine.ConditionTransactionAmount,
		Operator: engine.OpGreaterThanOrEqual,
		Value:    money(2000),
	}
	if got := engine.DescribeCondition(tx, envelopes); got != "Transaction amount >= $2000.00" {
		t.Errorf("transaction: got %q", got)
	}
}
