package engine_test

import (
	"testing"
	"time"

	"github.com/warp/funding-engine/engine"
)

func fixedRule(id string, priority int, amount float64, target string) engine.Rule {
	return engine.Rule{
		ID:        engine.RuleID(id),
		Name:      id,
		Type:      engine.RuleFixedAmount,
		Trigger:   engine.TriggerManual,
		Priority:  priority,
		Enabled:   true,
		CreatedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Config: engine.RuleConfig{
			SourceType: engine.SourceUnassigned,
			TargetType: engine.TargetEnvelope,
			TargetID:   engine.EnvelopeID(target),
			Amount:     money(amount),
		},
	}
}

func TestShouldExecute_DisabledNeverRuns(t *testing.T) {
	rule := fixedRule("r1", 1, 100, "env1")
	rule.Enabled = false

	if engine.ShouldExecute(rule, manualContext(1000)) {
		t.Error("disabled rule should never execute")
	}
}

func TestShouldExecute_TriggerCompatibility(t *testing.T) {
	// GIVEN: A weekly rule and an income-triggered run
	// THEN: The rule is skipped; only matching or manual triggers pass

	weekly := fixedRule("weekly", 1, 100, "env1")
	weekly.Trigger = engine.TriggerWeekly

	incomeCtx := manualContext(1000)
	incomeCtx.Trigger = engine.TriggerIncomeDetected

	if engine.ShouldExecute(weekly, incomeCtx) {
		t.Error("weekly rule should not execute on an income-triggered run")
	}

	weeklyCtx := manualContext(1000)
	weeklyCtx.Trigger = engine.TriggerWeekly
	if !engine.ShouldExecute(weekly, weeklyCtx) {
		t.Error("weekly rule should execute on a weekly run")
	}

	// Manual rules always pass the trigger check, whatever invoked the run.
	manual := fixedRule("manual", 1, 100, "env1")
	if !engine.ShouldExecute(manual, incomeCtx) {
		t.Error("manual rule should execute regardless of run trigger")
	}
}

func TestShouldExecute_ScheduleGatesTimeBasedTriggers(t *testing.T) {
	rule := fixedRule("weekly", 1, 100, "env1")
	rule.Trigger = engine.TriggerWeekly

	ctx := manualContext(1000)
	ctx.Trigger = engine.TriggerWeekly

	// Executed 3 days ago: not due yet.
	rule.LastExecuted = timePtr(ctx.AsOf.AddDate(0, 0, -3))
	if engine.ShouldExecute(rule, ctx) {
		t.Error("weekly rule executed 3 days ago should not be due")
	}

	// Executed 8 days ago: due.
	rule.LastExecuted = timePtr(ctx.AsOf.AddDate(0, 0, -8))
	if !engine.ShouldExecute(rule, ctx) {
		t.Error("weekly rule executed 8 days ago should be due")
	}
}

func TestShouldExecute_ConditionalDefersToConditions(t *testing.T) {
	rule := fixedRule("cond", 1, 100, "env1")
	rule.Type = engine.RuleConditional

	ctx := manualContext(500)

	// Empty condition list: vacuously true.
	if !engine.ShouldExecute(rule, ctx) {
		t.Error("conditional rule with no conditions should pass eligibility")
	}

	rule.Config.Conditions = []engine.Condition{
		{Type: engine.ConditionUnassignedAbove, Value: money(1000)},
	}
	if engine.ShouldExecute(rule, ctx) {
		t.Error("conditional rule with failing condition should be skipped")
	}

	rule.Config.Conditions = []engine.Condition{
		{Type: engine.ConditionUnassignedAbove, Value: money(100)},
	}
	if !engine.ShouldExecute(rule, ctx) {
		t.Error("conditional rule with passing condition should execute")
	}
}
