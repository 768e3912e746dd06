package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/funding-engine/engine"
)

func TestParseRule_FullDefinition(t *testing.T) {
	f := NewRuleFactory()

	rule, err := f.ParseRule(`{
		"id": "rule_rent",
		"name": "Rent first",
		"description": "Cover rent before anything else",
		"type": "fixed_amount",
		"trigger": "income_detected",
		"priority": 1,
		"enabled": true,
		"createdAt": "2024-01-15T00:00:00Z",
		"lastExecuted": "2024-06-01T09:30:00Z",
		"executionCount": 5,
		"config": {
			"sourceType": "unassigned",
			"targetType": "envelope",
			"targetId": "env_rent",
			"amount": 1200.50
		}
	}`)
	require.NoError(t, err)

	assert.Equal(t, engine.RuleID("rule_rent"), rule.ID)
	assert.Equal(t, "Rent first", rule.Name)
	assert.Equal(t, engine.RuleFixedAmount, rule.Type)
	assert.Equal(t, engine.TriggerIncomeDetected, rule.Trigger)
	assert.Equal(t, 1, rule.Priority)
	assert.True(t, rule.Enabled)
	assert.Equal(t, 5, rule.ExecutionCount)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), rule.CreatedAt)
	require.NotNil(t, rule.LastExecuted)
	assert.Equal(t, engine.EnvelopeID("env_rent"), rule.Config.TargetID)
	assert.True(t, rule.Config.Amount.Equal(engine.NewMoney(1200.50)))
}

func TestParseRule_Defaults(t *testing.T) {
	f := NewRuleFactory()

	rule, err := f.ParseRule(`{
		"name": "Minimal",
		"type": "fixed_amount",
		"trigger": "manual",
		"config": {"targetId": "env_a", "amount": 50}
	}`)
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID, "missing id gets generated")
	assert.Equal(t, 100, rule.Priority, "missing priority defaults to 100")
	assert.True(t, rule.Enabled, "missing enabled defaults to true")
	assert.Equal(t, engine.SourceUnassigned, rule.Config.SourceType)
	assert.Equal(t, engine.TargetEnvelope, rule.Config.TargetType)
	assert.Nil(t, rule.LastExecuted)
}

func TestParseRule_ExplicitDisabledSurvives(t *testing.T) {
	f := NewRuleFactory()

	rule, err := f.ParseRule(`{
		"name": "Paused",
		"type": "fixed_amount",
		"trigger": "manual",
		"enabled": false,
		"priority": 0,
		"config": {"targetId": "env_a", "amount": 50}
	}`)
	require.NoError(t, err)

	assert.False(t, rule.Enabled, "enabled:false must not be overwritten by the default")
	assert.Equal(t, 0, rule.Priority, "priority 0 is a legitimate value")
}

func TestParseRule_InvalidConfigRejected(t *testing.T) {
	f := NewRuleFactory()

	_, err := f.ParseRule(`{
		"name": "Broken",
		"type": "fixed_amount",
		"trigger": "manual",
		"config": {"targetId": "env_a", "amount": 0}
	}`)
	require.Error(t, err)

	var verr *engine.RuleValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Problems)
}

func TestParseRule_MalformedJSON(t *testing.T) {
	f := NewRuleFactory()
	_, err := f.ParseRule(`{not json`)
	require.Error(t, err)
}

func TestParseRule_BadLastExecutedFailsOpen(t *testing.T) {
	// A corrupt timestamp must not wedge the rule: it parses as "never
	// executed" and the schedule check treats the rule as due.
	f := NewRuleFactory()

	rule, err := f.ParseRule(`{
		"name": "Weekly sweep",
		"type": "fixed_amount",
		"trigger": "weekly",
		"lastExecuted": "not-a-date",
		"config": {"targetId": "env_a", "amount": 50}
	}`)
	require.NoError(t, err)
	assert.Nil(t, rule.LastExecuted)
}

func TestParseRule_Conditions(t *testing.T) {
	f := NewRuleFactory()

	rule, err := f.ParseRule(`{
		"name": "Conditional top-up",
		"type": "conditional",
		"trigger": "manual",
		"config": {
			"targetId": "env_rent",
			"conditions": [
				{"type": "balance_less_than", "envelopeId": "env_rent", "value": 1200},
				{"type": "date_range", "startDate": "2024-06-01", "endDate": "2024-06-30T00:00:00Z"}
			]
		}
	}`)
	require.NoError(t, err)
	require.Len(t, rule.Config.Conditions, 2)

	balance := rule.Config.Conditions[0]
	assert.Equal(t, engine.ConditionBalanceLessThan, balance.Type)
	assert.Equal(t, engine.EnvelopeID("env_rent"), balance.EnvelopeID)
	assert.True(t, balance.Value.Equal(engine.NewMoney(1200)))
	assert.NotEmpty(t, balance.ID, "conditions get generated ids")

	dates := rule.Config.Conditions[1]
	require.NotNil(t, dates.StartDate)
	require.NotNil(t, dates.EndDate)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *dates.StartDate)
}

func TestParseRules_Array(t *testing.T) {
	f := NewRuleFactory()

	rules, err := f.ParseRules(`[
		{"name": "A", "type": "fixed_amount", "trigger": "manual", "config": {"targetId": "env_a", "amount": 10}},
		{"name": "B", "type": "percentage", "trigger": "manual", "config": {"targetId": "env_b", "percentage": 25}}
	]`)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, engine.RulePercentage, rules[1].Type)
}

func TestRoundTrip_PreservesRule(t *testing.T) {
	f := NewRuleFactory()

	original := engine.NewDefaultRule()
	original.Name = "Split the rest"
	original.Type = engine.RuleSplitRemainder
	original.Trigger = engine.TriggerPayday
	original.Priority = 50
	original.Config.TargetType = engine.TargetMultiple
	original.Config.TargetIDs = []engine.EnvelopeID{"env_a", "env_b"}
	last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	original.LastExecuted = &last

	jsonStr, err := f.MarshalRule(original)
	require.NoError(t, err)

	parsed, err := f.ParseRule(jsonStr)
	require.NoError(t, err)

	assert.Equal(t, original.ID, parsed.ID)
	assert.Equal(t, original.Name, parsed.Name)
	assert.Equal(t, original.Type, parsed.Type)
	assert.Equal(t, original.Trigger, parsed.Trigger)
	assert.Equal(t, original.Priority, parsed.Priority)
	assert.Equal(t, original.Config.TargetIDs, parsed.Config.TargetIDs)
	require.NotNil(t, parsed.LastExecuted)
	assert.True(t, parsed.LastExecuted.Equal(last))
}
