/*
Package factory provides JSON to Go rule conversion.

PURPOSE:
  Converts JSON rule definitions into engine.Rule values and back. This
  enables rule configuration without code changes - users define funding
  rules in the UI, the backend stores them as JSON, and the factory
  creates the proper Go structs for simulation.

WHY JSON?
  - Rules are authored in a web UI, not in code
  - Easy database storage of rule configs
  - The wire format stays stable while engine types evolve

JSON SCHEMA:
  {
    "id": "rule_abc",
    "name": "Rent first",
    "type": "fixed_amount",
    "trigger": "income_detected",
    "priority": 1,
    "enabled": true,
    "createdAt": "2024-01-15T00:00:00Z",
    "config": {
      "sourceType": "unassigned",
      "targetType": "envelope",
      "targetId": "env_rent",
      "amount": 1200.00,
      "conditions": [
        {"type": "balance_less_than", "envelopeId": "env_rent", "value": 1200}
      ]
    }
  }

KEY FEATURES:
  - Sets sensible defaults (fresh id, priority 100, enabled)
  - Amounts cross the boundary as floats; the engine holds decimals
  - Timestamps parse fail-open: a bad lastExecuted reads as never executed
  - Validates parsed rules with engine.ValidateRule before use

USAGE:
  f := factory.NewRuleFactory()

  rule, err := f.ParseRule(jsonStr)
  ...
  jsonStr, err = f.MarshalRule(rule)

SEE ALSO:
  - engine/types.go: Rule type definition
  - store/sqlite: Persists rules as config JSON
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/funding-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a funding rule.
type RuleJSON struct {
	ID             string     `json:"id,omitempty"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Type           string     `json:"type"`
	Trigger        string     `json:"trigger"`
	Priority       *int       `json:"priority,omitempty"` // Default 100
	Enabled        *bool      `json:"enabled,omitempty"`  // Default true
	CreatedAt      string     `json:"createdAt,omitempty"`
	LastExecuted   string     `json:"lastExecuted,omitempty"`
	ExecutionCount int        `json:"executionCount,omitempty"`
	Config         ConfigJSON `json:"config"`
}

// ConfigJSON represents rule configuration.
type ConfigJSON struct {
	SourceType string          `json:"sourceType,omitempty"` // unassigned, envelope, income
	SourceID   string          `json:"sourceId,omitempty"`
	TargetType string          `json:"targetType,omitempty"` // envelope, multiple
	TargetID   string          `json:"targetId,omitempty"`
	TargetIDs  []string        `json:"targetIds,omitempty"`
	Amount     float64         `json:"amount,omitempty"`
	Percentage float64         `json:"percentage,omitempty"`
	Conditions []ConditionJSON `json:"conditions,omitempty"`
	Schedule   map[string]any  `json:"schedule,omitempty"`
}

// ConditionJSON represents a rule condition.
type ConditionJSON struct {
	ID         string  `json:"id,omitempty"`
	Type       string  `json:"type"`
	EnvelopeID string  `json:"envelopeId,omitempty"`
	Value      float64 `json:"value,omitempty"`
	Operator   string  `json:"operator,omitempty"`
	StartDate  string  `json:"startDate,omitempty"`
	EndDate    string  `json:"endDate,omitempty"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON rules to engine values.
type RuleFactory struct{}

// NewRuleFactory creates a new rule factory.
func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRule parses a JSON string into an engine.Rule.
func (f *RuleFactory) ParseRule(jsonStr string) (engine.Rule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return engine.Rule{}, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// ParseRules parses a JSON array of rules.
func (f *RuleFactory) ParseRules(jsonStr string) ([]engine.Rule, error) {
	var rjs []RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rjs); err != nil {
		return nil, fmt.Errorf("failed to parse rules JSON: %w", err)
	}

	rules := make([]engine.Rule, 0, len(rjs))
	for i, rj := range rjs {
		rule, err := f.FromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// FromJSON converts RuleJSON to an engine.Rule, applying defaults for
// missing fields.
func (f *RuleFactory) FromJSON(rj RuleJSON) (engine.Rule, error) {
	rule := engine.NewDefaultRule()

	if rj.ID != "" {
		rule.ID = engine.RuleID(rj.ID)
	}
	rule.Name = rj.Name
	rule.Description = rj.Description
	rule.Type = engine.RuleType(rj.Type)
	rule.Trigger = engine.TriggerType(rj.Trigger)
	if rj.Priority != nil {
		rule.Priority = *rj.Priority
	}
	if rj.Enabled != nil {
		rule.Enabled = *rj.Enabled
	}
	if t, ok := parseTime(rj.CreatedAt); ok {
		rule.CreatedAt = t
	}
	if t, ok := parseTime(rj.LastExecuted); ok {
		rule.LastExecuted = &t
	}
	rule.ExecutionCount = rj.ExecutionCount

	config, err := f.configFromJSON(rj.Config)
	if err != nil {
		return engine.Rule{}, err
	}
	rule.Config = config

	if problems := engine.ValidateRule(rule); len(problems) > 0 {
		return engine.Rule{}, &engine.RuleValidationError{
			RuleID:   rule.ID,
			Problems: problems,
		}
	}
	return rule, nil
}

func (f *RuleFactory) configFromJSON(cj ConfigJSON) (engine.RuleConfig, error) {
	config := engine.RuleConfig{
		SourceType: parseSourceType(cj.SourceType),
		SourceID:   engine.EnvelopeID(cj.SourceID),
		TargetType: parseTargetType(cj.TargetType),
		TargetID:   engine.EnvelopeID(cj.TargetID),
		Amount:     engine.NewMoney(cj.Amount),
		Percentage: decimal.NewFromFloat(cj.Percentage),
		Schedule:   cj.Schedule,
	}

	for _, id := range cj.TargetIDs {
		config.TargetIDs = append(config.TargetIDs, engine.EnvelopeID(id))
	}
	for _, condJSON := range cj.Conditions {
		config.Conditions = append(config.Conditions, f.conditionFromJSON(condJSON))
	}
	return config, nil
}

func (f *RuleFactory) conditionFromJSON(cj ConditionJSON) engine.Condition {
	cond := engine.NewDefaultCondition(engine.ConditionType(cj.Type))
	if cj.ID != "" {
		cond.ID = cj.ID
	}
	cond.EnvelopeID = engine.EnvelopeID(cj.EnvelopeID)
	cond.Value = engine.NewMoney(cj.Value)
	if cj.Operator != "" {
		cond.Operator = engine.CompareOp(cj.Operator)
	}
	if t, ok := parseTime(cj.StartDate); ok {
		cond.StartDate = &t
	}
	if t, ok := parseTime(cj.EndDate); ok {
		cond.EndDate = &t
	}
	return cond
}

// ToJSON converts an engine.Rule to its JSON representation.
func (f *RuleFactory) ToJSON(rule engine.Rule) RuleJSON {
	priority := rule.Priority
	enabled := rule.Enabled

	rj := RuleJSON{
		ID:             string(rule.ID),
		Name:           rule.Name,
		Description:    rule.Description,
		Type:           string(rule.Type),
		Trigger:        string(rule.Trigger),
		Priority:       &priority,
		Enabled:        &enabled,
		ExecutionCount: rule.ExecutionCount,
		Config:         f.configToJSON(rule.Config),
	}
	if !rule.CreatedAt.IsZero() {
		rj.CreatedAt = rule.CreatedAt.UTC().Format(time.RFC3339)
	}
	if rule.LastExecuted != nil {
		rj.LastExecuted = rule.LastExecuted.UTC().Format(time.RFC3339)
	}
	return rj
}

func (f *RuleFactory) configToJSON(config engine.RuleConfig) ConfigJSON {
	cj := ConfigJSON{
		SourceType: string(config.SourceType),
		SourceID:   string(config.SourceID),
		TargetType: string(config.TargetType),
		TargetID:   string(config.TargetID),
		Amount:     config.Amount.Float64(),
		Schedule:   config.Schedule,
	}
	cj.Percentage, _ = config.Percentage.Float64()

	for _, id := range config.TargetIDs {
		cj.TargetIDs = append(cj.TargetIDs, string(id))
	}
	for _, cond := range config.Conditions {
		condJSON := ConditionJSON{
			ID:         cond.ID,
			Type:       string(cond.Type),
			EnvelopeID: string(cond.EnvelopeID),
			Value:      cond.Value.Float64(),
			Operator:   string(cond.Operator),
		}
		if cond.StartDate != nil {
			condJSON.StartDate = cond.StartDate.UTC().Format(time.RFC3339)
		}
		if cond.EndDate != nil {
			condJSON.EndDate = cond.EndDate.UTC().Format(time.RFC3339)
		}
		cj.Conditions = append(cj.Conditions, condJSON)
	}
	return cj
}

// MarshalRule serializes a rule to a JSON string.
func (f *RuleFactory) MarshalRule(rule engine.Rule) (string, error) {
	b, err := json.Marshal(f.ToJSON(rule))
	if err != nil {
		return "", fmt.Errorf("failed to marshal rule: %w", err)
	}
	return string(b), nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseSourceType(s string) engine.SourceType {
	switch s {
	case "envelope":
		return engine.SourceEnvelope
	case "income":
		return engine.SourceIncome
	default:
		return engine.SourceUnassigned
	}
}

func parseTargetType(s string) engine.TargetType {
	if s == "multiple" {
		return engine.TargetMultiple
	}
	return engine.TargetEnvelope
}

// parseTime accepts RFC 3339 timestamps and bare dates. Anything else,
// the empty string included, reads as absent; the engine treats missing
// timestamps as "never", so a bad value fails open rather than wedging
// a rule.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
