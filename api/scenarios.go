/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates envelopes, funding
	rules, and a cash pool that demonstrate specific features.

AVAILABLE SCENARIOS:

	fresh-start:       Two fixed-amount rules against a small cash pool
	payday-split:      Percentage of income + split remainder on payday
	conditional-topup: Balance thresholds gating which rules are eligible
	priority-cascade:  Priority-fill rules competing for limited cash

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create envelopes
 3. Create funding rules with priorities
 4. Seed the unassigned cash pool

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "payday-split"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - factory/rule.go: Rule JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/funding-engine/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Two fixed-amount rules funding rent and groceries from a small pool",
		Category:    "basics",
	},
	{
		ID:          "payday-split",
		Name:        "Payday Split",
		Description: "Percentage of income to savings, split the remainder across spending envelopes",
		Category:    "income",
	},
	{
		ID:          "conditional-topup",
		Name:        "Conditional Top-Up",
		Description: "Balance thresholds decide which top-up rules are eligible to run",
		Category:    "conditions",
	},
	{
		ID:          "priority-cascade",
		Name:        "Priority Cascade",
		Description: "Priority-fill rules competing for a pool too small to fund everything",
		Category:    "priorities",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	// Find the scenario details
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = "" // Clear current scenario on reset

	var err error
	switch req.ScenarioID {
	case "fresh-start":
		err = h.loadFreshStartScenario(ctx)
	case "payday-split":
		err = h.loadPaydaySplitScenario(ctx)
	case "conditional-topup":
		err = h.loadConditionalTopUpScenario(ctx)
	case "priority-cascade":
		err = h.loadPriorityCascadeScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	// Track the loaded scenario
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all stored data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// scenarioRule builds a rule with a deterministic creation time so the
// execution order within a scenario never depends on load timing.
func scenarioRule(id, name string, ruleType engine.RuleType, trigger engine.TriggerType, priority, seq int) engine.Rule {
	rule := engine.NewDefaultRule()
	rule.ID = engine.RuleID(id)
	rule.Name = name
	rule.Type = ruleType
	rule.Trigger = trigger
	rule.Priority = priority
	rule.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Minute)
	return rule
}

func monthlyTarget(amount float64) *engine.Money {
	m := engine.NewMoney(amount)
	return &m
}

func (h *Handler) saveEnvelopes(ctx context.Context, envelopes []engine.EnvelopeSnapshot) error {
	for _, env := range envelopes {
		if err := h.Store.SaveEnvelope(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) saveRules(ctx context.Context, rules []engine.Rule) error {
	for _, rule := range rules {
		if err := h.Store.SaveRule(ctx, rule); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadFreshStartScenario(ctx context.Context) error {
	// Two envelopes, two fixed-amount rules, enough cash for both.
	envelopes := []engine.EnvelopeSnapshot{
		{ID: "env_rent", Name: "Rent", CurrentBalance: engine.Zero(), MonthlyTarget: monthlyTarget(1200)},
		{ID: "env_groceries", Name: "Groceries", CurrentBalance: engine.Zero(), MonthlyTarget: monthlyTarget(400)},
	}
	if err := h.saveEnvelopes(ctx, envelopes); err != nil {
		return err
	}

	rent := scenarioRule("rule_rent", "Rent first", engine.RuleFixedAmount, engine.TriggerManual, 1, 0)
	rent.Description = "Cover rent before anything else"
	rent.Config.TargetID = "env_rent"
	rent.Config.Amount = engine.NewMoney(1200)

	groceries := scenarioRule("rule_groceries", "Groceries", engine.RuleFixedAmount, engine.TriggerManual, 2, 1)
	groceries.Config.TargetID = "env_groceries"
	groceries.Config.Amount = engine.NewMoney(400)

	if err := h.saveRules(ctx, []engine.Rule{rent, groceries}); err != nil {
		return err
	}

	return h.Store.SetUnassignedCash(ctx, engine.NewMoney(2000))
}

func (h *Handler) loadPaydaySplitScenario(ctx context.Context) error {
	// Income-driven: 20% of each paycheck to savings, fixed rent,
	// then split whatever is left across the spending envelopes.
	envelopes := []engine.EnvelopeSnapshot{
		{ID: "env_savings", Name: "Savings", CurrentBalance: engine.NewMoney(3500)},
		{ID: "env_rent", Name: "Rent", CurrentBalance: engine.Zero(), MonthlyTarget: monthlyTarget(1400)},
		{ID: "env_groceries", Name: "Groceries", CurrentBalance: engine.NewMoney(120), MonthlyTarget: monthlyTarget(500)},
		{ID: "env_dining", Name: "Dining Out", CurrentBalance: engine.NewMoney(40), MonthlyTarget: monthlyTarget(200)},
		{ID: "env_fun", Name: "Fun Money", CurrentBalance: engine.Zero(), MonthlyTarget: monthlyTarget(150)},
	}
	if err := h.saveEnvelopes(ctx, envelopes); err != nil {
		return err
	}

	savings := scenarioRule("rule_savings", "Pay yourself first", engine.RulePercentage, engine.TriggerIncomeDetected, 1, 0)
	savings.Description = "20% of every paycheck straight to savings"
	savings.Config.SourceType = engine.SourceIncome
	savings.Config.TargetID = "env_savings"
	savings.Config.Percentage = decimal.NewFromInt(20)

	rent := scenarioRule("rule_rent", "Rent", engine.RuleFixedAmount, engine.TriggerIncomeDetected, 2, 1)
	rent.Config.TargetID = "env_rent"
	rent.Config.Amount = engine.NewMoney(1400)

	split := scenarioRule("rule_split", "Split the rest", engine.RuleSplitRemainder, engine.TriggerIncomeDetected, 10, 2)
	split.Description = "Whatever is left goes evenly to the spending envelopes"
	split.Config.TargetType = engine.TargetMultiple
	split.Config.TargetIDs = []engine.EnvelopeID{"env_groceries", "env_dining", "env_fun"}

	if err := h.saveRules(ctx, []engine.Rule{savings, rent, split}); err != nil {
		return err
	}

	return h.Store.SetUnassignedCash(ctx, engine.NewMoney(250))
}

func (h *Handler) loadConditionalTopUpScenario(ctx context.Context) error {
	// Conditions decide which rules are eligible: the groceries and gas
	// envelopes are below their thresholds, the emergency fund is not.
	// Conditional rules carry no amount source, so a run gates on the
	// thresholds and reports zero-amount outcomes for the eligible rules
	// without planning any transfers.
	envelopes := []engine.EnvelopeSnapshot{
		{ID: "env_groceries", Name: "Groceries", CurrentBalance: engine.NewMoney(35), MonthlyTarget: monthlyTarget(500)},
		{ID: "env_emergency", Name: "Emergency Fund", CurrentBalance: engine.NewMoney(4800), MonthlyTarget: monthlyTarget(5000)},
		{ID: "env_gas", Name: "Gas", CurrentBalance: engine.NewMoney(15), MonthlyTarget: monthlyTarget(160)},
	}
	if err := h.saveEnvelopes(ctx, envelopes); err != nil {
		return err
	}

	groceries := scenarioRule("rule_topup_groceries", "Top up groceries", engine.RuleConditional, engine.TriggerManual, 1, 0)
	groceries.Description = "Flags groceries when it drops under $100"
	groceries.Config.TargetID = "env_groceries"
	groceries.Config.Conditions = []engine.Condition{{
		ID:         "cond_groceries_low",
		Type:       engine.ConditionBalanceLessThan,
		EnvelopeID: "env_groceries",
		Value:      engine.NewMoney(100),
	}}

	emergency := scenarioRule("rule_topup_emergency", "Rebuild emergency fund", engine.RuleConditional, engine.TriggerManual, 2, 1)
	emergency.Description = "Only eligible when the fund dips under $4000"
	emergency.Config.TargetID = "env_emergency"
	emergency.Config.Conditions = []engine.Condition{{
		ID:         "cond_emergency_low",
		Type:       engine.ConditionBalanceLessThan,
		EnvelopeID: "env_emergency",
		Value:      engine.NewMoney(4000),
	}}

	gas := scenarioRule("rule_topup_gas", "Top up gas", engine.RuleConditional, engine.TriggerManual, 3, 2)
	gas.Config.TargetID = "env_gas"
	gas.Config.Conditions = []engine.Condition{{
		ID:         "cond_gas_low",
		Type:       engine.ConditionBalanceLessThan,
		EnvelopeID: "env_gas",
		Value:      engine.NewMoney(40),
	}}

	if err := h.saveRules(ctx, []engine.Rule{groceries, emergency, gas}); err != nil {
		return err
	}

	return h.Store.SetUnassignedCash(ctx, engine.NewMoney(600))
}

func (h *Handler) loadPriorityCascadeScenario(ctx context.Context) error {
	// Four priority-fill rules against a pool that cannot fund them all.
	// High-priority envelopes fill completely; the tail gets starved.
	envelopes := []engine.EnvelopeSnapshot{
		{ID: "env_rent", Name: "Rent", CurrentBalance: engine.NewMoney(400), MonthlyTarget: monthlyTarget(1500)},
		{ID: "env_utilities", Name: "Utilities", CurrentBalance: engine.NewMoney(60), MonthlyTarget: monthlyTarget(220)},
		{ID: "env_groceries", Name: "Groceries", CurrentBalance: engine.Zero(), MonthlyTarget: monthlyTarget(550)},
		{ID: "env_vacation", Name: "Vacation", CurrentBalance: engine.NewMoney(900), MonthlyTarget: monthlyTarget(2500)},
	}
	if err := h.saveEnvelopes(ctx, envelopes); err != nil {
		return err
	}

	rules := make([]engine.Rule, 0, len(envelopes))
	targets := []struct {
		id       string
		name     string
		envelope engine.EnvelopeID
		priority int
	}{
		{"rule_fill_rent", "Fill rent", "env_rent", 1},
		{"rule_fill_utilities", "Fill utilities", "env_utilities", 2},
		{"rule_fill_groceries", "Fill groceries", "env_groceries", 3},
		{"rule_fill_vacation", "Fill vacation", "env_vacation", 10},
	}
	for i, t := range targets {
		rule := scenarioRule(t.id, t.name, engine.RulePriorityFill, engine.TriggerManual, t.priority, i)
		rule.Config.TargetID = t.envelope
		rules = append(rules, rule)
	}

	if err := h.saveRules(ctx, rules); err != nil {
		return err
	}

	// 1100 rent + 160 utilities + 550 groceries = 1810; vacation starves.
	return h.Store.SetUnassignedCash(ctx, engine.NewMoney(2000))
}
