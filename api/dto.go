/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

BOUNDARY RULES:
  - Monetary values cross the wire as floats; the engine holds decimals
  - Dates are ISO-8601 strings; unparseable optional dates read as absent
  - Field names are camelCase to match the frontend

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON type (the rule wire format)
*/
package api

import (
	"time"

	"github.com/warp/funding-engine/engine"
	"github.com/warp/funding-engine/factory"
	"github.com/warp/funding-engine/store/sqlite"
)

// =============================================================================
// SIMULATION REQUEST/RESPONSE
// =============================================================================

// SimulateRequest is the request body for a simulation. Rules are
// optional; when omitted the stored rules are used.
type SimulateRequest struct {
	Rules   []factory.RuleJSON `json:"rules,omitempty"`
	Context ContextDTO         `json:"context"`
}

// ContextDTO carries the simulation context.
type ContextDTO struct {
	Data        ContextDataDTO `json:"data"`
	Trigger     string         `json:"trigger"`
	CurrentDate string         `json:"currentDate,omitempty"`
}

// ContextDataDTO is the financial state the simulation runs against.
type ContextDataDTO struct {
	UnassignedCash  float64       `json:"unassignedCash"`
	NewIncomeAmount *float64      `json:"newIncomeAmount,omitempty"`
	Envelopes       []EnvelopeDTO `json:"envelopes"`
}

// EnvelopeDTO represents an envelope on the wire.
type EnvelopeDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	CurrentBalance float64  `json:"currentBalance"`
	MonthlyAmount  *float64 `json:"monthlyAmount,omitempty"`
	FillPercentage float64  `json:"fillPercentage,omitempty"`
}

// SimulateResponse is the simulation response envelope. A batch-fatal
// failure reports success=false with no simulation payload.
type SimulateResponse struct {
	Success    bool           `json:"success"`
	Simulation *SimulationDTO `json:"simulation,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// SimulationDTO represents a simulation outcome.
type SimulationDTO struct {
	TotalPlanned     float64         `json:"totalPlanned"`
	RulesExecuted    int             `json:"rulesExecuted"`
	PlannedTransfers []TransferDTO   `json:"plannedTransfers"`
	RuleResults      []RuleResultDTO `json:"ruleResults"`
	RemainingCash    float64         `json:"remainingCash"`
	Errors           []RuleErrorDTO  `json:"errors"`
}

// TransferDTO represents a planned (not executed) transfer.
type TransferDTO struct {
	FromEnvelopeID string  `json:"fromEnvelopeId"`
	ToEnvelopeID   string  `json:"toEnvelopeId"`
	Amount         float64 `json:"amount"`
	Description    string  `json:"description,omitempty"`
	RuleID         string  `json:"ruleId,omitempty"`
	RuleName       string  `json:"ruleName,omitempty"`
}

// RuleResultDTO represents one rule's outcome within a simulation.
type RuleResultDTO struct {
	RuleID          string        `json:"ruleId"`
	RuleName        string        `json:"ruleName"`
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	Amount          float64       `json:"amount"`
	Transfers       []TransferDTO `json:"transfers,omitempty"`
	TargetEnvelopes []string      `json:"targetEnvelopes,omitempty"`
}

// RuleErrorDTO represents a per-rule soft failure.
type RuleErrorDTO struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Error    string `json:"error"`
}

// =============================================================================
// PLAN TYPES
// =============================================================================

// PlanResponse wraps an execution plan with its projected impact.
type PlanResponse struct {
	Success bool     `json:"success"`
	Plan    *PlanDTO `json:"plan,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// PlanDTO represents a reviewable execution plan.
type PlanDTO struct {
	PlannedAt      string          `json:"plannedAt"`
	Trigger        string          `json:"trigger"`
	InitialCash    float64         `json:"initialCash"`
	FinalCash      float64         `json:"finalCash"`
	TotalToMove    float64         `json:"totalToMove"`
	RulesCount     int             `json:"rulesCount"`
	TransfersCount int             `json:"transfersCount"`
	Transfers      []TransferDTO   `json:"transfers"`
	Rules          []RuleResultDTO `json:"rules"`
	Errors         []RuleErrorDTO  `json:"errors"`
	Warnings       []WarningDTO    `json:"warnings"`
	Impact         *ImpactDTO      `json:"impact,omitempty"`
}

// WarningDTO flags a potential issue in a plan.
type WarningDTO struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ImpactDTO is the projected effect of a plan on envelope balances.
type ImpactDTO struct {
	Envelopes        []EnvelopeImpactDTO `json:"envelopes"`
	UnassignedChange float64             `json:"unassignedChange"`
	TotalTransferred float64             `json:"totalTransferred"`
}

// EnvelopeImpactDTO is the projected effect on one envelope.
type EnvelopeImpactDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	CurrentBalance    float64  `json:"currentBalance"`
	Change            float64  `json:"change"`
	NewBalance        float64  `json:"newBalance"`
	MonthlyTarget     *float64 `json:"monthlyTarget,omitempty"`
	FillPercentage    float64  `json:"fillPercentage"`
	NewFillPercentage float64  `json:"newFillPercentage"`
}

// =============================================================================
// RULE & ENVELOPE MANAGEMENT
// =============================================================================

// RunRulesRequest triggers rule execution against stored state.
// UnassignedCash overrides the stored pool when set.
type RunRulesRequest struct {
	Trigger         string   `json:"trigger,omitempty"`
	UnassignedCash  *float64 `json:"unassignedCash,omitempty"`
	NewIncomeAmount *float64 `json:"newIncomeAmount,omitempty"`
	DryRun          bool     `json:"dryRun,omitempty"`
}

// RunRulesResponse is the result of executing rules.
type RunRulesResponse struct {
	Success        bool           `json:"success"`
	Applied        bool           `json:"applied"`
	Simulation     *SimulationDTO `json:"simulation,omitempty"`
	UnassignedCash float64        `json:"unassignedCash"`
	Envelopes      []EnvelopeDTO  `json:"envelopes,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// SaveEnvelopeRequest creates or updates an envelope.
type SaveEnvelopeRequest struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	CurrentBalance float64  `json:"currentBalance"`
	MonthlyAmount  *float64 `json:"monthlyAmount,omitempty"`
}

// UnassignedCashDTO carries the stored cash pool.
type UnassignedCashDTO struct {
	UnassignedCash float64 `json:"unassignedCash"`
}

// RuleStatsDTO summarizes the rule list for dashboards.
type RuleStatsDTO struct {
	Total           int            `json:"total"`
	Enabled         int            `json:"enabled"`
	Disabled        int            `json:"disabled"`
	ByType          map[string]int `json:"byType"`
	ByTrigger       map[string]int `json:"byTrigger"`
	TotalExecutions int            `json:"totalExecutions"`
	LastExecuted    string         `json:"lastExecuted,omitempty"`
}

// HistoryRunDTO represents a stored simulation run.
type HistoryRunDTO struct {
	ID             string  `json:"id"`
	Trigger        string  `json:"trigger"`
	UnassignedCash float64 `json:"unassignedCash"`
	TotalPlanned   float64 `json:"totalPlanned"`
	RulesExecuted  int     `json:"rulesExecuted"`
	TransferCount  int     `json:"transferCount"`
	CreatedAt      string  `json:"createdAt"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

// toContext builds an engine context from the wire representation.
// An unparseable currentDate falls back to now; the simulation should
// run with a best-effort date rather than reject the request.
func toContext(dto ContextDTO) engine.Context {
	ctx := engine.Context{
		UnassignedCash: engine.NewMoney(dto.Data.UnassignedCash),
		Trigger:        engine.TriggerType(dto.Trigger),
	}
	if dto.Data.NewIncomeAmount != nil {
		m := engine.NewMoney(*dto.Data.NewIncomeAmount)
		ctx.NewIncomeAmount = &m
	}
	for _, e := range dto.Data.Envelopes {
		ctx.Envelopes = append(ctx.Envelopes, toSnapshot(e))
	}
	if dto.CurrentDate != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, dto.CurrentDate); err == nil {
				ctx.AsOf = t.UTC()
				break
			}
		}
	}
	return ctx
}

func toSnapshot(dto EnvelopeDTO) engine.EnvelopeSnapshot {
	snap := engine.EnvelopeSnapshot{
		ID:             engine.EnvelopeID(dto.ID),
		Name:           dto.Name,
		CurrentBalance: engine.NewMoney(dto.CurrentBalance),
	}
	if dto.MonthlyAmount != nil {
		m := engine.NewMoney(*dto.MonthlyAmount)
		snap.MonthlyTarget = &m
	}
	return snap
}

func toEnvelopeDTO(snap engine.EnvelopeSnapshot) EnvelopeDTO {
	dto := EnvelopeDTO{
		ID:             string(snap.ID),
		Name:           snap.Name,
		CurrentBalance: snap.CurrentBalance.Float64(),
	}
	if snap.MonthlyTarget != nil {
		v := snap.MonthlyTarget.Float64()
		dto.MonthlyAmount = &v
	}
	dto.FillPercentage, _ = snap.FillPercentage().Float64()
	return dto
}

func toSimulationDTO(sim *engine.SimulationOutcome) *SimulationDTO {
	dto := &SimulationDTO{
		TotalPlanned:     sim.TotalPlanned.Float64(),
		RulesExecuted:    sim.RulesExecuted,
		PlannedTransfers: toTransferDTOs(sim.PlannedTransfers),
		RuleResults:      []RuleResultDTO{},
		RemainingCash:    sim.RemainingCash.Float64(),
		Errors:           []RuleErrorDTO{},
	}
	for _, result := range sim.RuleResults {
		dto.RuleResults = append(dto.RuleResults, toRuleResultDTO(result))
	}
	for _, e := range sim.Errors {
		dto.Errors = append(dto.Errors, RuleErrorDTO{
			RuleID:   string(e.RuleID),
			RuleName: e.RuleName,
			Error:    e.Error,
		})
	}
	return dto
}

func toRuleResultDTO(result engine.RuleOutcome) RuleResultDTO {
	dto := RuleResultDTO{
		RuleID:    string(result.RuleID),
		RuleName:  result.RuleName,
		Success:   result.Success,
		Error:     result.Error,
		Amount:    result.Amount.Float64(),
		Transfers: toTransferDTOs(result.PlannedTransfers),
	}
	for _, id := range result.TargetEnvelopes {
		dto.TargetEnvelopes = append(dto.TargetEnvelopes, string(id))
	}
	return dto
}

func toTransferDTOs(transfers []engine.PlannedTransfer) []TransferDTO {
	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = TransferDTO{
			FromEnvelopeID: string(t.FromEnvelopeID),
			ToEnvelopeID:   string(t.ToEnvelopeID),
			Amount:         t.Amount.Float64(),
			Description:    t.Description,
			RuleID:         string(t.RuleID),
			RuleName:       t.RuleName,
		}
	}
	return dtos
}

func toPlanDTO(plan *engine.ExecutionPlan, envelopes []engine.EnvelopeSnapshot) *PlanDTO {
	dto := &PlanDTO{
		PlannedAt:      plan.PlannedAt.Format(time.RFC3339),
		Trigger:        string(plan.Trigger),
		InitialCash:    plan.InitialCash.Float64(),
		FinalCash:      plan.FinalCash.Float64(),
		TotalToMove:    plan.TotalToMove.Float64(),
		RulesCount:     plan.RulesCount,
		TransfersCount: plan.TransfersCount,
		Transfers:      toTransferDTOs(plan.Transfers),
		Rules:          []RuleResultDTO{},
		Errors:         []RuleErrorDTO{},
		Warnings:       []WarningDTO{},
	}
	for _, r := range plan.Rules {
		dto.Rules = append(dto.Rules, toRuleResultDTO(r))
	}
	for _, e := range plan.Errors {
		dto.Errors = append(dto.Errors, RuleErrorDTO{
			RuleID:   string(e.RuleID),
			RuleName: e.RuleName,
			Error:    e.Error,
		})
	}
	for _, w := range plan.Warnings {
		dto.Warnings = append(dto.Warnings, WarningDTO{
			Type:     w.Type,
			Message:  w.Message,
			Severity: string(w.Severity),
		})
	}

	impact := engine.ProjectImpact(plan.Transfers, envelopes)
	dto.Impact = toImpactDTO(impact, envelopes)
	return dto
}

func toImpactDTO(impact engine.TransferImpact, envelopes []engine.EnvelopeSnapshot) *ImpactDTO {
	dto := &ImpactDTO{
		Envelopes:        []EnvelopeImpactDTO{},
		UnassignedChange: impact.UnassignedChange.Float64(),
		TotalTransferred: impact.TotalTransferred.Float64(),
	}
	// Preserve the snapshot order for stable output.
	for _, snap := range envelopes {
		env, ok := impact.Envelopes[snap.ID]
		if !ok {
			continue
		}
		item := EnvelopeImpactDTO{
			ID:             string(env.ID),
			Name:           env.Name,
			CurrentBalance: env.CurrentBalance.Float64(),
			Change:         env.Change.Float64(),
			NewBalance:     env.NewBalance.Float64(),
		}
		if env.MonthlyTarget != nil {
			v := env.MonthlyTarget.Float64()
			item.MonthlyTarget = &v
		}
		item.FillPercentage, _ = env.FillPercentage.Float64()
		item.NewFillPercentage, _ = env.NewFillPercentage.Float64()
		dto.Envelopes = append(dto.Envelopes, item)
	}
	return dto
}

func toHistoryRunDTO(run sqlite.SimulationRun) HistoryRunDTO {
	return HistoryRunDTO{
		ID:             run.ID,
		Trigger:        string(run.Trigger),
		UnassignedCash: run.UnassignedCash.Float64(),
		TotalPlanned:   run.TotalPlanned.Float64(),
		RulesExecuted:  run.RulesExecuted,
		TransferCount:  run.TransferCount,
		CreatedAt:      run.CreatedAt.Format(time.RFC3339),
	}
}
