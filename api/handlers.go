/*
handlers.go - HTTP API handlers for the auto-funding engine

PURPOSE:
  Exposes the funding simulation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Simulation:
    POST   /api/simulate           Run a simulation (stateless, no writes)
    POST   /api/plan               Build a reviewable execution plan

  Rules:
    GET    /api/rules              List rules (filterable)
    POST   /api/rules              Create rule
    GET    /api/rules/stats        Rule statistics
    GET    /api/rules/{id}         Get rule
    PUT    /api/rules/{id}         Update rule
    DELETE /api/rules/{id}         Delete rule
    POST   /api/rules/run          Execute stored rules against stored state

  Envelopes:
    GET    /api/envelopes          List envelopes
    POST   /api/envelopes          Create/update envelope
    GET    /api/envelopes/{id}     Get envelope
    DELETE /api/envelopes/{id}     Delete envelope

  State & History:
    GET    /api/cash               Stored unassigned cash pool
    PUT    /api/cash               Set unassigned cash pool
    GET    /api/history            Recent simulation runs

  Scenarios:
    GET    /api/scenarios          List demo scenarios
    POST   /api/scenarios/load     Load a demo scenario
    POST   /api/scenarios/reset    Clear the database

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  Note the simulate endpoint is an exception: a batch-fatal simulation
  reports success=false in a 200 body, matching the wire contract the
  frontend expects.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/funding-engine/engine"
	"github.com/warp/funding-engine/factory"
	"github.com/warp/funding-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	RuleFactory *factory.RuleFactory

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:       store,
		RuleFactory: factory.NewRuleFactory(),
	}
}

// =============================================================================
// SIMULATION HANDLERS
// =============================================================================

// Simulate runs a simulation against the provided context without
// touching stored state. When the request carries no rules, the stored
// rules are used.
// POST /api/simulate
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rules, err := h.resolveRules(r, req.Rules)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rules", err)
		return
	}

	sim, err := engine.Simulate(rules, toContext(req.Context))
	if err != nil {
		// Batch-fatal: success=false, no simulation payload.
		writeJSON(w, http.StatusOK, SimulateResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, SimulateResponse{
		Success:    true,
		Simulation: toSimulationDTO(sim),
	})
}

// Plan builds a reviewable execution plan with warnings and projected
// envelope impact.
// POST /api/plan
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rules, err := h.resolveRules(r, req.Rules)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rules", err)
		return
	}

	ctx := toContext(req.Context)
	plan, err := engine.BuildExecutionPlan(rules, ctx)
	if err != nil {
		writeJSON(w, http.StatusOK, PlanResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{
		Success: true,
		Plan:    toPlanDTO(plan, ctx.Envelopes),
	})
}

// resolveRules parses request rules, falling back to stored rules when
// the request carries none.
func (h *Handler) resolveRules(r *http.Request, ruleJSONs []factory.RuleJSON) ([]engine.Rule, error) {
	if len(ruleJSONs) == 0 {
		return h.Store.ListRules(r.Context())
	}

	rules := make([]engine.Rule, 0, len(ruleJSONs))
	for i, rj := range ruleJSONs {
		rule, err := h.RuleFactory.FromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns stored rules, optionally filtered.
// GET /api/rules?enabled=true&type=fixed_amount&trigger=manual&search=rent
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	filters := engine.RuleFilters{
		Type:    engine.RuleType(r.URL.Query().Get("type")),
		Trigger: engine.TriggerType(r.URL.Query().Get("trigger")),
		Search:  r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("enabled"); v != "" {
		enabled := v == "true"
		filters.Enabled = &enabled
	}

	filtered := engine.FilterRules(rules, filters)
	dtos := make([]factory.RuleJSON, len(filtered))
	for i, rule := range filtered {
		dtos[i] = h.RuleFactory.ToJSON(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRule returns a single rule.
// GET /api/rules/{id}
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := engine.RuleID(chi.URLParam(r, "id"))

	rule, err := h.Store.GetRule(r.Context(), id)
	if errors.Is(err, engine.ErrRuleNotFound) {
		writeError(w, http.StatusNotFound, "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get rule", err)
		return
	}

	writeJSON(w, http.StatusOK, h.RuleFactory.ToJSON(rule))
}

// CreateRule creates a new rule from its JSON definition.
// POST /api/rules
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := h.RuleFactory.FromJSON(rj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}

	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.RuleFactory.ToJSON(rule))
}

// UpdateRule replaces an existing rule.
// PUT /api/rules/{id}
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := engine.RuleID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetRule(r.Context(), id)
	if errors.Is(err, engine.ErrRuleNotFound) {
		writeError(w, http.StatusNotFound, "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get rule", err)
		return
	}

	var rj factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// The path id wins; creation time is immutable.
	rj.ID = string(id)
	rule, err := h.RuleFactory.FromJSON(rj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}
	rule.CreatedAt = existing.CreatedAt

	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}
	writeJSON(w, http.StatusOK, h.RuleFactory.ToJSON(rule))
}

// ToggleRule flips a rule's enabled flag.
// POST /api/rules/{id}/toggle
func (h *Handler) ToggleRule(w http.ResponseWriter, r *http.Request) {
	id := engine.RuleID(chi.URLParam(r, "id"))

	rule, err := h.Store.GetRule(r.Context(), id)
	if errors.Is(err, engine.ErrRuleNotFound) {
		writeError(w, http.StatusNotFound, "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get rule", err)
		return
	}

	rule.Enabled = !rule.Enabled
	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}
	writeJSON(w, http.StatusOK, h.RuleFactory.ToJSON(rule))
}

// DeleteRule removes a rule.
// DELETE /api/rules/{id}
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := engine.RuleID(chi.URLParam(r, "id"))

	err := h.Store.DeleteRule(r.Context(), id)
	if errors.Is(err, engine.ErrRuleNotFound) {
		writeError(w, http.StatusNotFound, "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRuleStats returns aggregate rule statistics.
// GET /api/rules/stats
func (h *Handler) GetRuleStats(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	stats := engine.ComputeRuleStatistics(rules)
	dto := RuleStatsDTO{
		Total:           stats.Total,
		Enabled:         stats.Enabled,
		Disabled:        stats.Disabled,
		ByType:          make(map[string]int, len(stats.ByType)),
		ByTrigger:       make(map[string]int, len(stats.ByTrigger)),
		TotalExecutions: stats.TotalExecutions,
	}
	for k, v := range stats.ByType {
		dto.ByType[string(k)] = v
	}
	for k, v := range stats.ByTrigger {
		dto.ByTrigger[string(k)] = v
	}
	if stats.LastExecuted != nil {
		dto.LastExecuted = stats.LastExecuted.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, dto)
}

// RunRules executes stored rules against stored state. Unless dryRun is
// set, successful transfers are applied: envelope balances grow, the
// cash pool shrinks, rules are stamped, and the run lands in history.
// POST /api/rules/run
func (h *Handler) RunRules(w http.ResponseWriter, r *http.Request) {
	var req RunRulesRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	ctx := r.Context()
	rules, err := h.Store.ListRules(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}
	envelopes, err := h.Store.ListEnvelopes(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list envelopes", err)
		return
	}

	cash, err := h.Store.GetUnassignedCash(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load cash pool", err)
		return
	}
	if req.UnassignedCash != nil {
		cash = engine.NewMoney(*req.UnassignedCash)
	}

	trigger := engine.TriggerManual
	if req.Trigger != "" {
		trigger = engine.TriggerType(req.Trigger)
	}

	simCtx := engine.Context{
		UnassignedCash: cash,
		Envelopes:      envelopes,
		Trigger:        trigger,
	}
	if req.NewIncomeAmount != nil {
		m := engine.NewMoney(*req.NewIncomeAmount)
		simCtx.NewIncomeAmount = &m
	}

	sim, err := engine.Simulate(rules, simCtx)
	if err != nil {
		writeJSON(w, http.StatusOK, RunRulesResponse{Success: false, Error: err.Error()})
		return
	}

	resp := RunRulesResponse{
		Success:        true,
		Simulation:     toSimulationDTO(sim),
		UnassignedCash: cash.Float64(),
	}

	if req.DryRun {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	now := time.Now().UTC()
	if err := h.applySimulation(r, sim, envelopes, cash, now); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply transfers", err)
		return
	}

	h.recordRun(r, trigger, cash, sim, now)

	updated, err := h.Store.ListEnvelopes(ctx)
	if err == nil {
		for _, env := range updated {
			resp.Envelopes = append(resp.Envelopes, toEnvelopeDTO(env))
		}
	}
	resp.Applied = true
	resp.UnassignedCash = sim.RemainingCash.Float64()
	writeJSON(w, http.StatusOK, resp)
}

// applySimulation commits a simulation's transfers to stored state.
func (h *Handler) applySimulation(r *http.Request, sim *engine.SimulationOutcome, envelopes []engine.EnvelopeSnapshot, cash engine.Money, now time.Time) error {
	ctx := r.Context()

	byID := make(map[engine.EnvelopeID]engine.EnvelopeSnapshot, len(envelopes))
	for _, env := range envelopes {
		byID[env.ID] = env
	}

	for _, transfer := range sim.PlannedTransfers {
		env, ok := byID[transfer.ToEnvelopeID]
		if !ok {
			continue
		}
		env.CurrentBalance = env.CurrentBalance.Add(transfer.Amount)
		byID[transfer.ToEnvelopeID] = env
		if err := h.Store.SaveEnvelope(ctx, env); err != nil {
			return err
		}
	}

	for _, result := range sim.RuleResults {
		if !result.Success {
			continue
		}
		if err := h.Store.MarkRuleExecuted(ctx, result.RuleID, now); err != nil {
			return err
		}
	}

	return h.Store.SetUnassignedCash(ctx, sim.RemainingCash)
}

// recordRun writes a simulation to history. History is best-effort; a
// write failure does not fail the run itself.
func (h *Handler) recordRun(r *http.Request, trigger engine.TriggerType, cash engine.Money, sim *engine.SimulationOutcome, now time.Time) {
	resultsJSON, err := json.Marshal(toSimulationDTO(sim))
	if err != nil {
		return
	}
	_ = h.Store.SaveSimulationRun(r.Context(), sqlite.SimulationRun{
		ID:             "run_" + uuid.NewString(),
		Trigger:        trigger,
		UnassignedCash: cash,
		TotalPlanned:   sim.TotalPlanned,
		RulesExecuted:  sim.RulesExecuted,
		TransferCount:  len(sim.PlannedTransfers),
		ResultsJSON:    string(resultsJSON),
		CreatedAt:      now,
	})
}

// =============================================================================
// ENVELOPE HANDLERS
// =============================================================================

// ListEnvelopes returns all envelopes.
// GET /api/envelopes
func (h *Handler) ListEnvelopes(w http.ResponseWriter, r *http.Request) {
	envelopes, err := h.Store.ListEnvelopes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list envelopes", err)
		return
	}

	dtos := make([]EnvelopeDTO, len(envelopes))
	for i, env := range envelopes {
		dtos[i] = toEnvelopeDTO(env)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEnvelope returns a single envelope.
// GET /api/envelopes/{id}
func (h *Handler) GetEnvelope(w http.ResponseWriter, r *http.Request) {
	id := engine.EnvelopeID(chi.URLParam(r, "id"))

	env, err := h.Store.GetEnvelope(r.Context(), id)
	if errors.Is(err, engine.ErrEnvelopeNotFound) {
		writeError(w, http.StatusNotFound, "Envelope not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get envelope", err)
		return
	}
	writeJSON(w, http.StatusOK, toEnvelopeDTO(env))
}

// SaveEnvelope creates or updates an envelope. On the PUT route the
// path id wins over any id in the body.
// POST /api/envelopes
// PUT  /api/envelopes/{id}
func (h *Handler) SaveEnvelope(w http.ResponseWriter, r *http.Request) {
	var req SaveEnvelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Envelope name is required", nil)
		return
	}

	if req.ID == "" {
		req.ID = "env_" + uuid.NewString()
	}
	env := engine.EnvelopeSnapshot{
		ID:             engine.EnvelopeID(req.ID),
		Name:           req.Name,
		CurrentBalance: engine.NewMoney(req.CurrentBalance),
	}
	if req.MonthlyAmount != nil {
		m := engine.NewMoney(*req.MonthlyAmount)
		env.MonthlyTarget = &m
	}

	if err := h.Store.SaveEnvelope(r.Context(), env); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save envelope", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEnvelopeDTO(env))
}

// DeleteEnvelope removes an envelope.
// DELETE /api/envelopes/{id}
func (h *Handler) DeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	id := engine.EnvelopeID(chi.URLParam(r, "id"))

	err := h.Store.DeleteEnvelope(r.Context(), id)
	if errors.Is(err, engine.ErrEnvelopeNotFound) {
		writeError(w, http.StatusNotFound, "Envelope not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete envelope", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CASH POOL & HISTORY
// =============================================================================

// GetCash returns the stored unassigned cash pool.
// GET /api/cash
func (h *Handler) GetCash(w http.ResponseWriter, r *http.Request) {
	cash, err := h.Store.GetUnassignedCash(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load cash pool", err)
		return
	}
	writeJSON(w, http.StatusOK, UnassignedCashDTO{UnassignedCash: cash.Float64()})
}

// SetCash updates the stored unassigned cash pool.
// PUT /api/cash
func (h *Handler) SetCash(w http.ResponseWriter, r *http.Request) {
	var req UnassignedCashDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UnassignedCash < 0 {
		writeError(w, http.StatusBadRequest, "Unassigned cash cannot be negative", nil)
		return
	}

	if err := h.Store.SetUnassignedCash(r.Context(), engine.NewMoney(req.UnassignedCash)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to set cash pool", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// GetHistory returns recent simulation runs, newest first.
// GET /api/history?limit=20
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.Store.ListSimulationRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list history", err)
		return
	}

	dtos := make([]HistoryRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toHistoryRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
