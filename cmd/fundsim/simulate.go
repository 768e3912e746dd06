package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/funding-engine/engine"
	"github.com/warp/funding-engine/factory"
)

// requestFile mirrors the server's simulate request body so the same
// JSON works against both the CLI and POST /api/simulate.
type requestFile struct {
	Rules   []factory.RuleJSON `json:"rules"`
	Context contextJSON        `json:"context"`
}

type contextJSON struct {
	Data struct {
		UnassignedCash  float64        `json:"unassignedCash"`
		NewIncomeAmount *float64       `json:"newIncomeAmount"`
		Envelopes       []envelopeJSON `json:"envelopes"`
	} `json:"data"`
	Trigger     string `json:"trigger"`
	CurrentDate string `json:"currentDate"`
}

type envelopeJSON struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	CurrentBalance float64  `json:"currentBalance"`
	MonthlyAmount  *float64 `json:"monthlyAmount"`
}

func simulateCmd() *cobra.Command {
	var file string
	var showPlan bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulation from a request JSON file",
		Long:  `Run the funding rules in a request file against its budget snapshot and print the planned transfers.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			req, err := loadRequest(file)
			if err != nil {
				return err
			}

			rules, err := parseRules(req.Rules)
			if err != nil {
				return err
			}
			ctx := buildContext(req.Context)

			if showPlan {
				plan, err := engine.BuildExecutionPlan(rules, ctx)
				if err != nil {
					return fmt.Errorf("simulation failed: %w", err)
				}
				if asJSON {
					return printJSON(plan)
				}
				printPlan(plan, ctx)
				return nil
			}

			sim, err := engine.Simulate(rules, ctx)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}
			if asJSON {
				return printJSON(sim)
			}
			printSimulation(sim, ctx)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "request JSON file (required)")
	cmd.Flags().BoolVar(&showPlan, "plan", false, "build a full execution plan with warnings")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a report")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func loadRequest(path string) (*requestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	var req requestFile
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request file: %w", err)
	}
	return &req, nil
}

func parseRules(ruleJSONs []factory.RuleJSON) ([]engine.Rule, error) {
	f := factory.NewRuleFactory()
	rules := make([]engine.Rule, 0, len(ruleJSONs))
	for i, rj := range ruleJSONs {
		rule, err := f.FromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func buildContext(cj contextJSON) engine.Context {
	ctx := engine.Context{
		UnassignedCash: engine.NewMoney(cj.Data.UnassignedCash),
		Trigger:        engine.TriggerType(cj.Trigger),
	}
	if ctx.Trigger == "" {
		ctx.Trigger = engine.TriggerManual
	}
	if cj.Data.NewIncomeAmount != nil {
		m := engine.NewMoney(*cj.Data.NewIncomeAmount)
		ctx.NewIncomeAmount = &m
	}
	for _, e := range cj.Data.Envelopes {
		snap := engine.EnvelopeSnapshot{
			ID:             engine.EnvelopeID(e.ID),
			Name:           e.Name,
			CurrentBalance: engine.NewMoney(e.CurrentBalance),
		}
		if e.MonthlyAmount != nil {
			m := engine.NewMoney(*e.MonthlyAmount)
			snap.MonthlyTarget = &m
		}
		ctx.Envelopes = append(ctx.Envelopes, snap)
	}
	if cj.CurrentDate != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, cj.CurrentDate); err == nil {
				ctx.AsOf = t.UTC()
				break
			}
		}
	}
	return ctx
}

func printSimulation(sim *engine.SimulationOutcome, ctx engine.Context) {
	fmt.Printf("Trigger: %s\n", ctx.Trigger)
	fmt.Printf("Pool:    $%s -> $%s\n", ctx.UnassignedCash, sim.RemainingCash)
	fmt.Printf("Planned: $%s across %d transfers (%d rules executed)\n\n",
		sim.TotalPlanned, len(sim.PlannedTransfers), sim.RulesExecuted)

	for _, t := range sim.PlannedTransfers {
		name := envelopeName(ctx, t.ToEnvelopeID)
		fmt.Printf("  %-28s $%10s  (%s)\n", name, t.Amount, t.RuleName)
	}

	if len(sim.Errors) > 0 {
		fmt.Println("\nRules that did not fund:")
		for _, e := range sim.Errors {
			fmt.Printf("  %-28s %s\n", e.RuleName, e.Error)
		}
	}
}

func printPlan(plan *engine.ExecutionPlan, ctx engine.Context) {
	printSimulation(&engine.SimulationOutcome{
		TotalPlanned:     plan.TotalToMove,
		RulesExecuted:    plan.RulesCount,
		PlannedTransfers: plan.Transfers,
		RuleResults:      plan.Rules,
		RemainingCash:    plan.FinalCash,
		Errors:           plan.Errors,
	}, ctx)

	if len(plan.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range plan.Warnings {
			fmt.Printf("  [%s] %s\n", w.Severity, w.Message)
		}
	}
}

func envelopeName(ctx engine.Context, id engine.EnvelopeID) string {
	if env, ok := ctx.Envelope(id); ok && env.Name != "" {
		return env.Name
	}
	return string(id)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
