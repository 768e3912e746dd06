package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/warp/funding-engine/factory"
)

// Envelope categories with their share of a typical monthly budget.
var categories = []struct {
	name      string
	budgetPct float64
}{
	{"Groceries", 0.15},
	{"Dining", 0.10},
	{"Transportation", 0.10},
	{"Utilities", 0.12},
	{"Entertainment", 0.08},
	{"Shopping", 0.12},
	{"Healthcare", 0.08},
	{"Savings", 0.15},
	{"Miscellaneous", 0.10},
}

func generateCmd() *cobra.Command {
	var income float64
	var count int
	var seed int64
	var trigger string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic simulation request",
		Long:  `Generate a realistic simulation request (envelopes, rules, cash pool) and print it as JSON. Pipe it to a file and feed it back to 'fundsim simulate'.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if count < 1 || count > len(categories) {
				return fmt.Errorf("envelopes must be between 1 and %d", len(categories))
			}
			rng := rand.New(rand.NewSource(seed))
			return printJSON(generateRequest(rng, income, count, trigger))
		},
	}

	cmd.Flags().Float64Var(&income, "income", 5000, "monthly income the budget is sized against")
	cmd.Flags().IntVar(&count, "envelopes", 6, "number of envelopes to generate")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for reproducible output")
	cmd.Flags().StringVar(&trigger, "trigger", "income_detected", "trigger type for the request")

	return cmd
}

func generateRequest(rng *rand.Rand, income float64, count int, trigger string) requestFile {
	var req requestFile
	req.Context.Trigger = trigger
	req.Context.Data.UnassignedCash = round2(income * (0.8 + rng.Float64()*0.4))
	if trigger == "income_detected" {
		amount := round2(income)
		req.Context.Data.NewIncomeAmount = &amount
	}

	for i := 0; i < count; i++ {
		cat := categories[i]
		target := round2(income * cat.budgetPct)
		balance := round2(target * rng.Float64() * 0.6)
		envID := fmt.Sprintf("env_%d", i+1)

		monthly := target
		req.Context.Data.Envelopes = append(req.Context.Data.Envelopes, envelopeJSON{
			ID:             envID,
			Name:           cat.name,
			CurrentBalance: balance,
			MonthlyAmount:  &monthly,
		})

		req.Rules = append(req.Rules, generateRule(rng, i, envID, cat.name, target, trigger))
	}

	// A split-remainder tail sweeps whatever the other rules leave over.
	targetIDs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		targetIDs = append(targetIDs, fmt.Sprintf("env_%d", i+1))
	}
	req.Rules = append(req.Rules, factory.RuleJSON{
		ID:      "rule_sweep",
		Name:    "Sweep the rest",
		Type:    "split_remainder",
		Trigger: trigger,
		Config: factory.ConfigJSON{
			TargetType: "multiple",
			TargetIDs:  targetIDs,
		},
	})

	return req
}

func generateRule(rng *rand.Rand, i int, envID, name string, target float64, trigger string) factory.RuleJSON {
	priority := i + 1
	rule := factory.RuleJSON{
		ID:       fmt.Sprintf("rule_%d", i+1),
		Name:     fmt.Sprintf("Fund %s", name),
		Trigger:  trigger,
		Priority: &priority,
		Config:   factory.ConfigJSON{TargetID: envID},
	}

	// Mix rule types so generated requests exercise the whole engine.
	switch rng.Intn(3) {
	case 0:
		rule.Type = "fixed_amount"
		rule.Config.Amount = target
	case 1:
		rule.Type = "percentage"
		rule.Config.SourceType = "income"
		rule.Config.Percentage = round2(5 + rng.Float64()*15)
	default:
		rule.Type = "priority_fill"
	}
	return rule
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
