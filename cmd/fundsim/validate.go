package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/funding-engine/engine"
	"github.com/warp/funding-engine/factory"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules.json>",
		Short: "Validate a rules JSON file",
		Long:  `Parse and validate a JSON array of funding rules, printing every problem found.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read rules file: %w", err)
			}

			f := factory.NewRuleFactory()
			rules, err := f.ParseRules(string(data))
			if err != nil {
				return err
			}

			for _, rule := range rules {
				fmt.Printf("%-40s %s\n", rule.Name, engine.DescribeRule(rule))
			}
			fmt.Printf("\n%d rules valid\n", len(rules))
			return nil
		},
	}
}
