/*
main.go - fundsim CLI entry point

PURPOSE:
  Command-line companion to the funding engine server. Runs simulations
  against request files, validates rule definitions, and generates
  synthetic request data for demos and load testing.

COMMANDS:
  simulate   Run a simulation from a request JSON file
  validate   Validate a rules JSON file
  generate   Generate a synthetic simulation request

EXAMPLES:
  fundsim simulate -f request.json
  fundsim simulate -f request.json --plan
  fundsim validate rules.json
  fundsim generate --envelopes 5 --rules 8 > request.json

SEE ALSO:
  - cmd/server/main.go: The HTTP server
  - factory/rule.go: Rule JSON format
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fundsim",
	Short: "Envelope auto-funding simulator",
	Long: `fundsim: simulate auto-funding rules against a budget snapshot.

Rules move money from the unassigned cash pool into envelopes. The
simulator plans the transfers a rule set would make without touching
any stored state.`,
}

func init() {
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(generateCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
