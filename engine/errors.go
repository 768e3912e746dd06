/*
errors.go - Centralized error types for the funding engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine itself surfaces per-rule problems as data (RuleOutcome,
  RuleError), never as raised errors; the types here cover structural
  failures and are shared with the storage and transport layers.

ERROR CATEGORIES:
  1. Not-found errors - Missing rules/envelopes in storage
  2. Validation errors - Rule configurations that fail ValidateRule
  3. Batch-fatal - A structural failure around the simulation loop,
     reported by Simulate as a plain error

USAGE:
  if errors.Is(err, engine.ErrRuleNotFound) { ... }
*/
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRuleNotFound is returned when a referenced rule doesn't exist.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrEnvelopeNotFound is returned when a referenced envelope doesn't exist.
	ErrEnvelopeNotFound = errors.New("envelope not found")

	// ErrInvalidRule is returned when a rule configuration fails validation.
	ErrInvalidRule = errors.New("invalid rule configuration")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// RuleValidationError carries the full list of problems ValidateRule found.
type RuleValidationError struct {
	RuleID   RuleID
	Problems []string
}

func (e *RuleValidationError) Error() string {
	return fmt.Sprintf("invalid rule %s: %s", e.RuleID, strings.Join(e.Problems, "; "))
}

func (e *RuleValidationError) Unwrap() error {
	return ErrInvalidRule
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound) || errors.Is(err, ErrEnvelopeNotFound)
}
