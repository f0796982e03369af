/*
errors.go - Centralized error types for the incentive engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Note that several outcomes the calculator produces are NOT errors:
  zero accounts, zero active rules, and "no rule matches" are defined
  terminal states with nil/zero results. Errors here come from the
  persistence boundary and from rule configuration.

ERROR CATEGORIES:
  1. Lookup errors - Referenced users/accounts/rules that do not exist
  2. Configuration errors - Malformed rule definitions
  3. Store errors - Database-level failures

USAGE:
  if errors.Is(err, incentive.ErrRuleNotFound) {
      // 404
  }

SEE ALSO:
  - factory/rule.go: Wraps ErrInvalidRule with field context
  - api/handlers.go: Maps these to HTTP status codes
*/
package incentive

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrRuleNotFound is returned when a referenced rule doesn't exist.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrInvalidRule is returned when a rule configuration is malformed
	// (inverted band, negative threshold, non-increasing tiers).
	ErrInvalidRule = errors.New("invalid rule configuration")

	// ErrDuplicateID is returned when creating a record whose ID exists.
	ErrDuplicateID = errors.New("duplicate id")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleConfigError describes what is wrong with a rule definition.
type RuleConfigError struct {
	RuleID RuleID
	Field  string
	Detail string
}

func (e *RuleConfigError) Error() string {
	return fmt.Sprintf("invalid rule %q: %s: %s", e.RuleID, e.Field, e.Detail)
}

func (e *RuleConfigError) Unwrap() error {
	return ErrInvalidRule
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrRuleNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrDuplicateID)
}
