/*
errors.go - Centralized error types for the deal engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Collaborator packages (factory, recorder) wrap these with their own context.

ERROR CATEGORIES:
  1. Configuration errors - Malformed schedule/threshold/step-table setup,
     surfaced before any period runs. Always fatal.
  2. Input errors - Negative amounts or out-of-range ratios handed to a
     calculator. Fatal to the call.
  3. Arithmetic guards - Zero-denominator ratio cases, recovered locally
     under an explicit policy rather than propagated silently.
  4. State errors - Contract violations (running an unset-up deal, rolling
     forward a terminated one). Always fatal.

USAGE:
  if errors.Is(err, engine.ErrConfiguration) { ... }

SEE ALSO:
  - schedule.go: Raises configuration errors
  - trigger.go: Raises input errors and arithmetic guards
  - deal.go: Raises state errors
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is returned for malformed deal setup. Surfaced before
	// any period runs; a deal with a configuration error never starts.
	ErrConfiguration = errors.New("invalid deal configuration")

	// ErrInvalidAmount is returned when a negative amount is offered to an
	// operation that requires a non-negative one.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidInput is returned for malformed calculator inputs such as
	// negative balances or negative ratio components.
	ErrInvalidInput = errors.New("invalid input")

	// ErrZeroDenominator is returned when a ratio denominator is zero and
	// the trigger's policy treats that as an error rather than a pass.
	ErrZeroDenominator = errors.New("zero ratio denominator")

	// ErrState is returned for programming-contract violations: operating on
	// a deal before setup, or rolling forward a terminated deal.
	ErrState = errors.New("invalid deal state")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError describes what part of the deal setup is malformed.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Detail)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// AmountError describes a negative amount offered to a ledger operation.
type AmountError struct {
	Op     string
	Amount Amount
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("%s: negative amount %s", e.Op, e.Amount)
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// InputError describes a rejected calculator input.
type InputError struct {
	Op     string
	Detail string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// StateError describes a lifecycle contract violation.
type StateError struct {
	Op   string
	Have DealStatus
	Want string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: deal is %s, want %s", e.Op, e.Have, e.Want)
}

func (e *StateError) Unwrap() error { return ErrState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError reports whether the error is a deal-setup problem.
func IsConfigError(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsStateError reports whether the error is a lifecycle contract violation.
func IsStateError(err error) bool { return errors.Is(err, ErrState) }
