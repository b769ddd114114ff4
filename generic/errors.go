/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine performs no I/O, so there are only two failure classes:
  unusable parameter data and unusable input. Neither is retryable.

ERROR CATEGORIES:
  1. Configuration errors - no parameter data for a regime, or a parameter
     set that breaks an invariant (bracket overlap, rate out of range)
  2. Input errors - values the caller should have rejected before calling

USAGE:
  if errors.Is(err, generic.ErrInvalidInput) {
      // 400 for HTTP callers
  }

  var cfgErr *generic.ConfigurationError
  if errors.As(err, &cfgErr) {
      log.Printf("no parameters for %s", cfgErr.Regime)
  }

SEE ALSO:
  - table.go: Returns ConfigurationError on empty regimes
  - payroll/calculate.go: Returns InvalidInputError on bad salaries
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is returned when no usable parameter data exists.
	// It is never silently replaced by defaults.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidInput is returned for inputs outside the engine's domain,
	// such as a basic salary of zero.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError describes which parameter lookup or validation failed.
type ConfigurationError struct {
	Regime string
	Year   int
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Year != 0 {
		return fmt.Sprintf("configuration error: regime %s year %d: %s", e.Regime, e.Year, e.Reason)
	}
	return fmt.Sprintf("configuration error: regime %s: %s", e.Regime, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// InvalidInputError names the offending input field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfigurationError returns true if parameter data is missing or broken.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
