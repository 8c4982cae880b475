/*
errors.go - Centralized error types for the disbursement engine

PURPOSE:
  All engine error values in one place. Callers (handlers, domain packages)
  classify with errors.Is and the helpers at the bottom; anything that
  classifies as a client error maps to a 4xx at the API boundary.

USAGE:
  if errors.Is(err, disburse.ErrLastPhase) {
      // surface as a validation failure, keep the timeline untouched
  }
*/
package disburse

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLastPhase is returned when removing a phase would leave the
	// timeline empty. A timeline always keeps at least one phase.
	ErrLastPhase = errors.New("timeline must keep at least one phase")

	// ErrPhaseNotFound is returned when an operation references a phase id
	// that is not in the timeline.
	ErrPhaseNotFound = errors.New("phase not found")

	// ErrIncompleteTimeline is returned when a direct approval is attempted
	// with percentages that do not total exactly 100.
	ErrIncompleteTimeline = errors.New("timeline percentages must total exactly 100")

	// ErrOverAllocated is returned when percentages exceed 100. This is the
	// hard ceiling for both approvals and templates.
	ErrOverAllocated = errors.New("timeline percentages exceed 100")

	// ErrInvalidPercentage is returned for a phase percentage outside 0..100.
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")

	// ErrInvalidPeriod is returned for an unknown recurring period.
	ErrInvalidPeriod = errors.New("unknown recurring period")

	// ErrInvalidPaymentCount is returned when a recurring payment count is
	// outside 1..MaxPayments.
	ErrInvalidPaymentCount = errors.New("number of payments out of range")

	// ErrInvalidPaymentAmount is returned for a non-positive per-cycle amount.
	ErrInvalidPaymentAmount = errors.New("amount per payment must be positive")

	// ErrMissingStartDate is returned when a recurring config has no start date.
	ErrMissingStartDate = errors.New("recurring start date is required")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PercentageError reports the actual total when a gate fails, so the caller
// can show "need 100%, have N%".
type PercentageError struct {
	Total int
	Limit int
}

func (e *PercentageError) Error() string {
	return fmt.Sprintf("timeline percentages total %d, limit %d", e.Total, e.Limit)
}

func (e *PercentageError) Unwrap() error {
	if e.Total > e.Limit {
		return ErrOverAllocated
	}
	return ErrIncompleteTimeline
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrLastPhase) ||
		errors.Is(err, ErrPhaseNotFound) ||
		errors.Is(err, ErrIncompleteTimeline) ||
		errors.Is(err, ErrOverAllocated) ||
		errors.Is(err, ErrInvalidPercentage) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidPaymentCount) ||
		errors.Is(err, ErrInvalidPaymentAmount) ||
		errors.Is(err, ErrMissingStartDate)
}
