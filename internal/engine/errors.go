package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/seqmine/internal/ir"
)

// ErrTooManyFailures is matched by errors.Is when a run aborts because the
// catalog failed too many times in a row.
var ErrTooManyFailures = errors.New("too many consecutive fetch failures")

// FailureError is the abort error of a run that hit its failure budget.
//
// Consecutive failures are read as a systemic outage (network down, catalog
// rate limiting us) rather than bad individual ids, so the whole run stops.
type FailureError struct {
	// Failures is the number of consecutive failed fetches.
	Failures int

	// LastID is the id whose fetch exhausted the budget.
	LastID ir.ID

	// Last is the error of that fetch.
	Last error
}

// Error implements the error interface.
func (e *FailureError) Error() string {
	return fmt.Sprintf("failed last %d sequences (at %s): %v", e.Failures, e.LastID, e.Last)
}

// Is makes errors.Is(err, ErrTooManyFailures) true.
func (e *FailureError) Is(target error) bool {
	return target == ErrTooManyFailures
}

// Unwrap returns the last fetch error.
func (e *FailureError) Unwrap() error {
	return e.Last
}

// IsFailureAbort reports whether err is a failure-budget abort.
// Uses errors.As to handle wrapped errors.
func IsFailureAbort(err error) bool {
	var fe *FailureError
	return errors.As(err, &fe)
}
