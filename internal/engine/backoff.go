package engine

import "github.com/roach88/seqmine/internal/ir"

// DefaultMaxConsecutiveFailures is the failure budget of a run.
const DefaultMaxConsecutiveFailures = 10

// FailureBudget counts consecutive fetch failures and trips once the count
// reaches the limit. A success resets the count.
//
// It bounds how long a run keeps hammering an unreachable catalog. Single
// failures are tolerated; a streak is treated as an outage.
type FailureBudget struct {
	limit   int
	current int
}

// NewFailureBudget creates a budget that trips at limit consecutive
// failures. A non-positive limit selects DefaultMaxConsecutiveFailures.
func NewFailureBudget(limit int) *FailureBudget {
	if limit <= 0 {
		limit = DefaultMaxConsecutiveFailures
	}
	return &FailureBudget{limit: limit}
}

// Fail records a failed fetch of id. It returns a *FailureError once the
// streak reaches the limit.
func (b *FailureBudget) Fail(id ir.ID, err error) error {
	b.current++
	if b.current >= b.limit {
		return &FailureError{Failures: b.current, LastID: id, Last: err}
	}
	return nil
}

// Succeed resets the streak.
func (b *FailureBudget) Succeed() {
	b.current = 0
}

// Current returns the length of the current streak.
func (b *FailureBudget) Current() int {
	return b.current
}

// Limit returns the streak length that trips the budget.
func (b *FailureBudget) Limit() int {
	return b.limit
}
