package optimizer

import (
	"fmt"
	"time"
)

// InsufficientPlayerPoolError is returned when fewer eligible players remain
// than the roster has slots.
type InsufficientPlayerPoolError struct {
	Eligible int
	Required int
}

func (e *InsufficientPlayerPoolError) Error() string {
	return fmt.Sprintf("insufficient player pool: %d eligible players, need %d", e.Eligible, e.Required)
}

// InfeasibleError is returned when no assignment satisfies the constraint
// set. Partial results are never returned alongside it.
type InfeasibleError struct {
	Reason string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("optimization infeasible: %s", e.Reason)
}

// TimeoutError is returned when the caller-supplied time budget expires
// mid-search. Callers should retry with a smaller lineup count.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("optimization exceeded time budget of %s", e.Budget)
}
