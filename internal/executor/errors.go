package executor

import (
	"errors"
	"fmt"
)

// ErrBoundExceeded is matched by every *BoundError.
var ErrBoundExceeded = errors.New("bound exceeded")

// Bound names a configured retry limit.
type Bound string

const (
	BoundPlanIterations Bound = "max_plan_iterations"
	BoundStepIterations Bound = "max_step_iterations"
	BoundReplanAttempts Bound = "max_replan_attempts"
)

// BoundError reports which limit a task ran into. StepID is set only for
// BoundStepIterations.
type BoundError struct {
	Task   string
	Bound  Bound
	Limit  int
	StepID string
}

func (e *BoundError) Error() string {
	switch e.Bound {
	case BoundStepIterations:
		return fmt.Sprintf("task %q: step %q was not approved after %d attempts (%s)", e.Task, e.StepID, e.Limit, e.Bound)
	case BoundPlanIterations:
		return fmt.Sprintf("task %q: no plan approved after %d attempts (%s)", e.Task, e.Limit, e.Bound)
	default:
		return fmt.Sprintf("task %q: exceeded %s (%d)", e.Task, e.Bound, e.Limit)
	}
}

// Is makes every BoundError match ErrBoundExceeded.
func (e *BoundError) Is(target error) bool {
	return target == ErrBoundExceeded
}
