// Package msgs defines the Bubble Tea messages the run view receives from the
// engine goroutine.
package msgs

import "github.com/pablasso/crewflow/internal/plan"

// TaskStartedMsg is sent before the first collaborator call of a task.
type TaskStartedMsg struct {
	TaskNum int
	Total   int
	Name    string
}

// PlanProposedMsg carries the step ids of a proposal.
type PlanProposedMsg struct {
	Attempt int
	StepIDs []string
}

// PlanReviewedMsg is the verdict on the latest proposal.
type PlanReviewedMsg struct {
	Attempt  int
	Approved bool
	Feedback string
}

// StepStartedMsg is sent before each execution attempt.
type StepStartedMsg struct {
	StepID  string
	StepNum int
	Total   int
	Attempt int
}

// StepReviewedMsg is the verdict on one execution attempt.
type StepReviewedMsg struct {
	StepID         string
	Attempt        int
	Approved       bool
	RequiresReplan bool
	Quality        string
	Summary        string
	Feedback       string
}

// ReplanMsg is sent when a step review sends the task back to planning.
type ReplanMsg struct {
	StepID   string
	Feedback string
	Attempt  int
}

// TaskCompletedMsg is sent after the report of a task has been written.
type TaskCompletedMsg struct {
	Result *plan.TaskRunResult
}

// TaskFailedMsg is sent when a task aborts.
type TaskFailedMsg struct {
	Name string
	Err  error
}

// ResponseMsg carries a model response for the activity log.
type ResponseMsg struct {
	Role string
	Text string
}

// BatchDoneMsg signals that the engine goroutine has returned.
type BatchDoneMsg struct {
	Completed int
	Err       error
}
