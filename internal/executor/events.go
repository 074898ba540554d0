package executor

import "github.com/pablasso/crewflow/internal/plan"

// Events receives callbacks during a task run.
// Implement this interface in the TUI, progress printer or metrics recorder.
type Events interface {
	// OnTaskStart is called before the first collaborator call of a task
	OnTaskStart(task plan.Task, taskNum, total int)

	// OnPlanProposed is called for every plan proposal
	OnPlanProposed(task plan.Task, p *plan.Plan, attempt int)

	// OnPlanReviewed is called with the verdict on a proposal
	OnPlanReviewed(task plan.Task, review *plan.PlanReview, attempt int)

	// OnStepStart is called before each execution attempt
	OnStepStart(task plan.Task, step plan.Step, stepNum, total, attempt int)

	// OnStepReviewed is called once the attempt has been recorded
	OnStepReviewed(task plan.Task, result plan.StepResult)

	// OnReplan is called when a step review sends the task back to planning
	OnReplan(task plan.Task, stepID, feedback string, replanAttempt int)

	// OnTaskComplete is called after the report has been written
	OnTaskComplete(result *plan.TaskRunResult)

	// OnTaskFailed is called when a task aborts
	OnTaskFailed(task plan.Task, err error)
}

// NopEvents ignores every callback. Embed it to implement a subset of Events.
type NopEvents struct{}

func (NopEvents) OnTaskStart(plan.Task, int, int) {}
func (NopEvents) OnPlanProposed(plan.Task, *plan.Plan, int) {}
func (NopEvents) OnPlanReviewed(plan.Task, *plan.PlanReview, int) {}
func (NopEvents) OnStepStart(plan.Task, plan.Step, int, int, int) {}
func (NopEvents) OnStepReviewed(plan.Task, plan.StepResult) {}
func (NopEvents) OnReplan(plan.Task, string, string, int) {}
func (NopEvents) OnTaskComplete(*plan.TaskRunResult) {}
func (NopEvents) OnTaskFailed(plan.Task, error) {}

type multiEvents []Events

// MultiEvents fans callbacks out to every non-nil observer in order.
func MultiEvents(events ...Events) Events {
	var out multiEvents
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if nested, ok := ev.(multiEvents); ok {
			out = append(out, nested...)
			continue
		}
		out = append(out, ev)
	}
	switch len(out) {
	case 0:
		return NopEvents{}
	case 1:
		return out[0]
	}
	return out
}

func (m multiEvents) OnTaskStart(task plan.Task, taskNum, total int) {
	for _, ev := range m {
		ev.OnTaskStart(task, taskNum, total)
	}
}

func (m multiEvents) OnPlanProposed(task plan.Task, p *plan.Plan, attempt int) {
	for _, ev := range m {
		ev.OnPlanProposed(task, p, attempt)
	}
}

func (m multiEvents) OnPlanReviewed(task plan.Task, review *plan.PlanReview, attempt int) {
	for _, ev := range m {
		ev.OnPlanReviewed(task, review, attempt)
	}
}

func (m multiEvents) OnStepStart(task plan.Task, step plan.Step, stepNum, total, attempt int) {
	for _, ev := range m {
		ev.OnStepStart(task, step, stepNum, total, attempt)
	}
}

func (m multiEvents) OnStepReviewed(task plan.Task, result plan.StepResult) {
	for _, ev := range m {
		ev.OnStepReviewed(task, result)
	}
}

func (m multiEvents) OnReplan(task plan.Task, stepID, feedback string, replanAttempt int) {
	for _, ev := range m {
		ev.OnReplan(task, stepID, feedback, replanAttempt)
	}
}

func (m multiEvents) OnTaskComplete(result *plan.TaskRunResult) {
	for _, ev := range m {
		ev.OnTaskComplete(result)
	}
}

func (m multiEvents) OnTaskFailed(task plan.Task, err error) {
	for _, ev := range m {
		ev.OnTaskFailed(task, err)
	}
}
