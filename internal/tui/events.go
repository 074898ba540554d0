package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pablasso/crewflow/internal/ai"
	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
	"github.com/pablasso/crewflow/internal/tui/msgs"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramEvents forwards engine events and model responses to a Bubble Tea
// program as messages.
type ProgramEvents struct {
	program Sender
}

var (
	_ executor.Events = (*ProgramEvents)(nil)
	_ ai.Presenter    = (*ProgramEvents)(nil)
)

// NewProgramEvents creates events that send to program.
func NewProgramEvents(program Sender) *ProgramEvents {
	return &ProgramEvents{program: program}
}

func (e *ProgramEvents) OnTaskStart(task plan.Task, taskNum, total int) {
	e.program.Send(msgs.TaskStartedMsg{TaskNum: taskNum, Total: total, Name: task.Name})
}

func (e *ProgramEvents) OnPlanProposed(task plan.Task, p *plan.Plan, attempt int) {
	ids := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		ids[i] = s.ID
		if ids[i] == "" {
			ids[i] = plan.DefaultStepID(i)
		}
	}
	e.program.Send(msgs.PlanProposedMsg{Attempt: attempt, StepIDs: ids})
}

func (e *ProgramEvents) OnPlanReviewed(task plan.Task, review *plan.PlanReview, attempt int) {
	e.program.Send(msgs.PlanReviewedMsg{Attempt: attempt, Approved: review.Approved, Feedback: string(review.Feedback)})
}

func (e *ProgramEvents) OnStepStart(task plan.Task, step plan.Step, stepNum, total, attempt int) {
	e.program.Send(msgs.StepStartedMsg{StepID: step.ID, StepNum: stepNum, Total: total, Attempt: attempt})
}

func (e *ProgramEvents) OnStepReviewed(task plan.Task, result plan.StepResult) {
	e.program.Send(msgs.StepReviewedMsg{
		StepID:         result.StepID,
		Attempt:        result.Attempt,
		Approved:       result.Review.Approved,
		RequiresReplan: result.Review.RequiresReplan,
		Quality:        string(result.Review.Quality),
		Summary:        result.Output.SummaryOrDefault(),
		Feedback:       string(result.Review.Feedback),
	})
}

func (e *ProgramEvents) OnReplan(task plan.Task, stepID, feedback string, replanAttempt int) {
	e.program.Send(msgs.ReplanMsg{StepID: stepID, Feedback: feedback, Attempt: replanAttempt})
}

func (e *ProgramEvents) OnTaskComplete(result *plan.TaskRunResult) {
	e.program.Send(msgs.TaskCompletedMsg{Result: result})
}

func (e *ProgramEvents) OnTaskFailed(task plan.Task, err error) {
	e.program.Send(msgs.TaskFailedMsg{Name: task.Name, Err: err})
}

// Show implements ai.Presenter.
func (e *ProgramEvents) Show(role, text string) {
	e.program.Send(msgs.ResponseMsg{Role: role, Text: text})
}
