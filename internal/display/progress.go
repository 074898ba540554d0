package display

import (
	"strings"
	"time"

	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
)

// Progress reports engine events as progress lines and keeps the status line
// in sync when it is running.
type Progress struct {
	d       *Display
	cfg     executor.Config
	now     func() time.Time
	started time.Time
}

var _ executor.Events = (*Progress)(nil)

// NewProgress creates a Progress reporting through d. cfg supplies the attempt
// limits shown next to each attempt.
func NewProgress(d *Display, cfg executor.Config) *Progress {
	return &Progress{d: d, cfg: cfg, now: time.Now}
}

func (p *Progress) OnTaskStart(task plan.Task, taskNum, total int) {
	p.started = p.now()
	p.d.BeginTask(taskNum, total, task.Name)
	p.d.PrintAbove("\nTask %d/%d: %s", taskNum, total, task.Name)
}

func (p *Progress) OnPlanProposed(task plan.Task, pl *plan.Plan, attempt int) {
	p.d.EnterPhase(PhasePlanning)
	p.d.PrintAbove("  Plan proposed [Attempt %d/%d]: %d steps", attempt, p.cfg.MaxPlanIterations, len(pl.Steps))
}

func (p *Progress) OnPlanReviewed(task plan.Task, review *plan.PlanReview, attempt int) {
	if review.Approved {
		p.d.PrintAbove("  Plan approved")
		return
	}
	p.d.PrintAbove("  Plan rejected: %s", oneLine(string(review.Feedback)))
}

func (p *Progress) OnStepStart(task plan.Task, step plan.Step, stepNum, total, attempt int) {
	p.d.EnterStep(stepNum, total, step.ID, attempt, p.cfg.MaxStepIterations)
	p.d.PrintAbove("  Step %d/%d: %s [Attempt %d/%d]", stepNum, total, step.ID, attempt, p.cfg.MaxStepIterations)
}

func (p *Progress) OnStepReviewed(task plan.Task, result plan.StepResult) {
	switch {
	case result.Review.Approved:
		quality := ""
		if result.Review.Quality != "" {
			quality = " (" + string(result.Review.Quality) + ")"
		}
		p.d.PrintAbove("    Approved%s: %s", quality, oneLine(result.Output.SummaryOrDefault()))
	case result.Review.RequiresReplan:
		p.d.PrintAbove("    Replan requested: %s", oneLine(string(result.Review.Feedback)))
	default:
		p.d.PrintAbove("    Rejected: %s", oneLine(string(result.Review.Feedback)))
	}
}

func (p *Progress) OnReplan(task plan.Task, stepID, feedback string, replanAttempt int) {
	p.d.EnterPhase(PhaseReplanning)
	p.d.PrintAbove("  Replanning after %s [%d/%d]", stepID, replanAttempt, p.cfg.MaxReplanAttempts)
}

func (p *Progress) OnTaskComplete(result *plan.TaskRunResult) {
	p.d.Finish(StatusCompleted)
	verdict := "approved"
	if !result.FinalReview.Approved {
		verdict = "not approved"
	}
	p.d.PrintAbove("Task completed! Final review %s (%s)", verdict, formatDuration(p.now().Sub(p.started)))
}

func (p *Progress) OnTaskFailed(task plan.Task, err error) {
	p.d.Finish(StatusFailed)
	p.d.PrintAbove("Task failed: %v", err)
}

// oneLine collapses whitespace so feedback fits a progress line.
func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "(no feedback)"
	}
	if len(s) > 100 {
		s = s[:97] + "..."
	}
	return s
}
