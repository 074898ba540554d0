package ai

import (
	"context"

	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
)

var _ executor.Reviewer = (*Reviewer)(nil)

// Reviewer validates plans, step outputs and the finished run.
type Reviewer struct {
	agent *Agent
}

// NewReviewer creates the reviewing agent.
func NewReviewer(opts Options) *Reviewer {
	return &Reviewer{agent: NewAgent("Reviewer", reviewerSystemPrompt, opts)}
}

func (r *Reviewer) ReviewPlan(ctx context.Context, task plan.Task, p *plan.Plan, iteration int) (*plan.PlanReview, error) {
	return sendJSON(ctx, r.agent, "plan-review::"+task.Name, buildPlanReviewPrompt(task, p, iteration), plan.KindPlanReview, plan.ParsePlanReview)
}

func (r *Reviewer) ReviewStep(ctx context.Context, task plan.Task, step plan.Step, output *plan.ExecutionOutput, attempt int) (*plan.StepReview, error) {
	id := "step-review::" + task.Name + "::" + step.ID
	return sendJSON(ctx, r.agent, id, buildStepReviewPrompt(task, step, output, attempt), plan.KindStepReview, plan.ParseStepReview)
}

func (r *Reviewer) FinalReview(ctx context.Context, task plan.Task, p *plan.Plan, results []plan.StepResult) (*plan.FinalReview, error) {
	return sendJSON(ctx, r.agent, "final-review::"+task.Name, buildFinalReviewPrompt(task, p, results), plan.KindFinalReview, plan.ParseFinalReview)
}
