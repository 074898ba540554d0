package executor

import (
	"context"

	"github.com/pablasso/crewflow/internal/plan"
)

// Planner proposes plans. feedback and previous are empty on the first proposal
// of a run and carry the rejection context afterwards.
type Planner interface {
	ProposePlan(ctx context.Context, task plan.Task, feedback string, previous *plan.Plan) (*plan.Plan, error)
}

// Reviewer gates every advancement of the engine.
type Reviewer interface {
	ReviewPlan(ctx context.Context, task plan.Task, p *plan.Plan, iteration int) (*plan.PlanReview, error)
	ReviewStep(ctx context.Context, task plan.Task, step plan.Step, output *plan.ExecutionOutput, attempt int) (*plan.StepReview, error)
	FinalReview(ctx context.Context, task plan.Task, p *plan.Plan, results []plan.StepResult) (*plan.FinalReview, error)
}

// StepRunner executes one attempt of a step. prior holds the approved results
// of earlier steps, feedback the review of this step's previous attempt.
type StepRunner interface {
	ExecuteStep(ctx context.Context, task plan.Task, step plan.Step, prior []plan.StepResult, feedback string) (*plan.ExecutionOutput, error)
}

// Coordinator is optional. It briefs the task before planning and writes the
// closing narrative.
type Coordinator interface {
	Kickoff(ctx context.Context, task plan.Task) (string, error)
	Synthesize(ctx context.Context, task plan.Task, p *plan.Plan, results []plan.StepResult, final *plan.FinalReview) (string, error)
}

// ReportSink persists a finished run.
type ReportSink interface {
	Write(result *plan.TaskRunResult) error
}
