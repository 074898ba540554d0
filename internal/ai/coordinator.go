package ai

import (
	"context"

	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
)

var _ executor.Coordinator = (*Coordinator)(nil)

// Coordinator briefs a task before planning and summarizes it afterwards.
type Coordinator struct {
	agent *Agent
}

// NewCoordinator creates the coordinating agent.
func NewCoordinator(opts Options) *Coordinator {
	return &Coordinator{agent: NewAgent("Coordinator", coordinatorSystemPrompt, opts)}
}

// Kickoff asks for a short Markdown note on where to start with task.
func (c *Coordinator) Kickoff(ctx context.Context, task plan.Task) (string, error) {
	return c.agent.Send(ctx, "coord::"+task.Name, buildKickoffPrompt(task), false)
}

// Synthesize summarizes a finished run from its plan, step timeline and final review.
func (c *Coordinator) Synthesize(ctx context.Context, task plan.Task, p *plan.Plan, results []plan.StepResult, final *plan.FinalReview) (string, error) {
	return c.agent.Send(ctx, "coord-summary::"+task.Name, buildSynthesisPrompt(task, p, results, final), false)
}
