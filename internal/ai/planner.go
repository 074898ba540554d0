package ai

import (
	"context"

	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
)

var _ executor.Planner = (*Planner)(nil)

// Planner decomposes tasks into ordered steps.
type Planner struct {
	agent *Agent
}

// NewPlanner creates the planning agent.
func NewPlanner(opts Options) *Planner {
	return &Planner{agent: NewAgent("Planner", plannerSystemPrompt, opts)}
}

// ProposePlan asks for a plan, or a revision of previous when feedback is set.
// All proposals for one task share a conversation.
func (p *Planner) ProposePlan(ctx context.Context, task plan.Task, feedback string, previous *plan.Plan) (*plan.Plan, error) {
	return sendJSON(ctx, p.agent, "plan::"+task.Name, buildPlanPrompt(task, feedback, previous), plan.KindPlan, plan.ParsePlan)
}
