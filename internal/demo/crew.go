package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pablasso/crewflow/internal/ai"
	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/logging"
	"github.com/pablasso/crewflow/internal/plan"
	"github.com/pablasso/crewflow/internal/util"
)

// Compile-time interface verification
var (
	_ executor.Planner     = (*Crew)(nil)
	_ executor.Reviewer    = (*Crew)(nil)
	_ executor.StepRunner  = (*Crew)(nil)
	_ executor.Coordinator = (*Crew)(nil)
)

// Step ids of the scripted plans.
const (
	StepScope        = "scope"
	StepDraft        = "draft"
	StepDraftRevised = "draft-revised"
	StepPolish       = "polish"
)

// Crew plays every collaborator role with canned, deterministic responses.
// Responses are shown and recorded exactly like model responses so the rest
// of the pipeline behaves as in a live run.
type Crew struct {
	cfg       Config
	presenter ai.Presenter
	recorder  ai.Recorder
	logger    logrus.FieldLogger

	mu    sync.Mutex
	tasks map[string]*taskState
}

type taskState struct {
	planReviews int
	attempts    map[string]int
	replanned   bool
}

// NewCrew creates a scripted crew. presenter and recorder may be nil.
func NewCrew(cfg Config, presenter ai.Presenter, recorder ai.Recorder, logger logrus.FieldLogger) *Crew {
	return &Crew{
		cfg:       cfg,
		presenter: presenter,
		recorder:  recorder,
		logger:    logging.OrDiscard(logger).WithField("demo", string(cfg.Scenario)),
		tasks:     make(map[string]*taskState),
	}
}

func (c *Crew) state(task plan.Task) *taskState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tasks[task.Name]
	if !ok {
		st = &taskState{attempts: make(map[string]int)}
		c.tasks[task.Name] = st
	}
	return st
}

// Kickoff implements executor.Coordinator.
func (c *Crew) Kickoff(ctx context.Context, task plan.Task) (string, error) {
	if err := c.pause(ctx); err != nil {
		return "", err
	}
	note := fmt.Sprintf("Kickoff for %q: the Planner drafts a three step plan, the Executor works through it and the Reviewer gates each step.", task.Name)
	c.emit("Coordinator", note)
	return note, nil
}

// ProposePlan implements executor.Planner.
func (c *Crew) ProposePlan(ctx context.Context, task plan.Task, feedback string, previous *plan.Plan) (*plan.Plan, error) {
	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	st := c.state(task)
	draft := StepDraft
	c.mu.Lock()
	if st.replanned {
		draft = StepDraftRevised
	}
	c.mu.Unlock()

	p := &plan.Plan{
		Overview:    fmt.Sprintf("Deliver %q in three passes: scope, draft, polish.", task.Objective),
		Assumptions: append([]string{"Source material is available"}, task.Constraints...),
		Steps: []plan.Step{
			{ID: StepScope, Description: "Confirm the audience and the inputs.", SuccessCriteria: plan.StringList{"Inputs listed"}},
			{ID: draft, Description: "Write the first full version of the deliverable.", SuccessCriteria: plan.StringList{"Covers the objective"}},
			{ID: StepPolish, Description: "Tighten wording and check constraints.", SuccessCriteria: plan.StringList{"Constraints satisfied"}},
		},
	}
	if feedback != "" {
		p.Assumptions = append(p.Assumptions, "Addresses feedback: "+feedback)
	}
	c.emitJSON("Planner", p)
	return p, nil
}

// ReviewPlan implements executor.Reviewer.
func (c *Crew) ReviewPlan(ctx context.Context, task plan.Task, p *plan.Plan, iteration int) (*plan.PlanReview, error) {
	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	st := c.state(task)
	c.mu.Lock()
	st.planReviews++
	first := st.planReviews == 1
	c.mu.Unlock()

	review := &plan.PlanReview{Approved: true, Feedback: "The plan is well sequenced.", Confidence: "high"}
	if c.cfg.Scenario == ScenarioRejectedPlan && first {
		review = &plan.PlanReview{Approved: false, Feedback: "Add explicit success criteria for the draft.", Confidence: "medium"}
	}
	c.emitJSON("Reviewer", review)
	return review, nil
}

// ExecuteStep implements executor.StepRunner.
func (c *Crew) ExecuteStep(ctx context.Context, task plan.Task, step plan.Step, prior []plan.StepResult, feedback string) (*plan.ExecutionOutput, error) {
	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	st := c.state(task)
	c.mu.Lock()
	st.attempts[step.ID]++
	attempt := st.attempts[step.ID]
	c.mu.Unlock()

	out := &plan.ExecutionOutput{
		Summary:   fmt.Sprintf("Completed %s for %s (attempt %d).", step.ID, task.Name, attempt),
		Artifacts: plan.StringList{fmt.Sprintf("%s-%s.md", util.Slug(task.Name), step.ID)},
		Notes:     plan.Text(fmt.Sprintf("Built on %d approved step(s).", len(prior))),
	}
	if feedback != "" {
		out.Notes = plan.Text(fmt.Sprintf("%s Addressed: %s", out.Notes, feedback))
	}
	c.emitJSON("Executor", out)
	return out, nil
}

// ReviewStep implements executor.Reviewer.
func (c *Crew) ReviewStep(ctx context.Context, task plan.Task, step plan.Step, output *plan.ExecutionOutput, attempt int) (*plan.StepReview, error) {
	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	st := c.state(task)
	review := &plan.StepReview{Approved: true, Feedback: "Meets the success criteria.", Quality: plan.QualityHigh}

	switch c.cfg.Scenario {
	case ScenarioFlaky:
		if step.ID == StepDraft && attempt == 1 {
			review = &plan.StepReview{Feedback: "The draft skips the second success criterion.", Quality: plan.QualityMedium}
		}
	case ScenarioReplan:
		c.mu.Lock()
		if step.ID == StepDraft && !st.replanned {
			st.replanned = true
			review = &plan.StepReview{RequiresReplan: true, Feedback: "The draft depends on data the plan never gathers.", Quality: plan.QualityLow}
		}
		c.mu.Unlock()
	case ScenarioFail:
		if step.ID == StepScope {
			review = &plan.StepReview{Feedback: "Inputs are still missing.", Quality: plan.QualityLow}
		}
	}

	c.emitJSON("Reviewer", review)
	return review, nil
}

// FinalReview implements executor.Reviewer.
func (c *Crew) FinalReview(ctx context.Context, task plan.Task, p *plan.Plan, results []plan.StepResult) (*plan.FinalReview, error) {
	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	var highlights plan.StringList
	for _, r := range results {
		if r.Approved() {
			highlights = append(highlights, r.Output.SummaryOrDefault())
		}
	}
	final := &plan.FinalReview{
		Approved:   true,
		Feedback:   plan.Text(fmt.Sprintf("All %d steps approved.", len(p.Steps))),
		Highlights: highlights,
		Risks:      plan.StringList{"Scripted demo output, not real work."},
	}
	c.emitJSON("Reviewer", final)
	return final, nil
}

// Synthesize implements executor.Coordinator.
func (c *Crew) Synthesize(ctx context.Context, task plan.Task, p *plan.Plan, results []plan.StepResult, final *plan.FinalReview) (string, error) {
	if err := c.pause(ctx); err != nil {
		return "", err
	}
	summary := fmt.Sprintf("%s finished with %d recorded attempts.\n%s", task.Name, len(results), plan.Timeline(results))
	c.emit("Coordinator", summary)
	return summary, nil
}

func (c *Crew) pause(ctx context.Context) error {
	if c.cfg.CallDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.cfg.CallDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Crew) emitJSON(role string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.WithError(err).Warn("failed to encode demo response")
		return
	}
	c.emit(role, string(data))
}

func (c *Crew) emit(role, text string) {
	if c.presenter != nil {
		c.presenter.Show(role, text)
	}
	if c.recorder != nil {
		if err := c.recorder.Exchange(role, text); err != nil {
			c.logger.WithError(err).Warn("failed to record exchange")
		}
	}
}
