package executor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pablasso/crewflow/internal/logging"
	"github.com/pablasso/crewflow/internal/plan"
)

// DefaultReplanFeedback is handed to the planner when a step review asks for a
// replan without saying why.
const DefaultReplanFeedback = "Reviewer requested a re-plan during execution."

// Engine drives one task at a time through plan approval, step execution with
// review, and finalization. It issues one collaborator call at a time.
type Engine struct {
	cfg         Config
	planner     Planner
	reviewer    Reviewer
	runner      StepRunner
	coordinator Coordinator
	sink        ReportSink
	events      Events
	logger      logrus.FieldLogger
}

// New creates an Engine with the given bounds and mandatory collaborators.
func New(cfg Config, planner Planner, reviewer Reviewer, runner StepRunner) *Engine {
	return &Engine{
		cfg:      cfg,
		planner:  planner,
		reviewer: reviewer,
		runner:   runner,
		events:   NopEvents{},
		logger:   logging.Discard(),
	}
}

// WithCoordinator enables kickoff and synthesis.
func (e *Engine) WithCoordinator(c Coordinator) *Engine {
	e.coordinator = c
	return e
}

// WithSink sets where finished runs are reported.
func (e *Engine) WithSink(s ReportSink) *Engine {
	e.sink = s
	return e
}

// WithEvents sets the event observer.
func (e *Engine) WithEvents(ev Events) *Engine {
	if ev == nil {
		ev = NopEvents{}
	}
	e.events = ev
	return e
}

// WithLogger sets the structured logger.
func (e *Engine) WithLogger(l logrus.FieldLogger) *Engine {
	e.logger = logging.OrDiscard(l)
	return e
}

// Config returns the engine bounds.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run executes a single task and returns its result. Any collaborator error,
// malformed response or exceeded bound aborts the task.
func (e *Engine) Run(ctx context.Context, task plan.Task) (*plan.TaskRunResult, error) {
	return e.run(ctx, task, 1, 1)
}

func (e *Engine) run(ctx context.Context, task plan.Task, taskNum, total int) (result *plan.TaskRunResult, err error) {
	task = task.Clone()
	log := e.logger.WithField("task", task.Name)

	e.events.OnTaskStart(task, taskNum, total)
	defer func() {
		if err != nil {
			log.WithError(err).Error("task failed")
			e.events.OnTaskFailed(task, err)
		}
	}()

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	if e.coordinator != nil {
		note, err := e.coordinator.Kickoff(ctx, task)
		if err != nil {
			return nil, callError(task, "kickoff", err)
		}
		log.WithField("chars", len(note)).Debug("kickoff received")
	}

	var (
		previous *plan.Plan
		feedback string
		attempts int
	)
	for {
		approved, err := e.approvePlan(ctx, task, feedback, previous, &attempts)
		if err != nil {
			return nil, err
		}

		// Replans are counted per approved plan. Every replan goes back to
		// approvePlan, which draws from the same plan budget.
		replans := 0
		outcome, err := e.executePlan(ctx, task, approved)
		if err != nil {
			return nil, err
		}
		if !outcome.replan {
			return e.finalize(ctx, task, approved, outcome.results)
		}

		replans++
		if replans > e.cfg.MaxReplanAttempts {
			return nil, &BoundError{Task: task.Name, Bound: BoundReplanAttempts, Limit: e.cfg.MaxReplanAttempts}
		}

		feedback = outcome.feedback
		if feedback == "" {
			feedback = DefaultReplanFeedback
		}
		previous = approved
		log.WithFields(logrus.Fields{"step": outcome.stepID, "plan_attempts": attempts}).Info("replanning")
		e.events.OnReplan(task, outcome.stepID, feedback, replans)
	}
}

// approvePlan proposes and reviews plans until one is approved. attempts
// counts proposals over the whole task, so a replan does not refund the
// MaxPlanIterations budget and review iterations keep counting up.
func (e *Engine) approvePlan(ctx context.Context, task plan.Task, feedback string, previous *plan.Plan, attempts *int) (*plan.Plan, error) {
	log := e.logger.WithField("task", task.Name)

	for *attempts < e.cfg.MaxPlanIterations {
		*attempts++
		attempt := *attempts
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		proposed, err := e.planner.ProposePlan(ctx, task, feedback, previous.Clone())
		if err != nil {
			return nil, callError(task, "propose plan", err)
		}
		if proposed == nil {
			return nil, callError(task, "propose plan", emptyResponse(plan.KindPlan))
		}
		proposed = proposed.Clone()
		e.warnDuplicateStepIDs(log, proposed)
		e.events.OnPlanProposed(task, proposed, attempt)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		review, err := e.reviewer.ReviewPlan(ctx, task, proposed.Clone(), attempt)
		if err != nil {
			return nil, callError(task, "review plan", err)
		}
		if review == nil {
			return nil, callError(task, "review plan", emptyResponse(plan.KindPlanReview))
		}
		e.events.OnPlanReviewed(task, review, attempt)

		if review.Approved {
			log.WithFields(logrus.Fields{"attempt": attempt, "steps": len(proposed.Steps)}).Info("plan approved")
			return proposed, nil
		}

		log.WithField("attempt", attempt).Info("plan rejected")
		feedback = string(review.Feedback)
		previous = proposed
	}

	return nil, &BoundError{Task: task.Name, Bound: BoundPlanIterations, Limit: e.cfg.MaxPlanIterations}
}

// planOutcome is either a complete result history or a replan request.
type planOutcome struct {
	results  []plan.StepResult
	replan   bool
	feedback string
	stepID   string
}

// executePlan runs the steps of an approved plan strictly in order.
func (e *Engine) executePlan(ctx context.Context, task plan.Task, p *plan.Plan) (*planOutcome, error) {
	all := []plan.StepResult{}
	var approved []plan.StepResult

	for i := range p.Steps {
		step := p.Steps[i].Clone()
		if step.ID == "" {
			step.ID = plan.DefaultStepID(i)
		}

		outcome, err := e.executeStep(ctx, task, step, i+1, len(p.Steps), approved, &all)
		if err != nil {
			return nil, err
		}
		if outcome.replan {
			return &planOutcome{replan: true, feedback: outcome.feedback, stepID: step.ID}, nil
		}
		approved = append(approved, *outcome.approved)
	}

	return &planOutcome{results: all}, nil
}

type stepOutcome struct {
	approved *plan.StepResult
	replan   bool
	feedback string
}

// executeStep retries a single step until it is approved, a replan is
// requested, or MaxStepIterations is exhausted. Every attempt is appended to all.
func (e *Engine) executeStep(ctx context.Context, task plan.Task, step plan.Step, stepNum, total int, approved []plan.StepResult, all *[]plan.StepResult) (*stepOutcome, error) {
	log := e.logger.WithFields(logrus.Fields{"task": task.Name, "step": step.ID})
	var feedback string

	for attempt := 1; attempt <= e.cfg.MaxStepIterations; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.events.OnStepStart(task, step, stepNum, total, attempt)

		prior := append([]plan.StepResult(nil), approved...)
		output, err := e.runner.ExecuteStep(ctx, task, step.Clone(), prior, feedback)
		if err != nil {
			return nil, callError(task, fmt.Sprintf("execute step %q", step.ID), err)
		}
		if output == nil {
			return nil, callError(task, fmt.Sprintf("execute step %q", step.ID), emptyResponse(plan.KindExecutionOutput))
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outputCopy := *output
		review, err := e.reviewer.ReviewStep(ctx, task, step.Clone(), &outputCopy, attempt)
		if err != nil {
			return nil, callError(task, fmt.Sprintf("review step %q", step.ID), err)
		}
		if review == nil {
			return nil, callError(task, fmt.Sprintf("review step %q", step.ID), emptyResponse(plan.KindStepReview))
		}

		result := plan.StepResult{
			StepID:  step.ID,
			Attempt: attempt,
			Step:    step,
			Output:  *output,
			Review:  *review,
		}
		*all = append(*all, result)
		e.events.OnStepReviewed(task, result)

		attemptLog := log.WithFields(logrus.Fields{"attempt": attempt, "quality": review.Quality})
		if review.Approved {
			if review.ConflictingVerdict() {
				attemptLog.Warn("review both approved the step and requested a replan; approval wins")
			}
			attemptLog.Info("step approved")
			return &stepOutcome{approved: &result}, nil
		}
		if review.RequiresReplan {
			attemptLog.Info("step review requested a replan")
			return &stepOutcome{replan: true, feedback: string(review.Feedback)}, nil
		}

		attemptLog.Info("step rejected")
		feedback = string(review.Feedback)
	}

	return nil, &BoundError{Task: task.Name, Bound: BoundStepIterations, Limit: e.cfg.MaxStepIterations, StepID: step.ID}
}

// finalize requests the final review and optional synthesis, then reports.
func (e *Engine) finalize(ctx context.Context, task plan.Task, p *plan.Plan, results []plan.StepResult) (*plan.TaskRunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	final, err := e.reviewer.FinalReview(ctx, task, p.Clone(), append([]plan.StepResult(nil), results...))
	if err != nil {
		return nil, callError(task, "final review", err)
	}
	if final == nil {
		return nil, callError(task, "final review", emptyResponse(plan.KindFinalReview))
	}

	var synthesis string
	if e.coordinator != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		finalCopy := *final
		synthesis, err = e.coordinator.Synthesize(ctx, task, p.Clone(), append([]plan.StepResult(nil), results...), &finalCopy)
		if err != nil {
			return nil, callError(task, "synthesize", err)
		}
	}

	result := &plan.TaskRunResult{
		Task:        task,
		Plan:        *p,
		StepResults: results,
		FinalReview: *final,
		Synthesis:   synthesis,
	}

	if e.sink != nil {
		if err := e.sink.Write(result); err != nil {
			return nil, fmt.Errorf("task %q: write report: %w", task.Name, err)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"task":         task.Name,
		"step_results": len(results),
		"approved":     final.Approved,
	}).Info("task completed")
	e.events.OnTaskComplete(result)
	return result, nil
}

func (e *Engine) warnDuplicateStepIDs(log logrus.FieldLogger, p *plan.Plan) {
	seen := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		id := s.ID
		if id == "" {
			id = plan.DefaultStepID(i)
		}
		if seen[id] {
			log.WithField("step", id).Warn("plan contains duplicate step id")
		}
		seen[id] = true
	}
}

func callError(task plan.Task, call string, err error) error {
	return fmt.Errorf("task %q: %s: %w", task.Name, call, err)
}

func emptyResponse(kind string) error {
	return &plan.ParseError{Kind: kind, Reason: "empty response"}
}
