package executor

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pablasso/crewflow/internal/plan"
)

type proposeCall struct {
	Feedback string
	Previous *plan.Plan
}

type executeCall struct {
	StepID   string
	Prior    []plan.StepResult
	Feedback string
}

type stepReviewCall struct {
	StepID  string
	Attempt int
}

// scripted is a test double for every collaborator. Responses are consumed in
// order; when a queue runs dry the last entry (or a default) is repeated.
type scripted struct {
	Plans       []*plan.Plan
	PlanReviews []*plan.PlanReview
	Outputs     []*plan.ExecutionOutput
	StepReviews []*plan.StepReview
	Final       *plan.FinalReview
	Synthesis   string
	Errors      map[string]error

	ProposeCalls    []proposeCall
	PlanReviewCalls []int
	ExecuteCalls    []executeCall
	StepReviewCalls []stepReviewCall
	FinalCalls      [][]plan.StepResult
	KickoffCalls    int
	SynthesizeCalls int
	Calls           []string
}

func pick[T any](items []T, i int, fallback T) T {
	if len(items) == 0 {
		return fallback
	}
	if i < len(items) {
		return items[i]
	}
	return items[len(items)-1]
}

func (s *scripted) err(call string) error {
	if s.Errors == nil {
		return nil
	}
	return s.Errors[call]
}

func (s *scripted) ProposePlan(ctx context.Context, task plan.Task, feedback string, previous *plan.Plan) (*plan.Plan, error) {
	s.Calls = append(s.Calls, "propose")
	s.ProposeCalls = append(s.ProposeCalls, proposeCall{Feedback: feedback, Previous: previous})
	if err := s.err("propose"); err != nil {
		return nil, err
	}
	return pick(s.Plans, len(s.ProposeCalls)-1, &plan.Plan{}).Clone(), nil
}

func (s *scripted) ReviewPlan(ctx context.Context, task plan.Task, p *plan.Plan, iteration int) (*plan.PlanReview, error) {
	s.Calls = append(s.Calls, "review_plan")
	s.PlanReviewCalls = append(s.PlanReviewCalls, iteration)
	if err := s.err("review_plan"); err != nil {
		return nil, err
	}
	return pick(s.PlanReviews, len(s.PlanReviewCalls)-1, &plan.PlanReview{Approved: true}), nil
}

func (s *scripted) ExecuteStep(ctx context.Context, task plan.Task, step plan.Step, prior []plan.StepResult, feedback string) (*plan.ExecutionOutput, error) {
	s.Calls = append(s.Calls, "execute:"+step.ID)
	s.ExecuteCalls = append(s.ExecuteCalls, executeCall{StepID: step.ID, Prior: prior, Feedback: feedback})
	if err := s.err("execute"); err != nil {
		return nil, err
	}
	return pick(s.Outputs, len(s.ExecuteCalls)-1, &plan.ExecutionOutput{Summary: "done"}), nil
}

func (s *scripted) ReviewStep(ctx context.Context, task plan.Task, step plan.Step, output *plan.ExecutionOutput, attempt int) (*plan.StepReview, error) {
	s.Calls = append(s.Calls, "review_step:"+step.ID)
	s.StepReviewCalls = append(s.StepReviewCalls, stepReviewCall{StepID: step.ID, Attempt: attempt})
	if err := s.err("review_step"); err != nil {
		return nil, err
	}
	return pick(s.StepReviews, len(s.StepReviewCalls)-1, &plan.StepReview{Approved: true, Quality: plan.QualityHigh}), nil
}

func (s *scripted) FinalReview(ctx context.Context, task plan.Task, p *plan.Plan, results []plan.StepResult) (*plan.FinalReview, error) {
	s.Calls = append(s.Calls, "final_review")
	s.FinalCalls = append(s.FinalCalls, results)
	if err := s.err("final_review"); err != nil {
		return nil, err
	}
	if s.Final != nil {
		return s.Final, nil
	}
	return &plan.FinalReview{Approved: true, Feedback: "ok"}, nil
}

func (s *scripted) Kickoff(ctx context.Context, task plan.Task) (string, error) {
	s.Calls = append(s.Calls, "kickoff")
	s.KickoffCalls++
	return "focus on basics", s.err("kickoff")
}

func (s *scripted) Synthesize(ctx context.Context, task plan.Task, p *plan.Plan, results []plan.StepResult, final *plan.FinalReview) (string, error) {
	s.Calls = append(s.Calls, "synthesize")
	s.SynthesizeCalls++
	return s.Synthesis, s.err("synthesize")
}

func (s *scripted) count(prefix string) int {
	n := 0
	for _, c := range s.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type recordingSink struct {
	Results []*plan.TaskRunResult
	Err     error
}

func (r *recordingSink) Write(result *plan.TaskRunResult) error {
	r.Results = append(r.Results, result)
	return r.Err
}

func newTestEngine(s *scripted, cfg Config) *Engine {
	return New(cfg, s, s, s)
}

func twoStepPlan() *plan.Plan {
	return &plan.Plan{
		Overview: "two steps",
		Steps:    []plan.Step{{ID: "step-1"}, {ID: "step-2"}},
	}
}

func TestEngine_EndToEndExample(t *testing.T) {
	s := &scripted{
		Plans:       []*plan.Plan{{Overview: "o", Steps: []plan.Step{{ID: "step-1"}}}},
		PlanReviews: []*plan.PlanReview{{Approved: true}},
		Outputs:     []*plan.ExecutionOutput{{Summary: "done"}},
		StepReviews: []*plan.StepReview{{Approved: true, Quality: plan.QualityHigh}},
		Final:       &plan.FinalReview{Approved: true, Feedback: "ok"},
	}
	sink := &recordingSink{}
	engine := newTestEngine(s, DefaultConfig()).WithSink(sink)

	result, err := engine.Run(context.Background(), plan.Task{Name: "t1", Objective: "demo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.StepResults) != 1 {
		t.Fatalf("expected 1 step result, got %d", len(result.StepResults))
	}
	sr := result.StepResults[0]
	if sr.Attempt != 1 || sr.StepID != "step-1" || !sr.Approved() {
		t.Errorf("unexpected step result: %+v", sr)
	}
	if sr.Output.Summary != "done" {
		t.Errorf("output not recorded: %+v", sr.Output)
	}
	if !reflect.DeepEqual(result.Plan, *s.Plans[0]) {
		t.Errorf("plan not stored verbatim: got %+v, want %+v", result.Plan, *s.Plans[0])
	}
	if result.FinalReview.Feedback != "ok" {
		t.Errorf("final review mismatch: %+v", result.FinalReview)
	}
	if result.Synthesis != "" {
		t.Errorf("no coordinator configured, expected empty synthesis, got %q", result.Synthesis)
	}
	if len(sink.Results) != 1 || sink.Results[0] != result {
		t.Errorf("expected result handed to sink once, got %d", len(sink.Results))
	}

	wantCalls := []string{"propose", "review_plan", "execute:step-1", "review_step:step-1", "final_review"}
	if !reflect.DeepEqual(s.Calls, wantCalls) {
		t.Errorf("call order mismatch:\ngot  %v\nwant %v", s.Calls, wantCalls)
	}
}

func TestEngine_PlanRejectedThenApproved(t *testing.T) {
	for k := 0; k < DefaultMaxPlanIterations; k++ {
		var reviews []*plan.PlanReview
		for i := 0; i < k; i++ {
			reviews = append(reviews, &plan.PlanReview{Approved: false, Feedback: plan.Text("fix " + string(rune('a'+i)))})
		}
		reviews = append(reviews, &plan.PlanReview{Approved: true})

		s := &scripted{Plans: []*plan.Plan{twoStepPlan()}, PlanReviews: reviews}
		if _, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"}); err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}

		if len(s.ProposeCalls) != k+1 {
			t.Errorf("k=%d: expected %d proposals, got %d", k, k+1, len(s.ProposeCalls))
		}
		if len(s.PlanReviewCalls) != k+1 {
			t.Errorf("k=%d: expected %d plan reviews, got %d", k, k+1, len(s.PlanReviewCalls))
		}
		for i, iteration := range s.PlanReviewCalls {
			if iteration != i+1 {
				t.Errorf("k=%d: review %d got iteration %d", k, i, iteration)
			}
		}
		if s.ProposeCalls[0].Feedback != "" || s.ProposeCalls[0].Previous != nil {
			t.Errorf("k=%d: first proposal should carry no feedback, got %+v", k, s.ProposeCalls[0])
		}
		for i := 1; i <= k; i++ {
			call := s.ProposeCalls[i]
			if call.Feedback != string(reviews[i-1].Feedback) {
				t.Errorf("k=%d: proposal %d feedback got %q, want %q", k, i+1, call.Feedback, reviews[i-1].Feedback)
			}
			if call.Previous == nil || call.Previous.Overview != "two steps" {
				t.Errorf("k=%d: proposal %d should carry the rejected plan", k, i+1)
			}
		}
	}
}

func TestEngine_PlanBoundExceeded(t *testing.T) {
	s := &scripted{
		Plans:       []*plan.Plan{twoStepPlan()},
		PlanReviews: []*plan.PlanReview{{Approved: false, Feedback: "no"}},
	}
	_, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var boundErr *BoundError
	if !errors.As(err, &boundErr) {
		t.Fatalf("expected *BoundError, got %T: %v", err, err)
	}
	if boundErr.Bound != BoundPlanIterations || boundErr.Task != "t" || boundErr.Limit != 3 {
		t.Errorf("unexpected bound error: %+v", boundErr)
	}
	if !errors.Is(err, ErrBoundExceeded) {
		t.Error("expected errors.Is(err, ErrBoundExceeded)")
	}
	if len(s.ProposeCalls) != 3 {
		t.Errorf("expected 3 proposals, got %d", len(s.ProposeCalls))
	}
	if len(s.ExecuteCalls) != 0 || len(s.FinalCalls) != 0 {
		t.Error("no step should run without an approved plan")
	}
}

func TestEngine_StepApprovedOnAttempt(t *testing.T) {
	s := &scripted{
		Plans: []*plan.Plan{twoStepPlan()},
		StepReviews: []*plan.StepReview{
			{Approved: false, Feedback: "more detail"},
			{Approved: false, Feedback: "still thin"},
			{Approved: true, Quality: plan.QualityMedium},
			{Approved: true, Quality: plan.QualityHigh},
		},
		Outputs: []*plan.ExecutionOutput{
			{Summary: "a1"}, {Summary: "a2"}, {Summary: "a3"}, {Summary: "b1"},
		},
	}
	result, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.count("execute:step-1") != 3 || s.count("review_step:step-1") != 3 {
		t.Errorf("expected 3 round-trips for step-1, got %d/%d", s.count("execute:step-1"), s.count("review_step:step-1"))
	}
	if s.count("execute:step-2") != 1 {
		t.Errorf("expected 1 round-trip for step-2, got %d", s.count("execute:step-2"))
	}

	wantFeedback := []string{"", "more detail", "still thin", ""}
	for i, call := range s.ExecuteCalls {
		if call.Feedback != wantFeedback[i] {
			t.Errorf("execute %d feedback got %q, want %q", i, call.Feedback, wantFeedback[i])
		}
	}
	for i := 0; i < 3; i++ {
		if len(s.ExecuteCalls[i].Prior) != 0 {
			t.Errorf("step-1 attempt %d should have no prior results", i+1)
		}
	}
	prior := s.ExecuteCalls[3].Prior
	if len(prior) != 1 || prior[0].StepID != "step-1" || prior[0].Attempt != 3 || prior[0].Output.Summary != "a3" {
		t.Errorf("step-2 should receive exactly the approved step-1 result, got %+v", prior)
	}

	if len(result.StepResults) != 4 {
		t.Fatalf("expected all 4 attempts retained, got %d", len(result.StepResults))
	}
	for i, want := range []int{1, 2, 3, 1} {
		if result.StepResults[i].Attempt != want {
			t.Errorf("result %d attempt got %d, want %d", i, result.StepResults[i].Attempt, want)
		}
	}
	if len(result.ApprovedResults()) != 2 {
		t.Errorf("expected 2 approved results, got %d", len(result.ApprovedResults()))
	}
	if len(s.FinalCalls) != 1 || len(s.FinalCalls[0]) != 4 {
		t.Errorf("final review should see the full history")
	}
}

func TestEngine_StepBoundExceeded(t *testing.T) {
	s := &scripted{
		Plans:       []*plan.Plan{twoStepPlan()},
		StepReviews: []*plan.StepReview{{Approved: true}, {Approved: false, Feedback: "nope"}},
	}
	cfg := DefaultConfig()
	cfg.MaxStepIterations = 2

	_, err := newTestEngine(s, cfg).Run(context.Background(), plan.Task{Name: "t"})
	var boundErr *BoundError
	if !errors.As(err, &boundErr) {
		t.Fatalf("expected *BoundError, got %v", err)
	}
	if boundErr.Bound != BoundStepIterations || boundErr.StepID != "step-2" || boundErr.Limit != 2 {
		t.Errorf("unexpected bound error: %+v", boundErr)
	}
	if !strings.Contains(err.Error(), `step "step-2"`) {
		t.Errorf("error should name the step: %v", err)
	}
	if s.count("execute:step-2") != 2 {
		t.Errorf("expected 2 attempts on step-2, got %d", s.count("execute:step-2"))
	}
	if len(s.FinalCalls) != 0 {
		t.Error("final review must not run after a failed step")
	}
}

func TestEngine_ReplanAbortsRemainingSteps(t *testing.T) {
	first := &plan.Plan{Overview: "first", Steps: []plan.Step{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	second := &plan.Plan{Overview: "second", Steps: []plan.Step{{ID: "x"}}}
	s := &scripted{
		Plans: []*plan.Plan{first, second},
		StepReviews: []*plan.StepReview{
			{Approved: true},
			{Approved: false, RequiresReplan: true, Feedback: "wrong order"},
			{Approved: true},
		},
	}

	result, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.count("execute:c") != 0 {
		t.Error("step c should never run after a replan at step b")
	}
	if s.count("execute:b") != 1 {
		t.Errorf("replan should not retry the step, got %d attempts", s.count("execute:b"))
	}
	if len(s.ProposeCalls) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(s.ProposeCalls))
	}
	replan := s.ProposeCalls[1]
	if replan.Feedback != "wrong order" {
		t.Errorf("replan feedback got %q, want %q", replan.Feedback, "wrong order")
	}
	if replan.Previous == nil || replan.Previous.Overview != "first" {
		t.Errorf("replan should carry the aborted plan as previous, got %+v", replan.Previous)
	}

	if result.Plan.Overview != "second" {
		t.Errorf("result should hold the final approved plan, got %q", result.Plan.Overview)
	}
	if len(result.StepResults) != 1 || result.StepResults[0].StepID != "x" {
		t.Errorf("result should hold only the final plan's history, got %+v", result.StepResults)
	}
}

func TestEngine_ReplanWithoutFeedbackUsesDefault(t *testing.T) {
	s := &scripted{
		Plans: []*plan.Plan{twoStepPlan()},
		StepReviews: []*plan.StepReview{
			{Approved: false, RequiresReplan: true},
			{Approved: true},
		},
	}
	if _, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ProposeCalls[1].Feedback != DefaultReplanFeedback {
		t.Errorf("expected default replan feedback, got %q", s.ProposeCalls[1].Feedback)
	}
}

func TestEngine_EndlessReplansExhaustPlanBudget(t *testing.T) {
	s := &scripted{
		Plans:       []*plan.Plan{twoStepPlan()},
		StepReviews: []*plan.StepReview{{Approved: false, RequiresReplan: true, Feedback: "again"}},
	}
	_, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"})

	var boundErr *BoundError
	if !errors.As(err, &boundErr) {
		t.Fatalf("expected *BoundError, got %v", err)
	}
	if boundErr.Bound != BoundPlanIterations || boundErr.Limit != DefaultMaxPlanIterations {
		t.Errorf("unexpected bound error: %+v", boundErr)
	}
	if len(s.ProposeCalls) != DefaultMaxPlanIterations {
		t.Errorf("expected %d proposals, got %d", DefaultMaxPlanIterations, len(s.ProposeCalls))
	}
}

func TestEngine_ReplanSharesPlanBudget(t *testing.T) {
	s := &scripted{
		Plans: []*plan.Plan{twoStepPlan()},
		PlanReviews: []*plan.PlanReview{
			{Approved: false}, {Approved: false}, {Approved: true},
			{Approved: false}, {Approved: false}, {Approved: true},
		},
		StepReviews: []*plan.StepReview{
			{Approved: false, RequiresReplan: true},
			{Approved: true},
		},
	}
	_, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"})

	var boundErr *BoundError
	if !errors.As(err, &boundErr) || boundErr.Bound != BoundPlanIterations {
		t.Fatalf("expected max_plan_iterations bound error, got %v", err)
	}
	if len(s.ProposeCalls) != 3 {
		t.Errorf("expected 3 proposals, got %d", len(s.ProposeCalls))
	}
	if !reflect.DeepEqual(s.PlanReviewCalls, []int{1, 2, 3}) {
		t.Errorf("plan review iterations = %v, want [1 2 3]", s.PlanReviewCalls)
	}
}

func TestEngine_ReplanIterationKeepsCounting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPlanIterations = 4
	s := &scripted{
		Plans: []*plan.Plan{twoStepPlan()},
		PlanReviews: []*plan.PlanReview{
			{Approved: false}, {Approved: true},
			{Approved: false}, {Approved: true},
		},
		StepReviews: []*plan.StepReview{
			{Approved: false, RequiresReplan: true},
			{Approved: true},
		},
	}
	if _, err := newTestEngine(s, cfg).Run(context.Background(), plan.Task{Name: "t"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s.PlanReviewCalls, []int{1, 2, 3, 4}) {
		t.Errorf("plan review iterations = %v, want [1 2 3 4]", s.PlanReviewCalls)
	}
}

func TestEngine_ReplansCountedPerApprovedPlan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxReplanAttempts = 1
	s := &scripted{
		Plans: []*plan.Plan{twoStepPlan()},
		StepReviews: []*plan.StepReview{
			{Approved: false, RequiresReplan: true, Feedback: "first"},
			{Approved: false, RequiresReplan: true, Feedback: "second"},
			{Approved: true},
		},
	}
	if _, err := newTestEngine(s, cfg).Run(context.Background(), plan.Task{Name: "t"}); err != nil {
		t.Fatalf("two replans of different plans should be allowed, got %v", err)
	}
	if len(s.ProposeCalls) != 3 {
		t.Errorf("expected 3 proposals, got %d", len(s.ProposeCalls))
	}
}

func TestEngine_ZeroStepPlan(t *testing.T) {
	s := &scripted{Plans: []*plan.Plan{{Overview: "nothing to do"}}}
	sink := &recordingSink{}

	result, err := newTestEngine(s, DefaultConfig()).WithSink(sink).Run(context.Background(), plan.Task{Name: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StepResults == nil || len(result.StepResults) != 0 {
		t.Errorf("expected empty, non-nil step history, got %#v", result.StepResults)
	}
	if len(s.FinalCalls) != 1 {
		t.Errorf("final review should still run, got %d calls", len(s.FinalCalls))
	}
	if len(s.ExecuteCalls) != 0 {
		t.Error("no step should execute")
	}
	if len(sink.Results) != 1 {
		t.Error("report should still be written")
	}
}

func TestEngine_ApprovalWinsOverReplan(t *testing.T) {
	s := &scripted{
		Plans:       []*plan.Plan{twoStepPlan()},
		StepReviews: []*plan.StepReview{{Approved: true, RequiresReplan: true}, {Approved: true}},
	}
	result, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.ProposeCalls) != 1 {
		t.Errorf("approval should take precedence, got %d proposals", len(s.ProposeCalls))
	}
	if len(result.StepResults) != 2 {
		t.Errorf("expected both steps to complete, got %d results", len(result.StepResults))
	}
}

func TestEngine_SynthesizesMissingStepIDs(t *testing.T) {
	p := &plan.Plan{Steps: []plan.Step{{Description: "first"}, {ID: "custom"}, {Description: "third"}}}
	s := &scripted{Plans: []*plan.Plan{p}}

	result, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []string
	for _, c := range s.ExecuteCalls {
		ids = append(ids, c.StepID)
	}
	if !reflect.DeepEqual(ids, []string{"step-1", "custom", "step-3"}) {
		t.Errorf("unexpected step ids: %v", ids)
	}
	if result.StepResults[0].Step.ID != "step-1" {
		t.Errorf("step result should carry the synthesized id, got %q", result.StepResults[0].Step.ID)
	}
	if result.Plan.Steps[0].ID != "" {
		t.Errorf("stored plan should stay verbatim, got id %q", result.Plan.Steps[0].ID)
	}
}

func TestEngine_CollaboratorErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	for _, call := range []string{"propose", "review_plan", "execute", "review_step", "final_review", "kickoff", "synthesize"} {
		t.Run(call, func(t *testing.T) {
			s := &scripted{
				Plans:  []*plan.Plan{twoStepPlan()},
				Errors: map[string]error{call: boom},
			}
			engine := newTestEngine(s, DefaultConfig()).WithCoordinator(s)
			_, err := engine.Run(context.Background(), plan.Task{Name: "t"})
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped boom, got %v", err)
			}
			if !strings.Contains(err.Error(), `task "t"`) {
				t.Errorf("error should name the task: %v", err)
			}
		})
	}
}

func TestEngine_MalformedResponseIsFatal(t *testing.T) {
	malformed := &plan.ParseError{Kind: plan.KindStepReview, Reason: "missing \"approved\""}
	s := &scripted{
		Plans:  []*plan.Plan{twoStepPlan()},
		Errors: map[string]error{"review_step": malformed},
	}
	_, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), plan.Task{Name: "t"})
	if !errors.Is(err, plan.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
	if len(s.StepReviewCalls) != 1 {
		t.Errorf("malformed responses must not be retried, got %d calls", len(s.StepReviewCalls))
	}
}

type nilReviewer struct{ *scripted }

func (nilReviewer) ReviewPlan(ctx context.Context, task plan.Task, p *plan.Plan, iteration int) (*plan.PlanReview, error) {
	return nil, nil
}

func TestEngine_NilResponseIsMalformed(t *testing.T) {
	s := &scripted{Plans: []*plan.Plan{twoStepPlan()}}
	engine := New(DefaultConfig(), s, nilReviewer{s}, s)
	_, err := engine.Run(context.Background(), plan.Task{Name: "t"})
	if !errors.Is(err, plan.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestEngine_CoordinatorKickoffAndSynthesis(t *testing.T) {
	s := &scripted{Plans: []*plan.Plan{twoStepPlan()}, Synthesis: "## Summary"}
	result, err := newTestEngine(s, DefaultConfig()).WithCoordinator(s).Run(context.Background(), plan.Task{Name: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.KickoffCalls != 1 || s.SynthesizeCalls != 1 {
		t.Errorf("expected one kickoff and one synthesis, got %d/%d", s.KickoffCalls, s.SynthesizeCalls)
	}
	if s.Calls[0] != "kickoff" || s.Calls[len(s.Calls)-1] != "synthesize" {
		t.Errorf("unexpected call order: %v", s.Calls)
	}
	if result.Synthesis != "## Summary" {
		t.Errorf("synthesis mismatch: %q", result.Synthesis)
	}
}

func TestEngine_SinkErrorIsFatal(t *testing.T) {
	s := &scripted{Plans: []*plan.Plan{twoStepPlan()}}
	sink := &recordingSink{Err: errors.New("disk full")}
	_, err := newTestEngine(s, DefaultConfig()).WithSink(sink).Run(context.Background(), plan.Task{Name: "t"})
	if err == nil || !strings.Contains(err.Error(), "write report") {
		t.Fatalf("expected report error, got %v", err)
	}
}

func TestEngine_InvalidConfig(t *testing.T) {
	tests := []Config{
		{MaxPlanIterations: 0, MaxStepIterations: 3, MaxReplanAttempts: 2},
		{MaxPlanIterations: 3, MaxStepIterations: -1, MaxReplanAttempts: 2},
		{MaxPlanIterations: 3, MaxStepIterations: 3, MaxReplanAttempts: 0},
	}
	for _, cfg := range tests {
		s := &scripted{}
		if _, err := newTestEngine(s, cfg).Run(context.Background(), plan.Task{Name: "t"}); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
		if len(s.Calls) != 0 {
			t.Errorf("no collaborator should be called for %+v", cfg)
		}
	}
}

func TestEngine_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &scripted{Plans: []*plan.Plan{twoStepPlan()}}
	_, err := newTestEngine(s, DefaultConfig()).Run(ctx, plan.Task{Name: "t"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(s.Calls) != 0 {
		t.Errorf("expected no calls after cancellation, got %v", s.Calls)
	}
}

func TestEngine_DoesNotMutateTask(t *testing.T) {
	task := plan.Task{Name: "t", Objective: "o", Constraints: []string{"c1"}}
	s := &scripted{Plans: []*plan.Plan{twoStepPlan()}}
	result, err := newTestEngine(s, DefaultConfig()).Run(context.Background(), task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result.Task.Constraints[0] = "changed"
	if task.Constraints[0] != "c1" {
		t.Error("result should not share slices with the caller's task")
	}
}
