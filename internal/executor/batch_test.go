package executor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/pablasso/crewflow/internal/plan"
)

// failingPlanner fails the proposal for every task named in fail.
type failingPlanner struct {
	*scripted
	fail map[string]bool
}

func (f failingPlanner) ProposePlan(ctx context.Context, task plan.Task, feedback string, previous *plan.Plan) (*plan.Plan, error) {
	if f.fail[task.Name] {
		return nil, errors.New("planner unavailable")
	}
	return f.scripted.ProposePlan(ctx, task, feedback, previous)
}

func batchTasks(names ...string) []plan.Task {
	tasks := make([]plan.Task, len(names))
	for i, n := range names {
		tasks[i] = plan.Task{Name: n, Objective: "objective " + n}
	}
	return tasks
}

func resultNames(results []*plan.TaskRunResult) []string {
	var names []string
	for _, r := range results {
		names = append(names, r.Task.Name)
	}
	return names
}

func TestBatch_RunsInOrder(t *testing.T) {
	s := &scripted{Plans: []*plan.Plan{twoStepPlan()}}
	events := &recordingEvents{}
	engine := newTestEngine(s, DefaultConfig()).WithEvents(events)

	results, err := NewBatch(engine).Run(context.Background(), batchTasks("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(resultNames(results), []string{"a", "b", "c"}) {
		t.Errorf("unexpected result order: %v", resultNames(results))
	}
	if !reflect.DeepEqual(events.taskNums, []int{1, 2, 3}) {
		t.Errorf("unexpected task numbering: %v", events.taskNums)
	}
	for _, total := range events.totals {
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
	}
}

func TestBatch_FailFast(t *testing.T) {
	s := &scripted{Plans: []*plan.Plan{twoStepPlan()}}
	planner := failingPlanner{scripted: s, fail: map[string]bool{"b": true}}
	engine := New(DefaultConfig(), planner, s, s)

	results, err := NewBatch(engine).Run(context.Background(), batchTasks("a", "b", "c"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !reflect.DeepEqual(resultNames(results), []string{"a"}) {
		t.Errorf("expected only task a to complete, got %v", resultNames(results))
	}
	if s.count("execute") != 2 {
		t.Errorf("task c should never start; saw %d step executions", s.count("execute"))
	}
}

func TestBatch_ContinueOnError(t *testing.T) {
	s := &scripted{Plans: []*plan.Plan{twoStepPlan()}}
	planner := failingPlanner{scripted: s, fail: map[string]bool{"a": true, "c": true}}
	engine := New(DefaultConfig(), planner, s, s)

	results, err := NewBatch(engine).WithContinueOnError(true).Run(context.Background(), batchTasks("a", "b", "c", "d"))
	if err == nil {
		t.Fatal("expected joined error, got nil")
	}
	if !reflect.DeepEqual(resultNames(results), []string{"b", "d"}) {
		t.Errorf("unexpected completed tasks: %v", resultNames(results))
	}

	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected a joined error, got %T", err)
	}
	if len(joined.Unwrap()) != 2 {
		t.Errorf("expected 2 errors, got %d", len(joined.Unwrap()))
	}
}

func TestBatch_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &scripted{Plans: []*plan.Plan{twoStepPlan()}}
	events := &recordingEvents{onComplete: func() { cancel() }}
	engine := newTestEngine(s, DefaultConfig()).WithEvents(events)

	results, err := NewBatch(engine).WithContinueOnError(true).Run(ctx, batchTasks("a", "b"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected the first task to complete, got %d results", len(results))
	}
}

func TestBatch_Empty(t *testing.T) {
	engine := newTestEngine(&scripted{}, DefaultConfig())
	results, err := NewBatch(engine).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
