package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pablasso/crewflow/internal/plan"
	"github.com/pablasso/crewflow/internal/tui/msgs"
)

type recordingSender struct {
	sent []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.sent = append(s.sent, msg)
}

func TestProgramEvents_TranslatesEvents(t *testing.T) {
	sender := &recordingSender{}
	ev := NewProgramEvents(sender)
	task := plan.Task{Name: "Research"}

	ev.OnTaskStart(task, 1, 3)
	ev.OnPlanProposed(task, &plan.Plan{Steps: []plan.Step{{ID: "gather"}, {}}}, 2)
	ev.OnPlanReviewed(task, &plan.PlanReview{Approved: false, Feedback: "more"}, 2)
	ev.OnStepStart(task, plan.Step{ID: "gather"}, 1, 2, 1)
	ev.OnStepReviewed(task, plan.StepResult{
		StepID:  "gather",
		Attempt: 1,
		Review:  plan.StepReview{Approved: true, Quality: plan.QualityMedium},
	})
	ev.OnReplan(task, "gather", "redo", 1)
	ev.OnTaskComplete(&plan.TaskRunResult{Task: task})
	ev.OnTaskFailed(task, errors.New("boom"))
	ev.Show("Reviewer", `{"approved": true}`)

	if len(sender.sent) != 9 {
		t.Fatalf("sent %d messages, want 9", len(sender.sent))
	}

	if got := sender.sent[0].(msgs.TaskStartedMsg); got.TaskNum != 1 || got.Total != 3 || got.Name != "Research" {
		t.Errorf("TaskStartedMsg = %+v", got)
	}
	proposed := sender.sent[1].(msgs.PlanProposedMsg)
	if proposed.Attempt != 2 || len(proposed.StepIDs) != 2 || proposed.StepIDs[0] != "gather" || proposed.StepIDs[1] != "step-2" {
		t.Errorf("PlanProposedMsg = %+v", proposed)
	}
	if got := sender.sent[2].(msgs.PlanReviewedMsg); got.Approved || got.Feedback != "more" {
		t.Errorf("PlanReviewedMsg = %+v", got)
	}
	if got := sender.sent[3].(msgs.StepStartedMsg); got.StepID != "gather" || got.StepNum != 1 || got.Total != 2 || got.Attempt != 1 {
		t.Errorf("StepStartedMsg = %+v", got)
	}
	reviewed := sender.sent[4].(msgs.StepReviewedMsg)
	if !reviewed.Approved || reviewed.Quality != "medium" || reviewed.Summary != plan.NoSummary {
		t.Errorf("StepReviewedMsg = %+v", reviewed)
	}
	if got := sender.sent[5].(msgs.ReplanMsg); got.StepID != "gather" || got.Feedback != "redo" || got.Attempt != 1 {
		t.Errorf("ReplanMsg = %+v", got)
	}
	if got := sender.sent[6].(msgs.TaskCompletedMsg); got.Result.Task.Name != "Research" {
		t.Errorf("TaskCompletedMsg = %+v", got)
	}
	if got := sender.sent[7].(msgs.TaskFailedMsg); got.Name != "Research" || got.Err == nil {
		t.Errorf("TaskFailedMsg = %+v", got)
	}
	if got := sender.sent[8].(msgs.ResponseMsg); got.Role != "Reviewer" {
		t.Errorf("ResponseMsg = %+v", got)
	}
}
