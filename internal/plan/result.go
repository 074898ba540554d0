package plan

import (
	"fmt"
	"strings"
)

// NoSummary is shown wherever an execution output carries no summary.
const NoSummary = "No summary available"

// ExecutionOutput is what the execution collaborator produced for one attempt.
type ExecutionOutput struct {
	Summary   string     `json:"summary,omitempty"`
	Artifacts StringList `json:"artifacts,omitempty"`
	Notes     Text       `json:"notes,omitempty"`
	Action    *Action    `json:"action,omitempty"`
}

// Action is a skill invocation requested by the model. Only the execution
// collaborator acts on it.
type Action struct {
	Skill     string         `json:"skill"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// SummaryOrDefault returns the summary, or NoSummary when it is empty.
func (o *ExecutionOutput) SummaryOrDefault() string {
	if o == nil || o.Summary == "" {
		return NoSummary
	}
	return o.Summary
}

// StepResult binds one execution attempt to its review.
type StepResult struct {
	StepID  string          `json:"step_id"`
	Attempt int             `json:"attempt"`
	Step    Step            `json:"step"`
	Output  ExecutionOutput `json:"output"`
	Review  StepReview      `json:"review"`
}

// Approved reports whether this attempt was approved.
func (r StepResult) Approved() bool {
	return r.Review.Approved
}

// TaskRunResult is the terminal output of one engine run.
type TaskRunResult struct {
	Task        Task         `json:"task"`
	Plan        Plan         `json:"plan"`
	StepResults []StepResult `json:"step_results"`
	FinalReview FinalReview  `json:"reviewer_summary"`
	Synthesis   string       `json:"coordinator_summary,omitempty"`
}

// ApprovedResults returns the approved attempts in order.
func (r *TaskRunResult) ApprovedResults() []StepResult {
	var out []StepResult
	for _, sr := range r.StepResults {
		if sr.Approved() {
			out = append(out, sr)
		}
	}
	return out
}

// NoStepsRecorded stands in for an empty timeline.
const NoStepsRecorded = "No executed steps recorded."

// Timeline renders one "- <step id>: <summary>" line per result.
func Timeline(results []StepResult) string {
	if len(results) == 0 {
		return NoStepsRecorded
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.StepID, r.Output.SummaryOrDefault()))
	}
	return strings.Join(lines, "\n")
}
