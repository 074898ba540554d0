package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pablasso/crewflow/internal/plan"
)

// Markdown renders the human-readable report for a finished run. The output
// depends only on result.
func Markdown(result *plan.TaskRunResult) string {
	var b strings.Builder
	task := result.Task

	fmt.Fprintf(&b, "# Task Report: %s\n\n", task.Name)
	fmt.Fprintf(&b, "**Objective:** %s\n", task.Objective)
	if task.Context != "" {
		fmt.Fprintf(&b, "**Context:** %s\n", task.Context)
	}
	if task.Deliverable != "" {
		fmt.Fprintf(&b, "**Expected Deliverable:** %s\n", task.Deliverable)
	}
	if len(task.Constraints) > 0 {
		b.WriteString("\n**Constraints:**\n")
		writeList(&b, task.Constraints)
	}

	b.WriteString("\n## Plan Overview\n")
	b.WriteString(orDefault(result.Plan.Overview, "No overview provided."))
	b.WriteString("\n")
	if len(result.Plan.Assumptions) > 0 {
		b.WriteString("\n**Assumptions:**\n")
		writeList(&b, result.Plan.Assumptions)
	}

	b.WriteString("\n## Execution Timeline\n")
	if len(result.StepResults) == 0 {
		b.WriteString("No steps were executed.\n")
	}
	for _, sr := range result.StepResults {
		status := "Rejected"
		if sr.Approved() {
			status = "Approved"
		}
		fmt.Fprintf(&b, "- **%s** (attempt %d, %s): %s\n", sr.StepID, sr.Attempt, status, sr.Output.SummaryOrDefault())
	}

	b.WriteString("\n## Reviewer Verdict\n")
	b.WriteString(orDefault(string(result.FinalReview.Feedback), "No reviewer feedback recorded."))
	b.WriteString("\n")
	if len(result.FinalReview.Highlights) > 0 {
		b.WriteString("\n**Highlights:**\n")
		writeList(&b, []string(result.FinalReview.Highlights))
	}
	if len(result.FinalReview.Risks) > 0 {
		b.WriteString("\n**Risks:**\n")
		writeList(&b, []string(result.FinalReview.Risks))
	}

	if result.Synthesis != "" {
		b.WriteString("\n## Coordinator Summary\n")
		b.WriteString(strings.TrimRight(result.Synthesis, "\n"))
		b.WriteString("\n")
	}

	return b.String()
}

// Document returns the lossless JSON form of a finished run.
func Document(result *plan.TaskRunResult) ([]byte, error) {
	out := *result
	if out.StepResults == nil {
		out.StepResults = []plan.StepResult{}
	}
	if out.Task.Constraints == nil {
		out.Task.Constraints = []string{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
