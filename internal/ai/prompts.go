package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pablasso/crewflow/internal/plan"
)

const plannerSystemPrompt = `You are the Planner, a workflow designer who breaks complex objectives into
concrete steps that can be automated. Plans must be explicit, justified and
robust to ambiguity. Respond with a JSON object holding "plan_overview",
"assumptions" and "steps". Every step needs "id", "description", "rationale"
and "success_criteria". Use short ids such as "step-1".`

const reviewerSystemPrompt = `You are the Reviewer, a meticulous quality lead. Stress test plans and
execution results. Respond with JSON objects carrying a clear approval,
actionable feedback and a confidence rating.`

const executorSystemPrompt = `You are the Executor. You turn plan steps into tangible results and may call
registered skills to get there. Respond in JSON with "summary", "artifacts"
(array of strings), "notes" and, only when you need a skill, "action" (an
object with "skill" and "arguments"). Leave out "action" once no skill is needed.`

const coordinatorSystemPrompt = `You are the Coordinator. You keep specialist agents aligned and write short
briefings and syntheses in clear Markdown.`

func buildPlanPrompt(task plan.Task, feedback string, previous *plan.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task name: %s\n", task.Name)
	fmt.Fprintf(&b, "Objective: %s\n", task.Objective)
	fmt.Fprintf(&b, "Context: %s\n", orNA(task.Context))
	if len(task.Constraints) > 0 {
		b.WriteString("Constraints:\n")
		for _, c := range task.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	if task.Deliverable != "" {
		fmt.Fprintf(&b, "Deliverable expectation: %s\n", task.Deliverable)
	}
	if previous != nil {
		fmt.Fprintf(&b, "\nThe previous plan needs revision:\n%s\n", indentJSON(previous))
	}
	if feedback != "" {
		fmt.Fprintf(&b, "\nReviewer feedback to address:\n%s\n", feedback)
	}
	b.WriteString("\nRespond strictly in JSON. Order the steps so they can be automated without manual glue.")
	return b.String()
}

func buildPlanReviewPrompt(task plan.Task, p *plan.Plan, iteration int) string {
	return fmt.Sprintf(`Task objective: %s
Review iteration: %d
Proposed plan:
%s

Respond in JSON with "approved" (boolean), "feedback" and "confidence". Be candid but constructive.`,
		task.Objective, iteration, indentJSON(p))
}

func buildStepReviewPrompt(task plan.Task, step plan.Step, output *plan.ExecutionOutput, attempt int) string {
	return fmt.Sprintf(`Task objective: %s
Step metadata: %s
Attempt: %d
Execution result: %s

Respond in JSON with "approved" (boolean), "feedback", "requires_replan" (boolean) and "quality" (one of "high", "medium", "low").`,
		task.Objective, indentJSON(step), attempt, indentJSON(output))
}

func buildFinalReviewPrompt(task plan.Task, p *plan.Plan, results []plan.StepResult) string {
	if results == nil {
		results = []plan.StepResult{}
	}
	return fmt.Sprintf(`Task objective: %s
Approved plan:
%s
Execution timeline: %s

Respond in JSON with "approved", "feedback", "highlights" and "risks".`,
		task.Objective, indentJSON(p), indentJSON(results))
}

func buildStepPrompt(task plan.Task, step plan.Step, prior []plan.StepResult, feedback, skillsFragment string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task objective: %s\n", task.Objective)
	fmt.Fprintf(&b, "Current step: %s\n", indentJSON(step))
	fmt.Fprintf(&b, "Progress so far:\n%s\n", progressSummary(prior))
	fmt.Fprintf(&b, "Available skills:\n%s\n", skillsFragment)
	b.WriteString("Respond in JSON as documented.")
	if task.Deliverable != "" {
		fmt.Fprintf(&b, "\nTarget deliverable: %s", task.Deliverable)
	}
	if feedback != "" {
		fmt.Fprintf(&b, "\nIncorporate reviewer feedback: %s", feedback)
	}
	return b.String()
}

func progressSummary(prior []plan.StepResult) string {
	if len(prior) == 0 {
		return "None yet."
	}
	return plan.Timeline(prior)
}

func buildSkillResultPrompt(skill string, args map[string]any, output string) string {
	return fmt.Sprintf("Skill `%s` ran with arguments %s.\nResult:\n%s\n"+
		"Send an updated JSON response. Request another action if more tooling is needed, otherwise omit \"action\".",
		skill, compactJSON(args), output)
}

func buildSkillFailurePrompt(skill string, err error) string {
	return fmt.Sprintf("Skill `%s` failed: %v.\nFix the request or continue without the skill, and send an updated JSON response.",
		skill, err)
}

func buildKickoffPrompt(task plan.Task) string {
	return fmt.Sprintf(`Write a short kickoff note for the task %q.
Objective: %s
Context: %s
List the initial focus areas as Markdown bullet points.`,
		task.Name, task.Objective, orNA(task.Context))
}

func buildSynthesisPrompt(task plan.Task, p *plan.Plan, results []plan.StepResult, final *plan.FinalReview) string {
	overview := "N/A"
	if p != nil && p.Overview != "" {
		overview = p.Overview
	}
	verdict := "N/A"
	if final != nil && final.Feedback != "" {
		verdict = string(final.Feedback)
	}
	return fmt.Sprintf(`Write a concise Markdown summary for the task %q.
Objective: %s
Approved plan overview: %s
Execution timeline:
%s
Reviewer verdict: %s
Highlight the completed deliverables and the recommended next actions.`,
		task.Name, task.Objective, overview, plan.Timeline(results), verdict)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
