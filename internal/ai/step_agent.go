package ai

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
	"github.com/pablasso/crewflow/internal/skills"
)

// DefaultMaxSkillInvocations bounds skill calls per execution attempt.
const DefaultMaxSkillInvocations = 3

var _ executor.StepRunner = (*StepAgent)(nil)

// StepAgent executes plan steps and runs the skills the model asks for.
// Skill results and failures are fed back to the model; they never surface
// as errors.
type StepAgent struct {
	agent          *Agent
	skills         *skills.Registry
	maxInvocations int
}

// NewStepAgent creates the executing agent. A nil registry means no skills.
func NewStepAgent(registry *skills.Registry, maxInvocations int, opts Options) *StepAgent {
	if registry == nil {
		registry = skills.NewRegistry()
	}
	if maxInvocations < 0 {
		maxInvocations = 0
	}
	return &StepAgent{
		agent:          NewAgent("Executor", executorSystemPrompt, opts),
		skills:         registry,
		maxInvocations: maxInvocations,
	}
}

// ExecuteStep runs one attempt. Once the invocation budget is spent the last
// response is returned as is.
func (s *StepAgent) ExecuteStep(ctx context.Context, task plan.Task, step plan.Step, prior []plan.StepResult, feedback string) (*plan.ExecutionOutput, error) {
	conversationID := "execute::" + task.Name + "::" + step.ID
	message := buildStepPrompt(task, step, prior, feedback, s.skills.PromptFragment())

	for invocations := 0; ; invocations++ {
		output, err := sendJSON(ctx, s.agent, conversationID, message, plan.KindExecutionOutput, plan.ParseExecutionOutput)
		if err != nil {
			return nil, err
		}
		if output.Action == nil || invocations >= s.maxInvocations {
			return output, nil
		}

		action := output.Action
		res := s.skills.Invoke(ctx, action.Skill, action.Arguments)
		log := s.agent.logger.WithFields(logrus.Fields{"step": step.ID, "skill": action.Skill})
		if res.OK() {
			log.Debug("skill succeeded")
			message = buildSkillResultPrompt(action.Skill, action.Arguments, res.Output)
		} else {
			log.WithError(res.Err).Info("skill failed")
			message = buildSkillFailurePrompt(action.Skill, res.Err)
		}
	}
}
