package cli

import (
	"github.com/sirupsen/logrus"

	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
)

// runLogEvents records task lifecycle events in the run log. Write failures
// are logged and never stop the run.
type runLogEvents struct {
	executor.NopEvents
	log    *plan.RunLog
	logger logrus.FieldLogger
}

func newRunLogEvents(log *plan.RunLog, logger logrus.FieldLogger) *runLogEvents {
	return &runLogEvents{log: log, logger: logger}
}

func (e *runLogEvents) OnTaskStart(task plan.Task, taskNum, total int) {
	e.check(task.Name, e.log.TaskStarted(task.Name))
}

func (e *runLogEvents) OnReplan(task plan.Task, stepID, feedback string, replanAttempt int) {
	e.check(task.Name, e.log.Replan(task.Name, stepID, feedback, replanAttempt))
}

func (e *runLogEvents) OnTaskComplete(result *plan.TaskRunResult) {
	e.check(result.Task.Name, e.log.TaskCompleted(result.Task.Name, len(result.StepResults)))
}

func (e *runLogEvents) OnTaskFailed(task plan.Task, err error) {
	e.check(task.Name, e.log.TaskFailed(task.Name, err.Error()))
}

func (e *runLogEvents) check(taskName string, err error) {
	if err != nil {
		e.logger.WithError(err).WithField("task", taskName).Warn("failed to write run log")
	}
}
