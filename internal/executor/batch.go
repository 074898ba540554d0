package executor

import (
	"context"
	"errors"

	"github.com/pablasso/crewflow/internal/plan"
)

// Batch runs tasks strictly in the order given, one at a time.
//
// By default it is fail-fast: the first failing task stops the batch and the
// results gathered so far are returned with the error. With ContinueOnError
// every task is attempted and all failures are returned joined. Context
// cancellation always stops the batch.
type Batch struct {
	engine          *Engine
	continueOnError bool
}

// NewBatch creates a fail-fast batch runner around engine.
func NewBatch(engine *Engine) *Batch {
	return &Batch{engine: engine}
}

// WithContinueOnError switches the failure policy.
func (b *Batch) WithContinueOnError(v bool) *Batch {
	b.continueOnError = v
	return b
}

// Run executes every task and returns the results of those that completed.
func (b *Batch) Run(ctx context.Context, tasks []plan.Task) ([]*plan.TaskRunResult, error) {
	results := make([]*plan.TaskRunResult, 0, len(tasks))
	var errs []error

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := b.engine.run(ctx, task, i+1, len(tasks))
		if err != nil {
			errs = append(errs, err)
			if !b.continueOnError || ctx.Err() != nil {
				break
			}
			continue
		}
		results = append(results, result)
	}

	return results, errors.Join(errs...)
}
