package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/crewflow/internal/ai"
	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
	"github.com/pablasso/crewflow/internal/tui/msgs"
	"github.com/pablasso/crewflow/internal/tui/styles"
)

// Minimum terminal dimensions for the run view.
const (
	MinTerminalWidth  = 60
	MinTerminalHeight = 15
)

// BatchFunc runs the batch, reporting through events and presenter.
type BatchFunc func(ctx context.Context, events executor.Events, presenter ai.Presenter) ([]*plan.TaskRunResult, error)

// Run shows the run view while batch executes on its own goroutine. It returns
// once both the program and the batch have finished. Quitting the view early
// cancels the batch.
func Run(ctx context.Context, runName string, tasks []plan.Task, cfg executor.Config, batch BatchFunc, opts ...tea.ProgramOption) ([]*plan.TaskRunResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewRunModel(runName, tasks, cfg).WithCancel(cancel)
	program := tea.NewProgram(model, opts...)
	events := NewProgramEvents(program)

	var (
		results  []*plan.TaskRunResult
		batchErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		results, batchErr = batch(ctx, events, events)
		program.Send(msgs.BatchDoneMsg{Completed: len(results), Err: batchErr})
	}()

	_, runErr := program.Run()
	cancel()
	<-done

	if runErr != nil {
		return results, fmt.Errorf("run view: %w", runErr)
	}
	return results, batchErr
}

func (m RunModel) tooSmall() bool {
	return m.width > 0 && m.height > 0 &&
		(m.width < MinTerminalWidth || m.height < MinTerminalHeight)
}

func (m RunModel) renderTerminalTooSmall() string {
	msg := fmt.Sprintf("Terminal too small\nMinimum: %dx%d\nCurrent: %dx%d",
		MinTerminalWidth, MinTerminalHeight, m.width, m.height)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		styles.SubtleStyle.Render(msg))
}
