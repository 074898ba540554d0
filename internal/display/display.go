package display

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Status represents the current execution status.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Phase names the engine stage shown while a task is running.
type Phase string

const (
	PhasePlanning   Phase = "Planning"
	PhaseExecuting  Phase = "Executing"
	PhaseReplanning Phase = "Replanning"
	PhaseFinalizing Phase = "Finalizing"
)

// State holds the current display state.
type State struct {
	TaskNum     int
	TotalTasks  int
	TaskName    string
	StepID      string
	StepNum     int
	TotalSteps  int
	Attempt     int
	MaxAttempts int
	Phase       Phase
	Status      Status
	StartTime   time.Time
}

// Display manages the terminal status line. When the status line is not
// running, PrintAbove degrades to plain line output so the same Display can
// serve pipes and log files.
type Display struct {
	mu       sync.Mutex
	out      sync.Mutex // serializes writes between the ticker and PrintAbove
	writer   io.Writer
	state    State
	ticker   *time.Ticker
	done     chan struct{}
	wg       sync.WaitGroup
	active   bool
	lastLine string
}

// New creates a new Display writing to the given writer.
func New(w io.Writer) *Display {
	return &Display{writer: w}
}

// Start begins the display update loop.
func (d *Display) Start() {
	d.mu.Lock()
	if d.active {
		d.mu.Unlock()
		return
	}
	d.active = true
	d.state.StartTime = time.Now()
	d.ticker = time.NewTicker(time.Second)
	d.done = make(chan struct{})
	ticker, done := d.ticker, d.done
	d.wg.Add(1)
	d.mu.Unlock()

	go d.updateLoop(ticker, done)
}

// Stop halts the display update loop and clears the status line.
// Blocks until the update goroutine has exited.
func (d *Display) Stop() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	ticker, done := d.ticker, d.done
	d.mu.Unlock()

	ticker.Stop()
	close(done)
	d.wg.Wait()

	d.out.Lock()
	d.clearLine()
	d.out.Unlock()
}

// Active reports whether the status line is being drawn.
func (d *Display) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// BeginTask switches the status line to a new task in the planning phase.
func (d *Display) BeginTask(taskNum, totalTasks int, taskName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = State{
		TaskNum:    taskNum,
		TotalTasks: totalTasks,
		TaskName:   taskName,
		Phase:      PhasePlanning,
		Status:     StatusRunning,
		StartTime:  d.state.StartTime,
	}
}

// EnterStep shows attempt of step stepNum out of totalSteps.
func (d *Display) EnterStep(stepNum, totalSteps int, stepID string, attempt, maxAttempts int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Phase = PhaseExecuting
	d.state.StepNum, d.state.TotalSteps, d.state.StepID = stepNum, totalSteps, stepID
	d.state.Attempt, d.state.MaxAttempts = attempt, maxAttempts
}

// EnterPhase moves to a phase outside step execution, dropping step progress.
func (d *Display) EnterPhase(phase Phase) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Phase = phase
	if phase != PhaseExecuting {
		d.state.StepNum, d.state.TotalSteps, d.state.StepID = 0, 0, ""
		d.state.Attempt, d.state.MaxAttempts = 0, 0
	}
}

// Finish records the terminal status of the current task.
func (d *Display) Finish(status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Status = status
}

func (d *Display) updateLoop(ticker *time.Ticker, done <-chan struct{}) {
	defer d.wg.Done()
	d.render()
	for {
		select {
		case <-ticker.C:
			d.render()
		case <-done:
			return
		}
	}
}

// render draws the current status line if it changed.
func (d *Display) render() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	state := d.state
	lastLine := d.lastLine
	d.mu.Unlock()

	line := d.formatLine(state, time.Since(state.StartTime))
	if line == lastLine {
		return
	}

	d.mu.Lock()
	d.lastLine = line
	d.mu.Unlock()

	d.out.Lock()
	fmt.Fprintf(d.writer, "\r\033[K%s", line)
	d.out.Unlock()
}

// formatLine creates the status line string.
func (d *Display) formatLine(state State, elapsed time.Duration) string {
	if state.TotalTasks == 0 {
		return ""
	}

	name := state.TaskName
	if len(name) > 40 {
		name = name[:37] + "..."
	}

	line := fmt.Sprintf("Task %d/%d: %s", state.TaskNum, state.TotalTasks, name)
	if state.StepNum > 0 {
		line += fmt.Sprintf(" │ Step %d/%d (%s)", state.StepNum, state.TotalSteps, state.StepID)
	}
	if state.MaxAttempts > 0 {
		line += fmt.Sprintf(" │ Attempt %d/%d", state.Attempt, state.MaxAttempts)
	}

	status := state.Status.String()
	if state.Status == StatusRunning && state.Phase != "" {
		status = string(state.Phase)
	}
	return fmt.Sprintf("%s │ ⏱ %s │ %s", line, formatDuration(elapsed), status)
}

func (d *Display) clearLine() {
	fmt.Fprintf(d.writer, "\r\033[K")
}

// PrintAbove prints a message above the status line, or as a plain line when
// the status line is not running.
func (d *Display) PrintAbove(format string, args ...interface{}) {
	active := d.Active()

	d.out.Lock()
	if active {
		d.clearLine()
	}
	fmt.Fprintf(d.writer, format+"\n", args...)
	d.out.Unlock()

	if active {
		d.mu.Lock()
		d.lastLine = ""
		d.mu.Unlock()
		d.render()
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
