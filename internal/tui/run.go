package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
	"github.com/pablasso/crewflow/internal/tui/components"
	"github.com/pablasso/crewflow/internal/tui/msgs"
	"github.com/pablasso/crewflow/internal/tui/styles"
)

// maxActivity caps the activity log kept in memory.
const maxActivity = 200

var plain = lipgloss.NewStyle()

type runState int

const (
	stateRunning runState = iota
	stateCancelling
	stateDone
	stateCancelled
)

type rowStatus int

const (
	rowPending rowStatus = iota
	rowRunning
	rowCompleted
	rowFailed
	rowReplanned
)

type taskRow struct {
	Name   string
	Status rowStatus
}

type activityEntry struct {
	text  string
	style lipgloss.Style
}

type stepRow struct {
	ID      string
	Attempt int
	Status  rowStatus
}

// RunModel is the Bubble Tea model for a batch run. It only reflects engine
// events; the engine itself runs on its own goroutine.
type RunModel struct {
	state   runState
	runName string
	cfg     executor.Config

	tasks   []taskRow
	current int // 1-indexed
	phase   string
	steps   []stepRow

	activity []activityEntry

	spinner   spinner.Model
	startTime time.Time
	cancel    context.CancelFunc

	completed    int
	finalMessage string

	width  int
	height int
}

// NewRunModel creates a run view listing tasks as pending.
func NewRunModel(runName string, tasks []plan.Task, cfg executor.Config) RunModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	rows := make([]taskRow, len(tasks))
	for i, t := range tasks {
		rows[i] = taskRow{Name: t.Name}
	}

	return RunModel{
		state:     stateRunning,
		runName:   runName,
		cfg:       cfg,
		tasks:     rows,
		spinner:   s,
		startTime: time.Now(),
	}
}

// WithCancel sets the function called when the user interrupts the run.
func (m RunModel) WithCancel(cancel context.CancelFunc) RunModel {
	m.cancel = cancel
	return m
}

// Init implements tea.Model.
func (m RunModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.state == stateRunning || m.state == stateCancelling {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case msgs.TaskStartedMsg:
		m.current = msg.TaskNum
		m.phase = "Planning"
		m.steps = nil
		if row := m.task(msg.TaskNum); row != nil {
			row.Status = rowRunning
		}
		m.log(plain, fmt.Sprintf("Task %d/%d: %s", msg.TaskNum, msg.Total, msg.Name))
		return m, nil

	case msgs.PlanProposedMsg:
		m.phase = "Planning"
		m.steps = make([]stepRow, len(msg.StepIDs))
		for i, id := range msg.StepIDs {
			m.steps[i] = stepRow{ID: id}
		}
		m.log(plain, fmt.Sprintf("Plan proposed [Attempt %d/%d]: %d steps", msg.Attempt, m.cfg.MaxPlanIterations, len(msg.StepIDs)))
		return m, nil

	case msgs.PlanReviewedMsg:
		if msg.Approved {
			m.phase = "Executing"
			m.log(styles.SuccessStyle, "Plan approved")
		} else {
			m.log(styles.WarningStyle, "Plan rejected: "+firstLine(msg.Feedback))
		}
		return m, nil

	case msgs.StepStartedMsg:
		m.phase = "Executing"
		if row := m.step(msg.StepNum); row != nil {
			row.Status = rowRunning
			row.Attempt = msg.Attempt
		}
		m.log(plain, fmt.Sprintf("Step %d/%d: %s [Attempt %d/%d]", msg.StepNum, msg.Total, msg.StepID, msg.Attempt, m.cfg.MaxStepIterations))
		return m, nil

	case msgs.StepReviewedMsg:
		m.applyStepReview(msg)
		return m, nil

	case msgs.ReplanMsg:
		m.phase = "Replanning"
		m.log(styles.WarningStyle, fmt.Sprintf("Replanning after %s [%d/%d]", msg.StepID, msg.Attempt, m.cfg.MaxReplanAttempts))
		return m, nil

	case msgs.TaskCompletedMsg:
		m.completed++
		if row := m.task(m.current); row != nil {
			row.Status = rowCompleted
		}
		m.phase = ""
		m.log(styles.SuccessStyle, "Task completed: "+msg.Result.Task.Name)
		return m, nil

	case msgs.TaskFailedMsg:
		if row := m.task(m.current); row != nil {
			row.Status = rowFailed
		}
		m.phase = ""
		m.log(styles.ErrorStyle, fmt.Sprintf("Task failed: %v", msg.Err))
		return m, nil

	case msgs.ResponseMsg:
		m.log(styles.SubtleStyle, fmt.Sprintf("[%s] %s", msg.Role, firstLine(msg.Text)))
		return m, nil

	case msgs.BatchDoneMsg:
		return m.finish(msg), tea.Quit

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

func (m *RunModel) applyStepReview(msg msgs.StepReviewedMsg) {
	var status rowStatus
	switch {
	case msg.Approved:
		status = rowCompleted
		quality := ""
		if msg.Quality != "" {
			quality = " (" + msg.Quality + ")"
		}
		m.log(styles.SuccessStyle, fmt.Sprintf("Approved%s: %s", quality, firstLine(msg.Summary)))
	case msg.RequiresReplan:
		status = rowReplanned
		m.log(styles.WarningStyle, "Replan requested: "+firstLine(msg.Feedback))
	default:
		status = rowRunning
		m.log(styles.WarningStyle, "Rejected: "+firstLine(msg.Feedback))
	}

	for i := range m.steps {
		if m.steps[i].ID == msg.StepID {
			m.steps[i].Status = status
			break
		}
	}
}

func (m RunModel) finish(msg msgs.BatchDoneMsg) RunModel {
	if m.state == stateCancelling {
		m.state = stateCancelled
		m.finalMessage = fmt.Sprintf("Stopped. Completed %d/%d tasks.", m.completed, len(m.tasks))
		return m
	}

	m.state = stateDone
	elapsed := formatDuration(time.Since(m.startTime))
	if msg.Err != nil {
		m.finalMessage = fmt.Sprintf("Completed %d/%d tasks in %s: %v", msg.Completed, len(m.tasks), elapsed, msg.Err)
	} else {
		m.finalMessage = fmt.Sprintf("Completed %d/%d tasks in %s", msg.Completed, len(m.tasks), elapsed)
	}
	return m
}

func (m RunModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateRunning:
		if msg.String() == "ctrl+c" {
			m.state = stateCancelling
			m.finalMessage = "Stopping... waiting for the current call to return."
			if m.cancel != nil {
				m.cancel()
			}
		}
	case stateDone, stateCancelled:
		switch msg.String() {
		case "q", "ctrl+c", "enter":
			return m, tea.Quit
		}
	}
	return m, nil
}

// log appends to the activity log, keeping the newest maxActivity entries.
func (m *RunModel) log(style lipgloss.Style, text string) {
	m.activity = append(m.activity, activityEntry{text: text, style: style})
	if len(m.activity) > maxActivity {
		m.activity = append([]activityEntry(nil), m.activity[len(m.activity)-maxActivity:]...)
	}
}

func (m *RunModel) task(num int) *taskRow {
	if num < 1 || num > len(m.tasks) {
		return nil
	}
	return &m.tasks[num-1]
}

func (m *RunModel) step(num int) *stepRow {
	if num < 1 || num > len(m.steps) {
		return nil
	}
	return &m.steps[num-1]
}

// View implements tea.Model.
func (m RunModel) View() string {
	if m.tooSmall() {
		return m.renderTerminalTooSmall()
	}
	width := m.width
	if width == 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("crewflow: " + m.runName))
	b.WriteString("\n")

	leftWidth := width*40/100 - 2
	rightWidth := width - leftWidth - 6
	if leftWidth < 20 {
		leftWidth = 20
	}
	if rightWidth < 20 {
		rightWidth = 20
	}

	left := styles.BoxStyle.Width(leftWidth).Render(m.renderProgress(leftWidth - 2))
	right := styles.BoxStyle.Width(rightWidth).Render(m.renderActivity(rightWidth - 2))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")

	b.WriteString(components.NewStatusBar().Render(width, m.statusText(), m.hints()))
	return b.String()
}

func (m RunModel) renderProgress(width int) string {
	var lines []string

	lines = append(lines, styles.SubtleStyle.Render("Tasks"))
	failed := 0
	for _, t := range m.tasks {
		if t.Status == rowFailed {
			failed++
		}
	}
	lines = append(lines, components.NewProgress(m.completed, len(m.tasks), 10, "tasks").WithFailed(failed).View())
	for i, t := range m.tasks {
		prefix := fmt.Sprintf("%s %d. ", m.indicator(t.Status, i+1 == m.current), i+1)
		lines = append(lines, prefix+truncateWithEllipsis(t.Name, width-lipgloss.Width(prefix)))
	}

	if len(m.steps) > 0 {
		done := 0
		for _, s := range m.steps {
			if s.Status == rowCompleted {
				done++
			}
		}
		lines = append(lines, "", styles.SubtleStyle.Render("Steps"))
		lines = append(lines, components.NewProgress(done, len(m.steps), 10, "steps").View())
		for _, s := range m.steps {
			line := fmt.Sprintf("%s %s", m.indicator(s.Status, s.Status == rowRunning), s.ID)
			if s.Attempt > 1 {
				line += fmt.Sprintf(" (attempt %d)", s.Attempt)
			}
			lines = append(lines, truncateWithEllipsis(line, width))
		}
	}

	lines = append(lines, "", formatDuration(time.Since(m.startTime)))
	return strings.Join(lines, "\n")
}

func (m RunModel) renderActivity(width int) string {
	lines := []string{styles.SubtleStyle.Render("Activity")}

	limit := len(m.activity)
	if m.height > 0 {
		limit = m.height - 8
		if limit < 3 {
			limit = 3
		}
	}
	start := 0
	if len(m.activity) > limit {
		start = len(m.activity) - limit
	}
	for _, e := range m.activity[start:] {
		lines = append(lines, e.style.Render(truncateWithEllipsis(e.text, width)))
	}
	if len(m.activity) == 0 {
		lines = append(lines, styles.SubtleStyle.Render("  (waiting...)"))
	}
	return strings.Join(lines, "\n")
}

func (m RunModel) indicator(status rowStatus, isCurrent bool) string {
	switch status {
	case rowCompleted:
		return styles.SuccessStyle.Render("✓")
	case rowFailed:
		return styles.ErrorStyle.Render("✗")
	case rowReplanned:
		return styles.WarningStyle.Render("↺")
	case rowRunning:
		if isCurrent && (m.state == stateRunning || m.state == stateCancelling) {
			return m.spinner.View()
		}
		return styles.SelectedStyle.Render("▶")
	default:
		return styles.SubtleStyle.Render("○")
	}
}

func (m RunModel) statusText() string {
	switch m.state {
	case stateRunning:
		if m.phase != "" {
			return m.phase + "..."
		}
		return "Running..."
	default:
		return m.finalMessage
	}
}

func (m RunModel) hints() []string {
	switch m.state {
	case stateRunning:
		return []string{"Ctrl+C Cancel"}
	case stateDone, stateCancelled:
		return []string{"q Quit"}
	}
	return nil
}

// Completed returns the number of tasks that finished.
func (m RunModel) Completed() int {
	return m.completed
}

// FinalMessage returns the closing status line.
func (m RunModel) FinalMessage() string {
	return m.finalMessage
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	if s == "" {
		return "(no feedback)"
	}
	return s
}

// truncateWithEllipsis truncates by display width.
func truncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		if len(r) > maxLen {
			r = r[:maxLen]
		}
		return string(r)
	}
	for len(r) > 0 && lipgloss.Width(string(r))+3 > maxLen {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
