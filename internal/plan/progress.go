package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event type constants for the run log.
const (
	EventRunStarted    = "run_started"
	EventExchange      = "exchange"
	EventTaskStarted   = "task_started"
	EventTaskCompleted = "task_completed"
	EventTaskFailed    = "task_failed"
	EventReplan        = "replan"
)

// RunEvent represents a single run log entry.
type RunEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

// RunLog is the append-only JSON Lines audit log of one batch run. It records
// every collaborator exchange with the emitting role and raw response text.
type RunLog struct {
	mu    sync.Mutex
	path  string
	runID string
	now   func() time.Time
}

// NewRunLog creates <logsDir>/<runName>-<timestamp>.jsonl and writes the
// run_started record.
func NewRunLog(logsDir, runName string) (*RunLog, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	l := &RunLog{
		runID: uuid.NewString(),
		now:   time.Now,
	}
	createdAt := l.now().UTC()
	l.path = filepath.Join(logsDir, fmt.Sprintf("%s-%s.jsonl", runName, createdAt.Format("20060102-150405")))

	if err := l.Log(EventRunStarted, map[string]any{
		"run_name":   runName,
		"created_at": createdAt.Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the log file location.
func (l *RunLog) Path() string {
	return l.path
}

// RunID returns the identifier stamped on every record.
func (l *RunLog) RunID() string {
	return l.runID
}

// Log appends an event to the log file.
func (l *RunLog) Log(event string, data map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := RunEvent{
		Timestamp: l.now().UTC(),
		RunID:     l.runID,
		Event:     event,
		Data:      data,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	jsonBytes = append(jsonBytes, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(jsonBytes)
	return err
}

// Exchange records a raw collaborator response.
func (l *RunLog) Exchange(role, text string) error {
	return l.Log(EventExchange, map[string]any{
		"agent_name": role,
		"text":       text,
	})
}

// TaskStarted logs a task_started event.
func (l *RunLog) TaskStarted(taskName string) error {
	return l.Log(EventTaskStarted, map[string]any{
		"task": taskName,
	})
}

// TaskCompleted logs a task_completed event.
func (l *RunLog) TaskCompleted(taskName string, stepResults int) error {
	return l.Log(EventTaskCompleted, map[string]any{
		"task":         taskName,
		"step_results": stepResults,
	})
}

// TaskFailed logs a task_failed event.
func (l *RunLog) TaskFailed(taskName string, reason string) error {
	return l.Log(EventTaskFailed, map[string]any{
		"task":   taskName,
		"reason": reason,
	})
}

// Replan logs a replan event.
func (l *RunLog) Replan(taskName, stepID, feedback string, attempt int) error {
	return l.Log(EventReplan, map[string]any{
		"task":     taskName,
		"step_id":  stepID,
		"feedback": feedback,
		"attempt":  attempt,
	})
}
