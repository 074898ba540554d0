package demo

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/pablasso/crewflow/internal/plan"
)

const fixtureVersionV1 = 1

//go:embed fixtures/tasks.v1.json
var embeddedFixtures embed.FS

type fixtureV1 struct {
	Version int         `json:"version"`
	Tasks   []plan.Task `json:"tasks"`
}

// SampleTasks returns the embedded example batch.
func SampleTasks() ([]plan.Task, error) {
	data, err := embeddedFixtures.ReadFile("fixtures/tasks.v1.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded task fixture: %w", err)
	}

	var fx fixtureV1
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse embedded task fixture: %w", err)
	}
	if fx.Version != fixtureVersionV1 {
		return nil, fmt.Errorf("unsupported task fixture version %d", fx.Version)
	}
	if err := plan.ValidateTasks(fx.Tasks); err != nil {
		return nil, fmt.Errorf("embedded task fixture: %w", err)
	}
	return fx.Tasks, nil
}

// SampleTasksJSON returns the example batch as an indented task file.
func SampleTasksJSON() ([]byte, error) {
	tasks, err := SampleTasks()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
