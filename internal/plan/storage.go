package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTasks reads a task batch from a JSON (.json) or YAML (.yaml, .yml) file.
// The file holds a top-level array of tasks. Every task needs a name and an
// objective, and names must be unique within the batch.
func LoadTasks(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("task file %q does not exist", path)
		}
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var tasks []Task
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("failed to parse task file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("failed to parse task file: %w", err)
		}
	}

	if err := ValidateTasks(tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ValidateTasks checks required fields and name uniqueness.
func ValidateTasks(tasks []Task) error {
	seen := make(map[string]int, len(tasks))
	for i, task := range tasks {
		if strings.TrimSpace(task.Name) == "" {
			return fmt.Errorf("task %d missing name", i+1)
		}
		if strings.TrimSpace(task.Objective) == "" {
			return fmt.Errorf("task %d (%s) missing objective", i+1, task.Name)
		}
		if prev, ok := seen[task.Name]; ok {
			return fmt.Errorf("task %d duplicates the name %q of task %d", i+1, task.Name, prev)
		}
		seen[task.Name] = i + 1
	}
	return nil
}
