package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pablasso/crewflow/internal/ai"
	"github.com/pablasso/crewflow/internal/config"
	"github.com/pablasso/crewflow/internal/demo"
	"github.com/pablasso/crewflow/internal/executor"
)

const (
	configFileName  = "crewflow.yaml"
	exampleTasksDir = "tasks"
	exampleTasks    = "example_tasks.json"
)

// ErrAlreadyInitialized is returned by init when crewflow.yaml exists.
var ErrAlreadyInitialized = errors.New("crewflow is already initialized in this directory (use --force to overwrite)")

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter config and task file in the current directory",
		Long:  "Writes crewflow.yaml with the default settings and tasks/example_tasks.json with three sample tasks.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runInit(".", force); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Initialized crewflow in", configFileName)
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "  1. Set OPENAI_API_KEY in your environment or in a .env file")
			fmt.Fprintf(out, "  2. Edit %s\n", filepath.Join(exampleTasksDir, exampleTasks))
			fmt.Fprintln(out, "  3. Run: crewflow run")
			fmt.Fprintln(out, "\nTry it without a key first: crewflow demo")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

// starterConfig is the subset of settings written by init. The API key always
// comes from the environment.
type starterConfig struct {
	Tasks             string `yaml:"tasks"`
	RunName           string `yaml:"run-name"`
	ReportsDir        string `yaml:"reports-dir"`
	LogsDir           string `yaml:"logs-dir"`
	Model             string `yaml:"model"`
	MaxPlanIterations int    `yaml:"max-plan-iterations"`
	MaxStepIterations int    `yaml:"max-step-iterations"`
	MaxReplanAttempts int    `yaml:"max-replan-attempts"`
}

func runInit(dir string, force bool) error {
	cfgPath := filepath.Join(dir, configFileName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return ErrAlreadyInitialized
	}

	tasksPath := filepath.Join(dir, exampleTasksDir, exampleTasks)
	if err := os.MkdirAll(filepath.Dir(tasksPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", exampleTasksDir, err)
	}

	tasks, err := demo.SampleTasksJSON()
	if err != nil {
		return err
	}
	// An existing task file is kept unless forced.
	if _, err := os.Stat(tasksPath); err != nil || force {
		if err := os.WriteFile(tasksPath, tasks, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", tasksPath, err)
		}
	}

	data, err := yaml.Marshal(starterConfig{
		Tasks:             filepath.ToSlash(filepath.Join(exampleTasksDir, exampleTasks)),
		RunName:           "automation-run",
		ReportsDir:        "reports",
		LogsDir:           "logs",
		Model:             ai.DefaultModel,
		MaxPlanIterations: executor.DefaultMaxPlanIterations,
		MaxStepIterations: executor.DefaultMaxStepIterations,
		MaxReplanAttempts: executor.DefaultMaxReplanAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", configFileName, err)
	}
	header := fmt.Sprintf("# crewflow settings. Flags and %s_* environment variables take precedence.\n", config.EnvPrefix)
	if err := os.WriteFile(cfgPath, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfgPath, err)
	}
	return nil
}
