package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pablasso/crewflow/internal/ai"
	"github.com/pablasso/crewflow/internal/executor"
)

// ErrMissingAPIKey is returned when a live run has no model credential.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set; provide a key to run the workflow")

// EnvPrefix prefixes every environment override, e.g. CREWFLOW_RUN_NAME.
const EnvPrefix = "CREWFLOW"

// Keys shared by flags, environment variables and the config file.
const (
	KeyTasks               = "tasks"
	KeyRunName             = "run-name"
	KeyReportsDir          = "reports-dir"
	KeyLogsDir             = "logs-dir"
	KeyMaxPlanIterations   = "max-plan-iterations"
	KeyMaxStepIterations   = "max-step-iterations"
	KeyMaxReplanAttempts   = "max-replan-attempts"
	KeyMaxSkillInvocations = "max-skill-invocations"
	KeyModel               = "model"
	KeyBaseURL             = "base-url"
	KeyAPIKey              = "api-key"
	KeyTimeout             = "timeout"
	KeyKeepGoing           = "keep-going"
	KeyNoCoordinator       = "no-coordinator"
	KeyTUI                 = "tui"
	KeyDemo                = "demo"
	KeyMetricsFile         = "metrics-file"
	KeyLogLevel            = "log-level"
	KeyQuiet               = "quiet"
)

// Config is the resolved configuration of one run.
type Config struct {
	Tasks               string
	RunName             string
	ReportsDir          string
	LogsDir             string
	MaxPlanIterations   int
	MaxStepIterations   int
	MaxReplanAttempts   int
	MaxSkillInvocations int
	Model               string
	BaseURL             string
	APIKey              string
	Timeout             time.Duration
	KeepGoing           bool
	NoCoordinator       bool
	TUI                 bool
	Demo                string
	MetricsFile         string
	LogLevel            string
	Quiet               bool
	// File is the config file that was read, if any.
	File string
}

// RegisterFlags defines the run flags on fs with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyTasks, "tasks/example_tasks.json", "Path to a JSON or YAML file describing the tasks")
	fs.String(KeyRunName, "automation-run", "Name used for the run log")
	fs.String(KeyReportsDir, "reports", "Directory where reports are written")
	fs.String(KeyLogsDir, "logs", "Directory where run logs are written")
	fs.Int(KeyMaxPlanIterations, executor.DefaultMaxPlanIterations, "Plan proposals allowed per task, replans included")
	fs.Int(KeyMaxStepIterations, executor.DefaultMaxStepIterations, "Execution attempts allowed per step")
	fs.Int(KeyMaxReplanAttempts, executor.DefaultMaxReplanAttempts, "Replans allowed per approved plan")
	fs.Int(KeyMaxSkillInvocations, ai.DefaultMaxSkillInvocations, "Skill calls allowed per execution attempt")
	fs.String(KeyModel, ai.DefaultModel, "Model name")
	fs.String(KeyBaseURL, ai.DefaultBaseURL, "OpenAI-compatible API base URL")
	fs.Duration(KeyTimeout, ai.DefaultTimeout, "Timeout for a single model request")
	fs.Bool(KeyKeepGoing, false, "Continue with remaining tasks after a task fails")
	fs.Bool(KeyNoCoordinator, false, "Skip the coordinator kickoff and synthesis")
	fs.Bool(KeyTUI, false, "Show an interactive progress view")
	fs.String(KeyDemo, "", "Run with scripted collaborators (success, flaky, replan, rejected-plan, fail)")
	fs.String(KeyMetricsFile, "", "Write Prometheus metrics to this file when the run ends")
	fs.String(KeyLogLevel, "warn", "Log level (debug, info, warn, error)")
	fs.Bool(KeyQuiet, false, "Do not print model responses")
}

// Load resolves configuration with precedence flag > environment > config
// file > default. A .env file in the working directory is loaded first;
// it never overrides variables that are already set. configFile may be empty,
// in which case ./crewflow.yaml is read when present.
func Load(fs *pflag.FlagSet, configFile string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyAPIKey, EnvPrefix+"_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv(KeyModel, EnvPrefix+"_MODEL", "OPENAI_MODEL"); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("crewflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	return &Config{
		Tasks:               v.GetString(KeyTasks),
		RunName:             v.GetString(KeyRunName),
		ReportsDir:          v.GetString(KeyReportsDir),
		LogsDir:             v.GetString(KeyLogsDir),
		MaxPlanIterations:   v.GetInt(KeyMaxPlanIterations),
		MaxStepIterations:   v.GetInt(KeyMaxStepIterations),
		MaxReplanAttempts:   v.GetInt(KeyMaxReplanAttempts),
		MaxSkillInvocations: v.GetInt(KeyMaxSkillInvocations),
		Model:               v.GetString(KeyModel),
		BaseURL:             v.GetString(KeyBaseURL),
		APIKey:              v.GetString(KeyAPIKey),
		Timeout:             v.GetDuration(KeyTimeout),
		KeepGoing:           v.GetBool(KeyKeepGoing),
		NoCoordinator:       v.GetBool(KeyNoCoordinator),
		TUI:                 v.GetBool(KeyTUI),
		Demo:                v.GetString(KeyDemo),
		MetricsFile:         v.GetString(KeyMetricsFile),
		LogLevel:            v.GetString(KeyLogLevel),
		Quiet:               v.GetBool(KeyQuiet),
		File:                v.ConfigFileUsed(),
	}, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks the bounds and, for live runs, the credential.
func (c *Config) Validate() error {
	if err := c.Executor().Validate(); err != nil {
		return err
	}
	if c.MaxSkillInvocations < 0 {
		return fmt.Errorf("max skill invocations must not be negative, got %d", c.MaxSkillInvocations)
	}
	if c.RunName == "" {
		return errors.New("run name must not be empty")
	}
	if strings.ContainsAny(c.RunName, `/\`) {
		return fmt.Errorf("run name %q must not contain path separators", c.RunName)
	}
	if c.Demo == "" {
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
		if c.Timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
		}
	}
	return nil
}

// Executor returns the engine bounds.
func (c *Config) Executor() executor.Config {
	return executor.Config{
		MaxPlanIterations: c.MaxPlanIterations,
		MaxStepIterations: c.MaxStepIterations,
		MaxReplanAttempts: c.MaxReplanAttempts,
	}
}

// Client returns the chat client settings.
func (c *Config) Client() ai.ClientConfig {
	return ai.ClientConfig{
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		Model:   c.Model,
		Timeout: c.Timeout,
	}
}
