package executor

import "fmt"

// Default bounds.
const (
	DefaultMaxPlanIterations = 3
	DefaultMaxStepIterations = 3
	DefaultMaxReplanAttempts = 2
)

// Config bounds every retry loop of the engine.
type Config struct {
	// MaxPlanIterations caps plan proposals across the whole task, replans included.
	MaxPlanIterations int
	// MaxStepIterations caps execution attempts per step.
	MaxStepIterations int
	// MaxReplanAttempts caps replan signals per approved plan.
	MaxReplanAttempts int
}

// DefaultConfig returns the default bounds (3/3/2).
func DefaultConfig() Config {
	return Config{
		MaxPlanIterations: DefaultMaxPlanIterations,
		MaxStepIterations: DefaultMaxStepIterations,
		MaxReplanAttempts: DefaultMaxReplanAttempts,
	}
}

// Validate checks that all bounds are positive.
func (c Config) Validate() error {
	if c.MaxPlanIterations < 1 {
		return fmt.Errorf("max plan iterations must be positive, got %d", c.MaxPlanIterations)
	}
	if c.MaxStepIterations < 1 {
		return fmt.Errorf("max step iterations must be positive, got %d", c.MaxStepIterations)
	}
	if c.MaxReplanAttempts < 1 {
		return fmt.Errorf("max replan attempts must be positive, got %d", c.MaxReplanAttempts)
	}
	return nil
}
