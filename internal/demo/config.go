package demo

import (
	"fmt"
	"strings"
	"time"
)

// Preset controls demo pacing.
type Preset string

const (
	PresetQuick  Preset = "quick"
	PresetMedium Preset = "medium"
	PresetSlow   Preset = "slow"
)

// ParsePreset validates and normalizes a preset name. The empty string is
// PresetQuick.
func ParsePreset(value string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PresetQuick, nil
	case PresetQuick, PresetMedium, PresetSlow:
		return p, nil
	default:
		return "", fmt.Errorf("invalid demo preset %q (valid: quick, medium, slow)", value)
	}
}

// Config controls the scripted crew.
type Config struct {
	Scenario Scenario
	Preset   Preset
	// CallDelay is slept before every scripted response.
	CallDelay time.Duration
}

// NewConfig computes a Config for scenario and preset.
func NewConfig(scenario Scenario, preset Preset) (Config, error) {
	delay, err := delayForPreset(preset)
	if err != nil {
		return Config{}, err
	}
	return Config{Scenario: scenario, Preset: preset, CallDelay: delay}, nil
}

func delayForPreset(preset Preset) (time.Duration, error) {
	switch preset {
	case PresetQuick, "":
		return 0, nil
	case PresetMedium:
		return 300 * time.Millisecond, nil
	case PresetSlow:
		return 1500 * time.Millisecond, nil
	default:
		return 0, fmt.Errorf("unknown demo preset %q", preset)
	}
}
