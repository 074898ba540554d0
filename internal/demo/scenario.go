package demo

import (
	"fmt"
	"strings"
)

// Scenario controls how the scripted crew behaves.
type Scenario string

const (
	ScenarioSuccess      Scenario = "success"       // every proposal and attempt is approved
	ScenarioFlaky        Scenario = "flaky"         // the second step is rejected once
	ScenarioReplan       Scenario = "replan"        // the second step asks for one replan
	ScenarioRejectedPlan Scenario = "rejected-plan" // the first proposal is rejected
	ScenarioFail         Scenario = "fail"          // the first step is never approved
)

// Scenarios lists every scenario in the order shown in help text.
func Scenarios() []Scenario {
	return []Scenario{ScenarioSuccess, ScenarioFlaky, ScenarioReplan, ScenarioRejectedPlan, ScenarioFail}
}

// ParseScenario validates and normalizes a scenario name.
func ParseScenario(value string) (Scenario, error) {
	s := Scenario(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Scenarios() {
		if s == known {
			return s, nil
		}
	}
	names := make([]string, 0, len(Scenarios()))
	for _, known := range Scenarios() {
		names = append(names, string(known))
	}
	return "", fmt.Errorf("invalid demo scenario %q (valid: %s)", value, strings.Join(names, ", "))
}
