package plan

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Plan is the ordered strategy proposed by the planning collaborator.
type Plan struct {
	Overview    string   `json:"plan_overview"`
	Assumptions []string `json:"assumptions"`
	Steps       []Step   `json:"steps"`
}

// Step is one unit of planned work. Everything except ID is opaque to the engine.
// Keys the planner sent beyond the named fields are kept in Extra and written
// back after them, so prompts and reports see the step as proposed.
type Step struct {
	ID              string     `json:"id"`
	Description     string     `json:"description,omitempty"`
	Rationale       string     `json:"rationale,omitempty"`
	SuccessCriteria StringList `json:"success_criteria,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var stepKeys = map[string]bool{"id": true, "description": true, "rationale": true, "success_criteria": true}

// MarshalJSON writes the named fields followed by Extra in key order.
func (s Step) MarshalJSON() ([]byte, error) {
	type named Step
	data, err := json.Marshal(named(s))
	if err != nil || len(s.Extra) == 0 {
		return data, err
	}

	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		if !stepKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := data[:len(data)-1]
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value := s.Extra[k]
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		out = append(out, ',')
		out = append(out, name...)
		out = append(out, ':')
		out = append(out, value...)
	}
	return append(out, '}'), nil
}

// UnmarshalJSON decodes a step leniently, the same way ParsePlan does.
func (s *Step) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	step, err := parseStep(data)
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// DefaultStepID returns the identifier assigned to a step that arrived without one.
// index is 0-based.
func DefaultStepID(index int) string {
	return fmt.Sprintf("step-%d", index+1)
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := &Plan{Overview: p.Overview}
	if p.Assumptions != nil {
		out.Assumptions = append([]string(nil), p.Assumptions...)
	}
	if p.Steps != nil {
		out.Steps = make([]Step, len(p.Steps))
		for i, s := range p.Steps {
			out.Steps[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	if s.SuccessCriteria != nil {
		out.SuccessCriteria = append(StringList(nil), s.SuccessCriteria...)
	}
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}
