package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks a collaborator response that could not be parsed
// into the expected record. It is fatal for the task, never retried.
var ErrMalformedResponse = errors.New("malformed collaborator response")

// Response kinds used in ParseError.
const (
	KindPlan            = "plan"
	KindPlanReview      = "plan review"
	KindStepReview      = "step review"
	KindFinalReview     = "final review"
	KindExecutionOutput = "execution output"
)

// ParseError describes why a response was rejected.
type ParseError struct {
	Kind   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s response: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s response: %s", e.Kind, e.Reason)
}

// Is makes every ParseError match ErrMalformedResponse.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func malformed(kind, reason string, err error) error {
	return &ParseError{Kind: kind, Reason: reason, Err: err}
}

// Text is free text that tolerates non-string JSON. Numbers, booleans, objects
// and arrays are kept as their compact JSON encoding.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*t = Text(buf.String())
	return nil
}

// String returns the text.
func (t Text) String() string {
	return string(t)
}

// StringList is a list of strings that also accepts a single string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []Text
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(StringList, 0, len(items))
		for _, item := range items {
			out = append(out, string(item))
		}
		*l = out
		return nil
	}
	var single Text
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*l = nil
		return nil
	}
	*l = StringList{string(single)}
	return nil
}

// decodeObject checks that data is a JSON object and returns its fields.
func decodeObject(kind string, data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, malformed(kind, "expected a JSON object", err)
	}
	if fields == nil {
		return nil, malformed(kind, "expected a JSON object, got null", nil)
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// requiredBool decodes a mandatory boolean field.
func requiredBool(kind string, fields map[string]json.RawMessage, key string) (bool, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return false, malformed(kind, fmt.Sprintf("missing %q", key), nil)
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, malformed(kind, fmt.Sprintf("%q must be a boolean", key), err)
	}
	return v, nil
}

// optionalBool decodes a boolean field that defaults to false.
func optionalBool(kind string, fields map[string]json.RawMessage, key string) (bool, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return false, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, malformed(kind, fmt.Sprintf("%q must be a boolean", key), err)
	}
	return v, nil
}

func optionalText(kind string, fields map[string]json.RawMessage, keys ...string) (Text, error) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		var v Text
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", malformed(kind, fmt.Sprintf("invalid %q", key), err)
		}
		return v, nil
	}
	return "", nil
}

func optionalList(kind string, fields map[string]json.RawMessage, key string) (StringList, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var v StringList
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, malformed(kind, fmt.Sprintf("invalid %q", key), err)
	}
	return v, nil
}

// ParsePlan decodes a planner response. A missing or null "steps" field is an
// empty plan; anything other than an array of objects is malformed.
func ParsePlan(data []byte) (*Plan, error) {
	fields, err := decodeObject(KindPlan, data)
	if err != nil {
		return nil, err
	}

	overview, err := optionalText(KindPlan, fields, "plan_overview", "overview")
	if err != nil {
		return nil, err
	}
	assumptions, err := optionalList(KindPlan, fields, "assumptions")
	if err != nil {
		return nil, err
	}

	p := &Plan{Overview: string(overview), Assumptions: []string(assumptions)}

	raw, ok := fields["steps"]
	if !ok || isNull(raw) {
		return p, nil
	}
	if firstByte(raw) != '[' {
		return nil, malformed(KindPlan, `"steps" must be an array`, nil)
	}
	var rawSteps []json.RawMessage
	if err := json.Unmarshal(raw, &rawSteps); err != nil {
		return nil, malformed(KindPlan, `invalid "steps"`, err)
	}

	p.Steps = make([]Step, 0, len(rawSteps))
	for i, rs := range rawSteps {
		step, err := parseStep(rs)
		if err != nil {
			return nil, malformed(KindPlan, fmt.Sprintf("step %d", i+1), err)
		}
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

func parseStep(raw json.RawMessage) (Step, error) {
	if firstByte(raw) != '{' {
		return Step{}, errors.New("expected an object")
	}
	var wire struct {
		ID              Text       `json:"id"`
		Description     Text       `json:"description"`
		Rationale       Text       `json:"rationale"`
		SuccessCriteria StringList `json:"success_criteria"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Step{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Step{}, err
	}

	step := Step{
		ID:              strings.TrimSpace(string(wire.ID)),
		Description:     string(wire.Description),
		Rationale:       string(wire.Rationale),
		SuccessCriteria: wire.SuccessCriteria,
	}
	for k, v := range fields {
		if stepKeys[k] {
			continue
		}
		if step.Extra == nil {
			step.Extra = make(map[string]json.RawMessage)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, v); err != nil {
			return Step{}, err
		}
		step.Extra[k] = compact.Bytes()
	}
	return step, nil
}

// ParsePlanReview decodes a plan review. "approved" is mandatory.
func ParsePlanReview(data []byte) (*PlanReview, error) {
	fields, err := decodeObject(KindPlanReview, data)
	if err != nil {
		return nil, err
	}
	approved, err := requiredBool(KindPlanReview, fields, "approved")
	if err != nil {
		return nil, err
	}
	feedback, err := optionalText(KindPlanReview, fields, "feedback")
	if err != nil {
		return nil, err
	}
	confidence, err := optionalText(KindPlanReview, fields, "confidence")
	if err != nil {
		return nil, err
	}
	return &PlanReview{Approved: approved, Feedback: feedback, Confidence: confidence}, nil
}

// ParseStepReview decodes a step review. "approved" is mandatory, "quality"
// must be one of high, medium or low when present.
func ParseStepReview(data []byte) (*StepReview, error) {
	fields, err := decodeObject(KindStepReview, data)
	if err != nil {
		return nil, err
	}
	approved, err := requiredBool(KindStepReview, fields, "approved")
	if err != nil {
		return nil, err
	}
	replan, err := optionalBool(KindStepReview, fields, "requires_replan")
	if err != nil {
		return nil, err
	}
	feedback, err := optionalText(KindStepReview, fields, "feedback")
	if err != nil {
		return nil, err
	}
	rawQuality, err := optionalText(KindStepReview, fields, "quality")
	if err != nil {
		return nil, err
	}
	quality := Quality(strings.ToLower(strings.TrimSpace(string(rawQuality))))
	if !quality.Valid() {
		return nil, malformed(KindStepReview, fmt.Sprintf("unknown quality %q", rawQuality), nil)
	}
	return &StepReview{
		Approved:       approved,
		Feedback:       feedback,
		RequiresReplan: replan,
		Quality:        quality,
	}, nil
}

// ParseFinalReview decodes the final review. "approved" is mandatory.
func ParseFinalReview(data []byte) (*FinalReview, error) {
	fields, err := decodeObject(KindFinalReview, data)
	if err != nil {
		return nil, err
	}
	approved, err := requiredBool(KindFinalReview, fields, "approved")
	if err != nil {
		return nil, err
	}
	feedback, err := optionalText(KindFinalReview, fields, "feedback")
	if err != nil {
		return nil, err
	}
	highlights, err := optionalList(KindFinalReview, fields, "highlights")
	if err != nil {
		return nil, err
	}
	risks, err := optionalList(KindFinalReview, fields, "risks")
	if err != nil {
		return nil, err
	}
	return &FinalReview{Approved: approved, Feedback: feedback, Highlights: highlights, Risks: risks}, nil
}

// ParseExecutionOutput decodes an executor response. An "action" that is not
// an object is ignored, as are non-object arguments.
func ParseExecutionOutput(data []byte) (*ExecutionOutput, error) {
	fields, err := decodeObject(KindExecutionOutput, data)
	if err != nil {
		return nil, err
	}
	summary, err := optionalText(KindExecutionOutput, fields, "summary")
	if err != nil {
		return nil, err
	}
	artifacts, err := optionalList(KindExecutionOutput, fields, "artifacts")
	if err != nil {
		return nil, err
	}
	notes, err := optionalText(KindExecutionOutput, fields, "notes")
	if err != nil {
		return nil, err
	}

	out := &ExecutionOutput{Summary: string(summary), Artifacts: artifacts, Notes: notes}

	if raw, ok := fields["action"]; ok && firstByte(raw) == '{' {
		var wire struct {
			Skill     Text            `json:"skill"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, malformed(KindExecutionOutput, `invalid "action"`, err)
		}
		if skill := strings.TrimSpace(string(wire.Skill)); skill != "" {
			action := &Action{Skill: skill}
			if firstByte(wire.Arguments) == '{' {
				if err := json.Unmarshal(wire.Arguments, &action.Arguments); err != nil {
					return nil, malformed(KindExecutionOutput, `invalid "action.arguments"`, err)
				}
			}
			out.Action = action
		}
	}
	return out, nil
}
