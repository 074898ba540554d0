package plan

// Task describes a unit of work submitted to the workflow.
// Tasks are constructed once from external input and treated as read-only.
type Task struct {
	Name        string   `json:"name" yaml:"name"`
	Objective   string   `json:"objective" yaml:"objective"`
	Context     string   `json:"context,omitempty" yaml:"context,omitempty"`
	Deliverable string   `json:"deliverable,omitempty" yaml:"deliverable,omitempty"`
	Constraints []string `json:"constraints" yaml:"constraints,omitempty"`
}

// Clone returns a copy of the task that shares no slices with t.
func (t Task) Clone() Task {
	out := t
	if t.Constraints != nil {
		out.Constraints = append([]string(nil), t.Constraints...)
	}
	return out
}
