package skills

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrSkillExists is returned when registering a name twice.
	ErrSkillExists = errors.New("skill already registered")
	// ErrSkillNotFound is carried by the Result of invoking an unknown skill.
	ErrSkillNotFound = errors.New("skill not registered")
)

// Func is the operation behind a skill. args are the model-supplied arguments.
type Func func(ctx context.Context, args map[string]any) (string, error)

// Skill describes a registered operation.
type Skill struct {
	Name        string
	Description string
	Params      []string
	fn          Func
}

// Signature renders the skill as name(param, ...).
func (s Skill) Signature() string {
	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(s.Params, ", "))
}

// Result is the outcome of one invocation. Exactly one of Output or Err is
// meaningful.
type Result struct {
	Skill  string
	Output string
	Err    error
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Registry maps names to skills. It is safe for concurrent use and holds no
// per-call state.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register adds a skill. params name the expected arguments for the prompt.
func (r *Registry) Register(name string, fn Func, description string, params ...string) error {
	if name == "" {
		return errors.New("skill name is required")
	}
	if fn == nil {
		return fmt.Errorf("skill %q: nil function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.skills[name]; ok {
		return fmt.Errorf("%w: %q", ErrSkillExists, name)
	}
	r.skills[name] = Skill{
		Name:        name,
		Description: description,
		Params:      append([]string(nil), params...),
		fn:          fn,
	}
	r.order = append(r.order, name)
	return nil
}

// Invoke runs the named skill. Failures, including a missing skill or a
// panicking operation, are reported through the Result.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (res Result) {
	res.Skill = name

	r.mu.RLock()
	skill, ok := r.skills[name]
	r.mu.RUnlock()
	if !ok {
		res.Err = fmt.Errorf("%w: %q", ErrSkillNotFound, name)
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			res.Output = ""
			res.Err = fmt.Errorf("skill %q panicked: %v", name, p)
		}
	}()

	if args == nil {
		args = map[string]any{}
	}
	res.Output, res.Err = skill.fn(ctx, args)
	return res
}

// Lookup returns the named skill.
func (r *Registry) Lookup(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// List returns the skills in registration order.
func (r *Registry) List() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Skill, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.skills[name])
	}
	return out
}

// Names returns the registered names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered skills.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// PromptFragment describes the registered skills for a model prompt.
func (r *Registry) PromptFragment() string {
	list := r.List()
	if len(list) == 0 {
		return "No custom skills are registered."
	}
	lines := make([]string, 0, len(list))
	for _, s := range list {
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Signature(), s.Description))
	}
	return strings.Join(lines, "\n")
}
