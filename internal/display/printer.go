package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// palette is cycled through as new roles appear.
var palette = []lipgloss.Color{
	lipgloss.Color("#5FAFAF"), // teal
	lipgloss.Color("#D7AF5F"), // amber
	lipgloss.Color("#AF87D7"), // lavender
	lipgloss.Color("#87AF87"), // sage
	lipgloss.Color("#D7875F"), // copper
	lipgloss.Color("#5F87D7"), // steel blue
}

// Printer renders model responses for a human reader. Each role keeps the
// color it was first assigned for the lifetime of the Printer.
type Printer struct {
	mu       sync.Mutex
	renderer *lipgloss.Renderer
	emit     func(string)
	styles   map[string]lipgloss.Style
	key      lipgloss.Style
}

// NewPrinter creates a Printer writing to w. Colors are dropped automatically
// when w is not a terminal.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		renderer: r,
		emit:     func(s string) { fmt.Fprintln(w, s) },
		styles:   make(map[string]lipgloss.Style),
		key:      r.NewStyle().Bold(true),
	}
}

// Above routes output through d so it does not overwrite the status line.
func (p *Printer) Above(d *Display) *Printer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit = func(s string) { d.PrintAbove("%s", s) }
	return p
}

// Show prints a role header followed by the response. JSON objects are
// printed key by key in the order the model sent them.
func (p *Printer) Show(role, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	header := p.styleFor(role).Render("[" + role + "]")
	p.emit(header + "\n" + indent(p.format(text)))
}

// styleFor must be called with p.mu held.
func (p *Printer) styleFor(role string) lipgloss.Style {
	if s, ok := p.styles[role]; ok {
		return s
	}
	color := palette[len(p.styles)%len(palette)]
	s := p.renderer.NewStyle().Bold(true).Foreground(color)
	p.styles[role] = s
	return s
}

func (p *Printer) format(text string) string {
	text = strings.TrimSpace(text)
	fields, ok := orderedFields([]byte(text))
	if !ok {
		return text
	}
	if len(fields) == 0 {
		return "(empty response)"
	}

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, p.key.Render(humanize(f.key)+":")+" "+renderValue(f.value))
	}
	return strings.Join(lines, "\n")
}

type field struct {
	key   string
	value json.RawMessage
}

// orderedFields decodes the top-level keys of a JSON object preserving order.
func orderedFields(data []byte) ([]field, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, false
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, false
		}
		fields = append(fields, field{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	return fields, true
}

func renderValue(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}

	switch val := v.(type) {
	case nil:
		return "-"
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case string:
		return val
	case []any:
		if len(val) == 0 {
			return "-"
		}
		parts := make([]string, len(val))
		for i, item := range val {
			if s, ok := item.(string); ok {
				parts[i] = s
				continue
			}
			b, _ := json.Marshal(item)
			parts[i] = string(b)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return string(raw)
		}
		return buf.String()
	default:
		return string(raw)
	}
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "  " + l
		}
	}
	return strings.Join(lines, "\n")
}

// humanize turns snake_case keys into sentence case labels.
func humanize(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
