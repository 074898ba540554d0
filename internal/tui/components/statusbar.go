package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/crewflow/internal/tui/styles"
)

// StatusBar renders the bottom bar: a status on the left and key hints on the
// right.
type StatusBar struct{}

// NewStatusBar creates a new StatusBar instance.
func NewStatusBar() StatusBar {
	return StatusBar{}
}

// Render returns the status bar string for the given width. Hints are joined
// with " • ". When the bar is too narrow for both sides the hints are dropped.
func (s StatusBar) Render(width int, status string, hints []string) string {
	right := strings.Join(hints, " • ")

	gap := width - lipgloss.Width(status) - lipgloss.Width(right)
	if right == "" || gap < 1 {
		return styles.StatusBarStyle.Width(width).Render(status)
	}
	return styles.StatusBarStyle.Width(width).Render(status + strings.Repeat(" ", gap) + right)
}
