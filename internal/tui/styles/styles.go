// Package styles defines shared lipgloss styles for the run view.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#5FAFAF") // teal
	secondaryColor = lipgloss.Color("#666666") // gray
	successColor   = lipgloss.Color("#87AF87") // sage
	warningColor   = lipgloss.Color("#D7AF5F") // amber
	errorColor     = lipgloss.Color("#AF5F5F") // terracotta

	// TitleStyle for the run header
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// SubtleStyle for section labels and hints
	SubtleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	// SelectedStyle for the task or step in progress
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// StatusBarStyle for the bottom help bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	// BoxStyle for panel borders
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)

	// SuccessStyle marks approved work
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle marks rejections and replans
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle marks failed tasks
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)
