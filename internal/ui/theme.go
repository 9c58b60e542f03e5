package ui

import "github.com/charmbracelet/lipgloss"

var (
	subtle  = lipgloss.Color("#a6adc8")
	accent  = lipgloss.Color("#74c7ec")
	green   = lipgloss.Color("#a6e3a1")
	yellow  = lipgloss.Color("#f9e2af")
	red     = lipgloss.Color("#f38ba8")
	surface = lipgloss.Color("#45475a")

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(surface).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(subtle).Width(16)
	mutedStyle = lipgloss.NewStyle().Foreground(subtle)
	errorStyle = lipgloss.NewStyle().Foreground(red)
	valueStyle = lipgloss.NewStyle().Bold(true)
)

func stateStyle(state string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch state {
	case "tracking":
		return base.Foreground(lipgloss.Color("#1e1e2e")).Background(green)
	case "paused":
		return base.Foreground(lipgloss.Color("#1e1e2e")).Background(yellow)
	default:
		return base.Foreground(lipgloss.Color("#1e1e2e")).Background(subtle)
	}
}
