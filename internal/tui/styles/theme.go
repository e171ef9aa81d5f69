package styles

import "github.com/charmbracelet/lipgloss"

// Theme defines the core UI styles
var Theme = struct {
	App     lipgloss.Style
	Title   lipgloss.Style
	Path    lipgloss.Style
	Muted   lipgloss.Style
	Help    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
}{
	App: lipgloss.NewStyle().
		Padding(1, 2),
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7B61FF")).
		MarginBottom(1),
	Path: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#CCCCCC")),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5A9")),
	Success: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#73F59F")).
		Bold(true),
	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF5F5F")).
		Bold(true),
}
