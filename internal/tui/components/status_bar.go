package components

import (
	"mdpress/internal/tui/styles"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type outcome int

const (
	pending outcome = iota
	succeeded
	failed
)

// StatusBar shows the state of one conversion. It spins while the conversion
// is pending and settles on a success or failure line once it ends; later
// updates are ignored.
type StatusBar struct {
	text    string
	outcome outcome
	spinner spinner.Model
}

// NewStatusBar creates a pending status showing text.
func NewStatusBar(text string) *StatusBar {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Theme.Help
	return &StatusBar{text: text, spinner: s}
}

// Pending reports whether the conversion has not ended yet.
func (s *StatusBar) Pending() bool {
	return s.outcome == pending
}

// Set replaces the text of a pending status.
func (s *StatusBar) Set(text string) {
	if s.Pending() {
		s.text = text
	}
}

func (s *StatusBar) Succeed(text string) { s.finish(succeeded, text) }
func (s *StatusBar) Fail(text string)    { s.finish(failed, text) }

func (s *StatusBar) finish(o outcome, text string) {
	if s.Pending() {
		s.outcome, s.text = o, text
	}
}

// Tick starts the spinner animation.
func (s *StatusBar) Tick() tea.Cmd {
	return s.spinner.Tick
}

func (s *StatusBar) Update(msg tea.Msg) tea.Cmd {
	if !s.Pending() {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

func (s *StatusBar) View() string {
	switch s.outcome {
	case succeeded:
		return styles.Theme.Success.Render(s.text)
	case failed:
		return styles.Theme.Error.Render(s.text)
	}
	return s.spinner.View() + " " + styles.Theme.Help.Render(s.text)
}
