// Package tui renders a conversion in progress: what is being sent, the
// current transfer state, and where the artifact ended up.
package tui

import (
	"context"
	"fmt"
	"strings"

	"mdpress/internal/errors"
	"mdpress/internal/transfer"
	"mdpress/internal/tui/components"
	"mdpress/internal/tui/messages"
	"mdpress/internal/tui/styles"
	"mdpress/pkg/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

// RunFunc converts and saves, returning the saved location.
type RunFunc func(ctx context.Context) (string, error)

type Model struct {
	title   string
	stats   types.ManifestStats
	listing []string
	status  *components.StatusBar

	states chan transfer.State
	run    RunFunc
	ctx    context.Context
	cancel context.CancelFunc

	location string
	err      error
	done     bool
}

// New creates a model for converting a manifest. listing is shown as is.
func New(ctx context.Context, title string, stats types.ManifestStats, listing []string, run RunFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		title:   title,
		stats:   stats,
		listing: listing,
		status:  components.NewStatusBar("starting"),
		states:  make(chan transfer.State, 16),
		run:     run,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnState forwards transfer state changes to the view. Pass it as
// transfer.Options.OnState.
func (m *Model) OnState(s transfer.State) {
	select {
	case m.states <- s:
	default:
	}
}

// Result returns the outcome once the program has exited.
func (m *Model) Result() (string, error) {
	return m.location, m.err
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.status.Tick(), m.waitState(), m.start())
}

func (m *Model) start() tea.Cmd {
	return func() tea.Msg {
		loc, err := m.run(m.ctx)
		// run has returned, so OnState is no longer called.
		close(m.states)
		return messages.DoneMsg{Location: loc, Err: err}
	}
}

func (m *Model) waitState() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.states
		if !ok {
			return nil
		}
		return messages.StateMsg{State: s}
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.done {
				return m, tea.Quit
			}
			m.cancel()
			m.status.Set("cancelling")
		}
		return m, nil

	case messages.StateMsg:
		m.status.Set(msg.State.String())
		return m, m.waitState()

	case messages.DoneMsg:
		m.done = true
		m.cancel()
		m.location, m.err = msg.Location, msg.Err
		if msg.Err != nil {
			m.status.Fail(failureText(msg.Err))
		} else {
			m.status.Succeed("saved " + msg.Location)
		}
		return m, tea.Quit
	}

	return m, m.status.Update(msg)
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.Theme.Title.Render(m.title))
	b.WriteString("\n")
	b.WriteString(styles.Theme.Muted.Render(Summary(m.stats)))
	b.WriteString("\n\n")
	for _, line := range m.listing {
		b.WriteString(styles.Theme.Path.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.status.View())
	b.WriteString("\n")
	if m.status.Pending() {
		b.WriteString(styles.Theme.Help.Render("q: cancel"))
		b.WriteString("\n")
	}
	return styles.Theme.App.Render(b.String())
}

// Summary describes manifest stats on one line.
func Summary(s types.ManifestStats) string {
	return fmt.Sprintf("%d files, %d markdown, %d images, %s",
		s.Files, s.Markdown, s.Images, humanize.Bytes(uint64(s.Bytes)))
}

func failureText(err error) string {
	f := types.ResultOf(nil, err).Failure
	if f.Kind == errors.Unknown {
		return f.Detail
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}
