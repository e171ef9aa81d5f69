package tui

import (
	"context"
	"testing"
	"time"

	"mdpress/internal/errors"
	"mdpress/internal/transfer"
	"mdpress/internal/tui/messages"
	"mdpress/pkg/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stats = types.ManifestStats{Files: 3, Markdown: 2, Images: 1, Bytes: 2048}

func isQuit(t *testing.T, cmd tea.Cmd) bool {
	t.Helper()
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModelView(t *testing.T) {
	m := New(context.Background(), "book", stats, []string{"book/a.md", "book/b.md"}, nil)
	view := m.View()
	assert.Contains(t, view, "book")
	assert.Contains(t, view, "3 files, 2 markdown, 1 images, 2.0 kB")
	assert.Contains(t, view, "book/b.md")
	assert.Contains(t, view, "starting")
	assert.Contains(t, view, "q: cancel")
}

func TestModelRunReportsStatesAndResult(t *testing.T) {
	var m *Model
	m = New(context.Background(), "book", stats, nil, func(ctx context.Context) (string, error) {
		m.OnState(transfer.Validating)
		m.OnState(transfer.Submitting)
		return "out/report.pdf", nil
	})

	done := m.start()()
	require.IsType(t, messages.DoneMsg{}, done)

	var seen []transfer.State
	for {
		msg := m.waitState()()
		if msg == nil {
			break
		}
		sm := msg.(messages.StateMsg)
		seen = append(seen, sm.State)
		_, cmd := m.Update(sm)
		require.NotNil(t, cmd)
	}
	assert.Equal(t, []transfer.State{transfer.Validating, transfer.Submitting}, seen)
	assert.Contains(t, m.View(), "submitting")

	_, cmd := m.Update(done)
	assert.True(t, isQuit(t, cmd))
	loc, err := m.Result()
	assert.NoError(t, err)
	assert.Equal(t, "out/report.pdf", loc)
	assert.Contains(t, m.View(), "saved out/report.pdf")
	assert.NotContains(t, m.View(), "q: cancel")
}

func TestModelShowsFailure(t *testing.T) {
	m := New(context.Background(), "book", stats, nil, nil)
	failure := errors.NewTransferError(errors.RemoteError, "bad input", 400, nil)

	_, cmd := m.Update(messages.DoneMsg{Err: failure})
	assert.True(t, isQuit(t, cmd))
	_, err := m.Result()
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, m.View(), "bad input")
}

func TestModelCancelKey(t *testing.T) {
	started := make(chan struct{})
	m := New(context.Background(), "book", stats, nil, func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	result := make(chan tea.Msg, 1)
	go func() { result <- m.start()() }()
	<-started

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "cancelling")

	select {
	case msg := <-result:
		done := msg.(messages.DoneMsg)
		assert.ErrorIs(t, done.Err, context.Canceled)
		_, cmd = m.Update(done)
		assert.True(t, isQuit(t, cmd))
	case <-time.After(time.Second):
		t.Fatal("run did not observe cancellation")
	}

	// Once finished, the key quits directly.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuit(t, cmd))
}
