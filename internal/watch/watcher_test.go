package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan FileModification, match func(FileModification) bool) FileModification {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "Event channel closed unexpectedly")
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("Timeout waiting for event")
		}
	}
}

func TestWatcherFsnotify(t *testing.T) {
	tempDir := t.TempDir()

	w, err := New()
	require.NoError(t, err, "New watcher creation failed")
	require.NoError(t, w.AddTree(tempDir), "Failed to add directory to watcher")
	require.NoError(t, w.Start(), "Failed to start watcher")
	defer w.Stop()

	evChan := w.FileChannel()
	require.NotNil(t, evChan)
	// Allow a brief moment for fsnotify to initialize watches
	time.Sleep(100 * time.Millisecond)

	// --- File creation ---
	testFilePath := filepath.Join(tempDir, "index.md")
	require.NoError(t, os.WriteFile(testFilePath, nil, 0644))
	event := waitFor(t, evChan, func(ev FileModification) bool {
		return ev.Path == testFilePath && ev.Op.Has(fsnotify.Create)
	})
	require.NotNil(t, event.Info)
	assert.Equal(t, "index.md", event.Info.Name())

	// --- Directories created later are watched too ---
	sub := filepath.Join(tempDir, "chapters")
	require.NoError(t, os.Mkdir(sub, 0755))
	waitFor(t, evChan, func(ev FileModification) bool { return ev.Path == sub })
	assert.Contains(t, w.GetDirectories(), sub)

	nested := filepath.Join(sub, "01.md")
	require.NoError(t, os.WriteFile(nested, []byte("# One"), 0644))
	waitFor(t, evChan, func(ev FileModification) bool { return ev.Path == nested })

	// --- Removal carries no info ---
	require.NoError(t, os.Remove(testFilePath))
	event = waitFor(t, evChan, func(ev FileModification) bool {
		return ev.Path == testFilePath && ev.Op.Has(fsnotify.Remove)
	})
	assert.Nil(t, event.Info)

	// --- Stop closes the channel ---
	w.Stop()
	assert.False(t, w.IsRunning())
	assert.Error(t, w.Start())

	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-evChan:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("Timeout waiting for event channel to close after stop")
		}
	}
}

func TestWatcherIgnore(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, ".git"), 0755))

	w, err := New(WithIgnore(func(p string) bool {
		return strings.HasPrefix(filepath.Base(p), ".")
	}))
	require.NoError(t, err)
	require.NoError(t, w.AddTree(tempDir))
	assert.Equal(t, []string{tempDir}, w.GetDirectories())

	require.NoError(t, w.Start())
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".swp"), nil, 0644))
	visible := filepath.Join(tempDir, "a.md")
	require.NoError(t, os.WriteFile(visible, nil, 0644))

	event := waitFor(t, w.FileChannel(), func(FileModification) bool { return true })
	assert.Equal(t, visible, event.Path)
}

func TestAddDirectoryRejectsFiles(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Stop()

	file := filepath.Join(t.TempDir(), "a.md")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, w.AddDirectory(file))
	assert.Error(t, w.AddDirectory(filepath.Join(t.TempDir(), "missing")))
}

func TestLoopDebouncesAndRebuilds(t *testing.T) {
	tempDir := t.TempDir()
	w, err := New()
	require.NoError(t, err)
	require.NoError(t, w.AddTree(tempDir))
	require.NoError(t, w.Start())
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	var runs atomic.Int32
	rebuilt := make(chan struct{}, 16)
	loop := NewLoop(w, 100*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		rebuilt <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- loop.Run(ctx) }()

	// Initial build.
	select {
	case <-rebuilt:
	case <-time.After(3 * time.Second):
		t.Fatal("no initial rebuild")
	}

	// A burst of writes collapses into one rebuild.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "a.md"), []byte{byte('a' + i)}, 0644))
	}
	select {
	case <-rebuilt:
	case <-time.After(3 * time.Second):
		t.Fatal("no rebuild after changes")
	}
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())

	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoopAbandonsStaleRebuild(t *testing.T) {
	tempDir := t.TempDir()
	w, err := New()
	require.NoError(t, err)
	require.NoError(t, w.AddTree(tempDir))
	require.NoError(t, w.Start())
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	var runs atomic.Int32
	cancelled := make(chan struct{}, 1)
	second := make(chan struct{}, 1)
	loop := NewLoop(w, 20*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			<-ctx.Done()
			cancelled <- struct{}{}
			return ctx.Err()
		}
		second <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "b.md"), nil, 0644))

	for _, ch := range []chan struct{}{cancelled, second} {
		select {
		case <-ch:
		case <-time.After(3 * time.Second):
			t.Fatal("stale rebuild was not replaced")
		}
	}
}
