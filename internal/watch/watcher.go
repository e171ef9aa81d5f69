package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mdpress/internal/log"

	"github.com/fsnotify/fsnotify"
)

// FileModification represents a change detected below a watched tree
type FileModification struct {
	Path      string
	Info      os.FileInfo // nil when the path no longer exists
	Timestamp time.Time
	Op        fsnotify.Op
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithIgnore drops events, and skips directories, for which fn returns true.
func WithIgnore(fn func(path string) bool) Option {
	return func(w *Watcher) { w.ignore = fn }
}

// WithBuffer sets the capacity of the event channel.
func WithBuffer(n int) Option {
	return func(w *Watcher) { w.buffer = n }
}

// Watcher monitors directory trees for file changes using fsnotify
type Watcher struct {
	// Directories being watched
	directories []string

	// Channel to receive file modifications
	fileModChan chan FileModification

	// Channel to signal stop
	stopChan chan struct{}

	// fsnotify watcher instance
	fsWatcher *fsnotify.Watcher

	ignore func(path string) bool
	buffer int

	// Lock for running state and the directories list
	mutex sync.RWMutex

	// Whether the watcher is running
	running bool
	stopped bool
}

// New creates a new directory watcher using fsnotify
func New(opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		directories: []string{},
		stopChan:    make(chan struct{}),
		fsWatcher:   fsWatcher,
		ignore:      func(string) bool { return false },
		buffer:      64,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.fileModChan = make(chan FileModification, w.buffer)
	return w, nil
}

// AddDirectory adds a single directory to watch using fsnotify
func (w *Watcher) AddDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to add directory %s to watcher: %w", dir, err)
	}

	w.mutex.Lock()
	found := false
	for _, existingDir := range w.directories {
		if existingDir == dir {
			found = true
			break
		}
	}
	if !found {
		w.directories = append(w.directories, dir)
	}
	w.mutex.Unlock()
	log.LogWithFields(log.F("directory", dir)).Debug("Watching directory")
	return nil
}

// AddTree watches root and every directory below it. fsnotify is not
// recursive, so directories created later are added as they appear.
func (w *Watcher) AddTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.ignore(p) {
			return filepath.SkipDir
		}
		return w.AddDirectory(p)
	})
}

// FileChannel returns the channel that delivers file modification events
func (w *Watcher) FileChannel() <-chan FileModification {
	return w.fileModChan
}

// Start begins the file watching process using fsnotify
func (w *Watcher) Start() error {
	w.mutex.Lock()
	if w.running {
		w.mutex.Unlock()
		return fmt.Errorf("watcher already running")
	}
	if w.stopped {
		w.mutex.Unlock()
		return fmt.Errorf("watcher cannot be restarted")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	stop := w.stopChan
	w.mutex.Unlock()

	go w.loop(stop)

	log.Debugf("Watcher started.")
	return nil
}

// loop is the only sender on fileModChan and closes it on exit.
func (w *Watcher) loop(stop <-chan struct{}) {
	defer close(w.fileModChan)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event, stop)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithError(err).Error("fsnotify watcher error")

		case <-stop:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, stop <-chan struct{}) {
	if event.Op == fsnotify.Chmod || w.ignore(event.Name) {
		return
	}

	var info os.FileInfo
	if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
		var err error
		info, err = os.Stat(event.Name)
		if err != nil {
			// Removed again before we looked.
			if !os.IsNotExist(err) {
				log.LogWithFields(log.F("file", event.Name)).WithError(err).Warn("Error stating file")
			}
			return
		}
		if info.IsDir() {
			if event.Op.Has(fsnotify.Create) {
				if err := w.AddTree(event.Name); err != nil {
					log.LogWithFields(log.F("directory", event.Name)).WithError(err).Warn("Failed to watch new directory")
				}
			}
		}
	}

	mod := FileModification{
		Path:      event.Name,
		Info:      info,
		Timestamp: time.Now(),
		Op:        event.Op,
	}

	// A full channel already holds a pending change.
	select {
	case w.fileModChan <- mod:
	case <-stop:
	default:
		log.LogWithFields(log.F("file", event.Name)).Debug("Event channel is full, dropped event")
	}
}

// Stop halts the file watching process
func (w *Watcher) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.running {
		return
	}

	close(w.stopChan)
	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithError(err).Error("Error closing fsnotify watcher")
	}
	w.running = false
	w.stopped = true

	log.Debugf("Watcher stopped.")
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}

// GetDirectories returns the list of directories being watched
func (w *Watcher) GetDirectories() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	dirsCopy := make([]string, len(w.directories))
	copy(dirsCopy, w.directories)
	return dirsCopy
}
