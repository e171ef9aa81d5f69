package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mdpress/internal/errors"
	"mdpress/internal/log"
	"mdpress/pkg/types"
)

// DefaultGrace is how long a staged artifact stays available.
const DefaultGrace = time.Minute

// Staged is an artifact written to a transient local file, waiting for a
// save. The file is removed once the grace period passes or Close is called,
// but never while a save is reading it.
type Staged struct {
	mu       sync.Mutex
	path     string
	name     string
	size     int64
	saving   int
	expired  bool
	released bool
	timer    *time.Timer
	done     chan struct{}
}

// Stage writes a to a temp file that is released after grace.
func Stage(a *types.Artifact, grace time.Duration) (*Staged, error) {
	if grace <= 0 {
		grace = DefaultGrace
	}
	f, err := os.CreateTemp("", "mdpress-*"+filepath.Ext(a.Filename))
	if err != nil {
		return nil, errors.NewFileError("cannot stage artifact", a.Filename, errors.FileAccessDenied, err)
	}
	if _, err := f.Write(a.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, errors.NewFileError("cannot stage artifact", f.Name(), errors.FileAccessDenied, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, errors.NewFileError("cannot stage artifact", f.Name(), errors.FileAccessDenied, err)
	}

	s := &Staged{
		path: f.Name(),
		name: a.Filename,
		size: int64(len(a.Data)),
		done: make(chan struct{}),
	}
	s.timer = time.AfterFunc(grace, s.expire)
	log.LogWithFields(log.F("path", s.path), log.F("grace", grace.String())).Debug("artifact staged")
	return s, nil
}

// Name returns the resolved artifact filename.
func (s *Staged) Name() string { return s.name }

// Path returns the transient file path.
func (s *Staged) Path() string { return s.path }

// Size returns the artifact size in bytes.
func (s *Staged) Size() int64 { return s.size }

// Released returns a channel closed once the transient file is gone.
func (s *Staged) Released() <-chan struct{} { return s.done }

// SaveTo copies the staged file into sink under the artifact name and returns
// where it was stored.
func (s *Staged) SaveTo(ctx context.Context, sink Sink) (string, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return "", errors.NewFileError("staged artifact already released", s.name, errors.FileNotFound, nil)
	}
	s.saving++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving--
		if s.expired && s.saving == 0 {
			s.releaseLocked()
		}
		s.mu.Unlock()
	}()

	f, err := os.Open(s.path)
	if err != nil {
		return "", errors.NewFileError("cannot open staged artifact", s.path, errors.FileNotFound, err)
	}
	defer f.Close()

	dest, err := sink.Save(ctx, s.name, f)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", s.name, err)
	}
	return dest, nil
}

// Close releases the transient file now, or as soon as a running save ends.
func (s *Staged) Close() error {
	s.timer.Stop()
	s.expire()
	return nil
}

func (s *Staged) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
	if s.saving == 0 {
		s.releaseLocked()
	}
}

func (s *Staged) releaseLocked() {
	if s.released {
		return
	}
	s.released = true
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.LogWithError(err).Warn("failed to remove staged artifact")
	}
	close(s.done)
	log.LogWithFields(log.F("path", s.path)).Debug("staged artifact released")
}
