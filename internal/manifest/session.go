package manifest

import (
	"context"
	"sync"

	"mdpress/internal/errors"
	"mdpress/internal/log"
	"mdpress/pkg/types"
)

// Session owns the current Manifest. Every collection takes a new generation
// and only the newest generation may install its result, so a slow collection
// that finishes after a newer one started never replaces the newer manifest.
type Session struct {
	mu         sync.Mutex
	current    types.Manifest
	generation uint64
	installed  uint64
	filter     *Filter
	logger     *log.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithFilter applies f to every collected manifest before it is installed.
func WithFilter(f *Filter) SessionOption {
	return func(s *Session) { s.filter = f }
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *log.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession creates an empty session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// Collect runs src and installs its manifest if no newer collection or Clear
// has started meanwhile. A superseded collection returns ErrSuperseded. A
// failed collection leaves the current manifest untouched.
func (s *Session) Collect(ctx context.Context, src Source) (types.Manifest, error) {
	gen := s.begin()
	logger := s.logger.WithContext(ctx).With(log.F("generation", gen))

	m, err := src.Collect(ctx)
	if err != nil {
		logger.WithError(err).Warn("collection failed")
		return nil, err
	}
	m = s.filter.Apply(m)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		logger.With(log.F("current", s.generation)).Debug("discarding superseded collection")
		return nil, errors.ErrSuperseded
	}
	s.current = m
	s.installed = gen
	logger.With(log.F("entries", len(m))).Debug("manifest installed")
	return m, nil
}

// Current returns the installed manifest and the generation that produced it.
func (s *Session) Current() (types.Manifest, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.installed
}

// Clear drops the current manifest and supersedes any collection in flight.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.current = nil
	s.installed = s.generation
}
