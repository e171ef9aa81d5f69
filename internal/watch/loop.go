package watch

import (
	"context"
	"time"

	"mdpress/internal/errors"
	"mdpress/internal/log"
)

// RebuildFunc re-collects and re-converts the watched tree. Its context is
// cancelled when newer changes make the run stale.
type RebuildFunc func(ctx context.Context) error

// Loop turns bursts of file changes into rebuilds. Changes are debounced; at
// most one rebuild runs at a time, and a change arriving while one runs
// abandons it and schedules a fresh one.
type Loop struct {
	watcher  *Watcher
	debounce time.Duration
	rebuild  RebuildFunc
	logger   *log.Logger
}

// NewLoop creates a Loop over a started watcher.
func NewLoop(w *Watcher, debounce time.Duration, rebuild RebuildFunc) *Loop {
	return &Loop{watcher: w, debounce: debounce, rebuild: rebuild, logger: log.Default()}
}

// Run performs an initial rebuild and then one per quiet period after
// changes, until ctx is done or the watcher stops.
func (l *Loop) Run(ctx context.Context) error {
	events := l.watcher.FileChannel()
	done := make(chan error, 1)

	var (
		cancelRun context.CancelFunc
		running   bool
		pending   bool
		timer     *time.Timer
		fire      <-chan time.Time
		runs      int
	)
	start := func() {
		runs++
		rctx, cancel := context.WithCancel(ctx)
		cancelRun = cancel
		running = true
		logger := l.logger.With(log.F("run", runs))
		go func() {
			logger.Debug("rebuild started")
			done <- l.rebuild(rctx)
		}()
	}
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
		if running {
			cancelRun()
			<-done
		}
	}

	start()
	for {
		select {
		case <-ctx.Done():
			stop()
			return nil

		case mod, ok := <-events:
			if !ok {
				stop()
				return nil
			}
			l.logger.With(log.F("path", mod.Path), log.F("op", mod.Op.String())).Debug("change detected")
			if timer == nil {
				timer = time.NewTimer(l.debounce)
			} else {
				timer.Reset(l.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if running {
				pending = true
				cancelRun()
				continue
			}
			start()

		case err := <-done:
			running = false
			cancelRun()
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled), errors.Is(err, errors.ErrSuperseded):
				l.logger.Debug("rebuild abandoned for newer changes")
			default:
				l.logger.WithError(err).Error("rebuild failed")
			}
			if pending {
				pending = false
				start()
			}
		}
	}
}
