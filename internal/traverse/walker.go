package traverse

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"mdpress/internal/errors"
	"mdpress/internal/log"
)

// DefaultConcurrency bounds how many subtrees are walked in parallel.
const DefaultConcurrency = 8

// Walker flattens entry trees.
type Walker struct {
	concurrency int
	logger      *log.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithConcurrency sets how many subtrees may be walked at once. Values below
// one walk sequentially.
func WithConcurrency(n int) WalkerOption {
	return func(w *Walker) { w.concurrency = n }
}

// WithLogger sets the logger used for skip reports.
func WithLogger(l *log.Logger) WalkerOption {
	return func(w *Walker) { w.logger = l }
}

// NewWalker creates a Walker.
func NewWalker(opts ...WalkerOption) *Walker {
	w := &Walker{concurrency: DefaultConcurrency, logger: log.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type walk struct {
	w       *Walker
	sem     chan struct{}
	skipped atomic.Int64
}

// slot holds the output of one child so results can be joined in listing
// order whatever order subtrees finish in.
type slot struct {
	files []Located
}

// Walk flattens roots depth-first. A root file's path is its own name; files
// below a root directory are prefixed with the directory name. Entries that
// are neither files nor directories are skipped and counted. Any listing
// failure fails the whole walk and no partial result is returned.
func (w *Walker) Walk(ctx context.Context, roots []Entry) (Result, error) {
	wk := &walk{w: w}
	if w.concurrency > 1 {
		wk.sem = make(chan struct{}, w.concurrency-1)
	}

	files, err := wk.entries(ctx, roots, "")
	if err != nil {
		return Result{}, err
	}
	res := Result{Files: files, Skipped: int(wk.skipped.Load())}
	w.logger.With(log.F("files", len(res.Files)), log.F("skipped", res.Skipped)).Debug("walk complete")
	return res, nil
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// entries resolves a complete sibling list. Subdirectories run on spare
// workers when one is free and inline otherwise, so a parent never blocks
// waiting for a slot held by its own ancestors.
func (wk *walk) entries(ctx context.Context, list []Entry, prefix string) ([]Located, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	slots := make([]slot, len(list))

	for i, e := range list {
		rel := join(prefix, e.Name())
		switch e.Kind() {
		case KindFile:
			fe, ok := e.(FileEntry)
			if !ok {
				wk.skip(rel, e)
				continue
			}
			slots[i].files = []Located{{Entry: fe, RelativePath: rel}}
		case KindDir:
			de, ok := e.(DirEntry)
			if !ok {
				wk.skip(rel, e)
				continue
			}
			run := func() error {
				files, err := wk.dir(gctx, de, rel)
				if err != nil {
					return err
				}
				slots[i].files = files
				return nil
			}
			if wk.acquire() {
				g.Go(func() error {
					defer wk.release()
					return run()
				})
			} else if err := run(); err != nil {
				cancel()
				// A sibling's failure is what cancelled this subtree.
				if gerr := g.Wait(); gerr != nil && errors.Is(err, context.Canceled) {
					err = gerr
				}
				return nil, err
			}
		default:
			wk.skip(rel, e)
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Located
	for _, s := range slots {
		out = append(out, s.files...)
	}
	return out, nil
}

// dir drains the reader of d and then resolves its children.
func (wk *walk) dir(ctx context.Context, d DirEntry, rel string) ([]Located, error) {
	r := d.Reader()
	var children []Entry
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := r.ReadBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.NewTraversalError(rel, err)
		}
		if len(batch) == 0 {
			break
		}
		children = append(children, batch...)
	}
	return wk.entries(ctx, children, rel)
}

func (wk *walk) acquire() bool {
	if wk.sem == nil {
		return false
	}
	select {
	case wk.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (wk *walk) release() {
	<-wk.sem
}

func (wk *walk) skip(rel string, e Entry) {
	wk.skipped.Add(1)
	wk.w.logger.With(log.F("path", rel), log.F("kind", e.Kind().String())).Debug("skipping entry")
}
