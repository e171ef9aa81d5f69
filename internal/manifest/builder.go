// Package manifest turns the output of either input source into the ordered
// Manifest consumed by the converter, and owns the current manifest of a
// session.
package manifest

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"mdpress/internal/errors"
	"mdpress/internal/traverse"
	"mdpress/pkg/types"
)

// DefaultConcurrency bounds concurrent materializations in FromTraversal.
const DefaultConcurrency = 8

// Selected is one item of a flat selection. RelativePath is rooted at the
// selected directory's name and may be empty for a loose file.
type Selected struct {
	File         types.FileRef
	RelativePath string
}

// FromSelection builds a Manifest from a flat selection, keeping its order.
// Relative paths pass through with separators normalized; an empty path falls
// back to the file's own name.
func FromSelection(items []Selected) types.Manifest {
	m := make(types.Manifest, 0, len(items))
	for _, it := range items {
		rel := strings.TrimLeft(strings.ReplaceAll(it.RelativePath, "\\", "/"), "/")
		if rel == "" {
			rel = it.File.Name()
		}
		m = append(m, types.ManifestEntry{File: it.File, RelativePath: rel})
	}
	return m
}

// FromTraversal materializes every located entry into a FileRef. Entries are
// resolved concurrently but the Manifest keeps the walk order. A single
// failure fails the whole build.
func FromTraversal(ctx context.Context, located []traverse.Located, concurrency int) (types.Manifest, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	m := make(types.Manifest, len(located))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, loc := range located {
		g.Go(func() error {
			ref, err := loc.Entry.File(gctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.NewTraversalError(loc.RelativePath, err)
			}
			m[i] = types.ManifestEntry{File: ref, RelativePath: loc.RelativePath}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}
