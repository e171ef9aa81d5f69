package manifest

import (
	"context"
	"io/fs"
	"path/filepath"

	"mdpress/internal/errors"
	"mdpress/internal/traverse"
	"mdpress/pkg/types"
)

// Source produces a complete Manifest from one input gesture.
type Source interface {
	Collect(ctx context.Context) (types.Manifest, error)
}

// PickerSource mimics a directory picker: every regular file below Root is
// listed with a path prefixed by Root's own name.
type PickerSource struct {
	Root string
}

func (s PickerSource) Collect(ctx context.Context) (types.Manifest, error) {
	root := filepath.Clean(s.Root)
	base := filepath.Dir(root)

	var items []Selected
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		items = append(items, Selected{
			File:         &types.LocalFile{Path: p, Len: info.Size()},
			RelativePath: filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewTraversalError(s.Root, err)
	}
	return FromSelection(items), nil
}

// DropSource mimics a drag and drop: heterogeneous roots are walked, then
// every file is materialized.
type DropSource struct {
	Roots       []traverse.Entry
	Walker      *traverse.Walker
	Concurrency int
}

func (s DropSource) Collect(ctx context.Context) (types.Manifest, error) {
	w := s.Walker
	if w == nil {
		w = traverse.NewWalker()
	}
	res, err := w.Walk(ctx, s.Roots)
	if err != nil {
		return nil, err
	}
	return FromTraversal(ctx, res.Files, s.Concurrency)
}
