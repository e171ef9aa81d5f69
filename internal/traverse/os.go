package traverse

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"mdpress/pkg/types"
)

// DefaultBatchSize is the number of children requested per directory read.
const DefaultBatchSize = 100

// OSEntry is an Entry on the local filesystem. Symlinks, sockets and devices
// are KindOther.
type OSEntry struct {
	path      string
	mode      fs.FileMode
	batchSize int
}

// NewOSEntry stats path without following symlinks.
func NewOSEntry(path string, batchSize int) (*OSEntry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OSEntry{path: filepath.Clean(path), mode: info.Mode(), batchSize: batchSize}, nil
}

func (e *OSEntry) Name() string {
	return filepath.Base(e.path)
}

func (e *OSEntry) Kind() Kind {
	return kindOfMode(e.mode)
}

func (e *OSEntry) File(ctx context.Context) (types.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return types.NewLocalFile(e.path)
}

func (e *OSEntry) Reader() BatchReader {
	return &osReader{dir: e.path, batchSize: e.batchSize}
}

func kindOfMode(m fs.FileMode) Kind {
	switch {
	case m.IsRegular():
		return KindFile
	case m.IsDir():
		return KindDir
	default:
		return KindOther
	}
}

// osReader pages through a directory with (*os.File).ReadDir, which returns
// entries in on-disk order. The whole listing is drained and sorted by name
// on the first read, then handed out batchSize entries at a time, the same
// order os.ReadDir and billy listings use.
type osReader struct {
	dir       string
	batchSize int
	pending   []fs.DirEntry
	listed    bool
}

func (r *osReader) ReadBatch(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.listed {
		dirents, err := r.list(ctx)
		if err != nil {
			return nil, err
		}
		sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name() < dirents[j].Name() })
		r.pending = dirents
		r.listed = true
	}

	n := r.batchSize
	if n > len(r.pending) {
		n = len(r.pending)
	}
	batch := make([]Entry, 0, n)
	for _, d := range r.pending[:n] {
		batch = append(batch, &OSEntry{
			path:      filepath.Join(r.dir, d.Name()),
			mode:      d.Type(),
			batchSize: r.batchSize,
		})
	}
	r.pending = r.pending[n:]
	return batch, nil
}

// list reads every entry of dir in pages of batchSize.
func (r *osReader) list(ctx context.Context) ([]fs.DirEntry, error) {
	f, err := os.Open(r.dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []fs.DirEntry
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := f.ReadDir(r.batchSize)
		all = append(all, page...)
		if err == io.EOF || (err == nil && len(page) == 0) {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
