package traverse

import (
	"context"
	"io"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"

	"mdpress/pkg/types"
)

// BillyEntry is an Entry on a billy.Filesystem, so the same walk runs over
// osfs, memfs or any chroot of them.
type BillyEntry struct {
	fs        billy.Filesystem
	path      string
	info      os.FileInfo
	batchSize int
}

// NewBillyEntry stats p on fs without following symlinks.
func NewBillyEntry(fs billy.Filesystem, p string, batchSize int) (*BillyEntry, error) {
	info, err := fs.Lstat(p)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BillyEntry{fs: fs, path: path.Clean(p), info: info, batchSize: batchSize}, nil
}

func (e *BillyEntry) Name() string {
	return e.info.Name()
}

func (e *BillyEntry) Kind() Kind {
	return kindOfMode(e.info.Mode())
}

func (e *BillyEntry) File(ctx context.Context) (types.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &billyFile{fs: e.fs, path: e.path, size: e.info.Size()}, nil
}

// Reader lists the directory once, sorted by name, and hands it out in
// batchSize chunks.
func (e *BillyEntry) Reader() BatchReader {
	return &billyReader{entry: e}
}

type billyReader struct {
	entry   *BillyEntry
	pending []os.FileInfo
	listed  bool
}

func (r *billyReader) ReadBatch(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.listed {
		infos, err := r.entry.fs.ReadDir(r.entry.path)
		if err != nil {
			return nil, err
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
		r.pending = infos
		r.listed = true
	}

	n := r.entry.batchSize
	if n > len(r.pending) {
		n = len(r.pending)
	}
	batch := make([]Entry, 0, n)
	for _, info := range r.pending[:n] {
		batch = append(batch, &BillyEntry{
			fs:        r.entry.fs,
			path:      path.Join(r.entry.path, info.Name()),
			info:      info,
			batchSize: r.entry.batchSize,
		})
	}
	r.pending = r.pending[n:]
	return batch, nil
}

// billyFile is a FileRef for a file on a billy.Filesystem.
type billyFile struct {
	fs   billy.Filesystem
	path string
	size int64
}

func (f *billyFile) Name() string {
	return path.Base(f.path)
}

func (f *billyFile) Size() int64 {
	return f.size
}

func (f *billyFile) Open() (io.ReadCloser, error) {
	return f.fs.Open(f.path)
}
