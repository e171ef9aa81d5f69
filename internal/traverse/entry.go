// Package traverse flattens trees of directory and file entries into an
// ordered list of path-tagged files. Directories are listed through paginated
// readers which are always drained; subtrees may be walked concurrently but
// results are returned depth-first in listing order.
package traverse

import (
	"context"

	"mdpress/pkg/types"
)

// Kind classifies an Entry.
type Kind int

const (
	KindOther Kind = iota
	KindFile
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "other"
	}
}

// Entry is a node of a tree being walked.
type Entry interface {
	Name() string
	Kind() Kind
}

// FileEntry is a leaf whose bytes are obtained on demand.
type FileEntry interface {
	Entry
	File(ctx context.Context) (types.FileRef, error)
}

// DirEntry is a node whose children are listed in batches.
type DirEntry interface {
	Entry
	Reader() BatchReader
}

// BatchReader returns successive batches of children. An empty batch means
// the listing is exhausted. A single call is not guaranteed to return every
// child.
type BatchReader interface {
	ReadBatch(ctx context.Context) ([]Entry, error)
}

// Located is a file entry and its slash separated path from the walk root.
type Located struct {
	Entry        FileEntry
	RelativePath string
}

// Result is the outcome of a successful walk.
type Result struct {
	Files   []Located
	Skipped int
}

// Paths returns the relative paths of r.Files in order.
func (r Result) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.RelativePath
	}
	return paths
}
