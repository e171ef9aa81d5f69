package types

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

// FileRef is a handle to a byte-bearing resource. Implementations are never
// mutated after creation; Open may be called any number of times.
type FileRef interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// LocalFile is a FileRef backed by a path on the local filesystem.
type LocalFile struct {
	Path string `json:"path"`
	Len  int64  `json:"size"`
}

// NewLocalFile stats path and returns a FileRef for it.
func NewLocalFile(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &LocalFile{Path: path, Len: info.Size()}, nil
}

// Name returns the base name of the file
func (f *LocalFile) Name() string {
	return filepath.Base(f.Path)
}

func (f *LocalFile) Size() int64 {
	return f.Len
}

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// ToJSON converts LocalFile to JSON string
func (f *LocalFile) ToJSON() string {
	jsonBytes, _ := json.Marshal(f)
	return string(jsonBytes)
}

// MemoryFile is a FileRef holding its bytes in memory.
type MemoryFile struct {
	FileName string
	Data     []byte
}

func (f *MemoryFile) Name() string {
	return f.FileName
}

func (f *MemoryFile) Size() int64 {
	return int64(len(f.Data))
}

func (f *MemoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}
