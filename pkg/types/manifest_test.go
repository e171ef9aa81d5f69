package types

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"mdpress/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mem(name, data string) *MemoryFile {
	return &MemoryFile{FileName: name, Data: []byte(data)}
}

func TestManifestHasMarkdown(t *testing.T) {
	assert.False(t, Manifest{}.HasMarkdown())
	assert.False(t, Manifest{{File: mem("a.png", ""), RelativePath: "doc/a.png"}}.HasMarkdown())
	assert.True(t, Manifest{{File: mem("A.MD", ""), RelativePath: "doc/A.MD"}}.HasMarkdown())
	assert.False(t, Manifest{{File: mem("a.markdown", ""), RelativePath: "doc/a.markdown"}}.HasMarkdown())
}

func TestManifestStats(t *testing.T) {
	m := Manifest{
		{File: mem("a.md", "# a"), RelativePath: "doc/a.md"},
		{File: mem("logo.PNG", "xx"), RelativePath: "doc/img/logo.PNG"},
		{File: mem("photo.jpeg", "x"), RelativePath: "doc/img/photo.jpeg"},
		{File: mem("notes.txt", "hello"), RelativePath: "doc/notes.txt"},
	}
	s := m.Stats()
	assert.Equal(t, 4, s.Files)
	assert.Equal(t, 1, s.Markdown)
	assert.Equal(t, 2, s.Images)
	assert.Equal(t, int64(11), s.Bytes)
	assert.Equal(t, []string{"doc/a.md", "doc/img/logo.PNG", "doc/img/photo.jpeg", "doc/notes.txt"}, m.Paths())
}

func TestManifestLookup(t *testing.T) {
	m := Manifest{
		{File: mem("a.md", "1"), RelativePath: "dir1/a.md"},
		{File: mem("a.md", "2"), RelativePath: "dir2/a.md"},
	}
	e, ok := m.Lookup("dir2/./a.md")
	require.True(t, ok)
	assert.Equal(t, "dir2/a.md", e.RelativePath)
	_, ok = m.Lookup("dir3/a.md")
	assert.False(t, ok)
}

func TestLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intro.md")
	require.NoError(t, os.WriteFile(path, []byte("# Intro"), 0644))

	f, err := NewLocalFile(path)
	require.NoError(t, err)
	assert.Equal(t, "intro.md", f.Name())
	assert.Equal(t, int64(7), f.Size())
	assert.Contains(t, f.ToJSON(), `"size":7`)

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "# Intro", string(data))

	_, err = NewLocalFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestResultOf(t *testing.T) {
	ok := ResultOf(&Artifact{Filename: "report.pdf"}, nil)
	assert.True(t, ok.OK())
	assert.Nil(t, ok.Failure)

	failed := ResultOf(nil, errors.NewTransferError(errors.RemoteError, "bad input", 400, nil))
	assert.False(t, failed.OK())
	require.NotNil(t, failed.Failure)
	assert.Equal(t, errors.RemoteError, failed.Failure.Kind)
	assert.Equal(t, "bad input", failed.Failure.Detail)

	plain := ResultOf(nil, errors.NewTraversalError("a", io.ErrUnexpectedEOF))
	assert.Equal(t, errors.TraversalError, plain.Failure.Kind)
	assert.Equal(t, "traversal failed: a: unexpected EOF", plain.Failure.Detail)
}
