package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdpress/internal/artifact"
	"mdpress/internal/config"
)

func TestNewSinkWritesToLocalDirectory(t *testing.T) {
	o := &rootOptions{cfg: config.New()}
	o.cfg.Output.Directory = filepath.Join(t.TempDir(), "out", "pdf")

	sink, err := newSink(context.Background(), o)
	require.NoError(t, err)
	require.IsType(t, &artifact.DirSink{}, sink)

	loc, err := sink.Save(context.Background(), "book.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(o.cfg.Output.Directory, "book.pdf"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}
