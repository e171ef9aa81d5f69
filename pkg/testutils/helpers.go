package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTestFilesWithContent creates test files with specific content.
// Names may contain '/' and missing directories are created.
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		err := os.WriteFile(path, []byte(content), 0644)
		require.NoError(t, err)
	}
}

// CreateMarkdownTree creates a small book below dir/book and returns its
// path. It has an index, two chapters sharing a basename, an image, and one
// reference to an image that does not exist.
func CreateMarkdownTree(t *testing.T, dir string) string {
	t.Helper()
	CreateTestFilesWithContent(t, dir, map[string]string{
		"book/index.md":       "# Book\n\n![logo](img/logo.png)\n",
		"book/part1/intro.md": "# Part one\n",
		"book/part2/intro.md": "# Part two\n\n![chart](../img/chart.png)\n",
		"book/img/logo.png":   "\x89PNG\r\n\x1a\nlogo",
	})
	return filepath.Join(dir, "book")
}

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	var result []rune
	inEscape := false
	for _, r := range str {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
			}
			continue
		}
		result = append(result, r)
	}
	return string(result)
}
