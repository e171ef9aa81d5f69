package types

import (
	"path"
	"regexp"
	"strings"
)

var imageExt = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp|svg)$`)

// ManifestEntry is one file and its path within the selected tree.
type ManifestEntry struct {
	File         FileRef
	RelativePath string
}

// Manifest is the ordered list of entries of one selected directory tree.
// Order is discovery order.
type Manifest []ManifestEntry

// ManifestStats summarizes a manifest for display.
type ManifestStats struct {
	Files    int
	Markdown int
	Images   int
	Bytes    int64
}

// IsMarkdown reports whether rel names a Markdown document.
func IsMarkdown(rel string) bool {
	return strings.HasSuffix(strings.ToLower(rel), ".md")
}

// IsImage reports whether rel names a common image format.
func IsImage(rel string) bool {
	return imageExt.MatchString(rel)
}

// Len returns the number of entries.
func (m Manifest) Len() int {
	return len(m)
}

// Paths returns the relative paths in manifest order.
func (m Manifest) Paths() []string {
	paths := make([]string, len(m))
	for i, e := range m {
		paths[i] = e.RelativePath
	}
	return paths
}

// HasMarkdown reports whether at least one entry is a .md file.
func (m Manifest) HasMarkdown() bool {
	for _, e := range m {
		if IsMarkdown(e.RelativePath) {
			return true
		}
	}
	return false
}

// Lookup returns the entry with the given relative path.
func (m Manifest) Lookup(rel string) (ManifestEntry, bool) {
	rel = path.Clean(rel)
	for _, e := range m {
		if e.RelativePath == rel {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// Stats counts files, Markdown documents and images.
func (m Manifest) Stats() ManifestStats {
	var s ManifestStats
	for _, e := range m {
		s.Files++
		if IsMarkdown(e.RelativePath) {
			s.Markdown++
		}
		if IsImage(e.RelativePath) {
			s.Images++
		}
		if e.File != nil {
			s.Bytes += e.File.Size()
		}
	}
	return s
}
