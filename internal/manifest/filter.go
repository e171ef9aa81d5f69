package manifest

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"mdpress/pkg/types"
)

// Filter keeps manifest entries matching any include pattern (all entries when
// there are none) and drops those matching any exclude pattern. Patterns use
// '/' as separator and are tried against the full relative path and against
// the path below the root directory, so "drafts/**" works for any root name.
type Filter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewFilter compiles include and exclude patterns.
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.include, err = compile(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compile(exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Empty reports whether the filter keeps everything.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0)
}

// Match reports whether rel passes the filter.
func (f *Filter) Match(rel string) bool {
	if f.Empty() {
		return true
	}
	if len(f.include) > 0 && !anyMatch(f.include, rel) {
		return false
	}
	return !anyMatch(f.exclude, rel)
}

func anyMatch(globs []glob.Glob, rel string) bool {
	inner := rel
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		inner = rel[i+1:]
	}
	for _, g := range globs {
		if g.Match(rel) || g.Match(inner) {
			return true
		}
	}
	return false
}

// Apply returns the entries of m that pass the filter, in order.
func (f *Filter) Apply(m types.Manifest) types.Manifest {
	if f.Empty() {
		return m
	}
	out := make(types.Manifest, 0, len(m))
	for _, e := range m {
		if f.Match(e.RelativePath) {
			out = append(out, e)
		}
	}
	return out
}
