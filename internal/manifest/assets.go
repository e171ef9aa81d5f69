package manifest

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"mdpress/internal/errors"
	"mdpress/pkg/types"
)

// MissingAsset is an image referenced by a document but absent from the
// manifest.
type MissingAsset struct {
	Document  string
	Reference string
}

// CheckAssets parses every Markdown entry and reports local image references
// that do not resolve to another entry. Remote and absolute references are
// ignored.
func CheckAssets(ctx context.Context, m types.Manifest) ([]MissingAsset, error) {
	md := goldmark.New()
	var missing []MissingAsset

	for _, e := range m {
		if !types.IsMarkdown(e.RelativePath) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := readAll(e.File)
		if err != nil {
			return nil, errors.NewFileError("cannot read document", e.RelativePath, errors.FileAccessDenied, err)
		}

		doc := md.Parser().Parse(text.NewReader(src))
		dir := path.Dir(e.RelativePath)
		err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			img, ok := n.(*ast.Image)
			if !ok || !entering {
				return ast.WalkContinue, nil
			}
			dest := string(img.Destination)
			target, ok := localTarget(dir, dest)
			if !ok {
				return ast.WalkContinue, nil
			}
			if _, found := m.Lookup(target); !found {
				missing = append(missing, MissingAsset{Document: e.RelativePath, Reference: dest})
			}
			return ast.WalkContinue, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

// localTarget resolves dest against dir. It reports false for URLs with a
// scheme, absolute paths and references escaping the tree.
func localTarget(dir, dest string) (string, bool) {
	if dest == "" || strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "#") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	target := path.Join(dir, u.Path)
	if target == ".." || strings.HasPrefix(target, "../") {
		return "", false
	}
	return target, true
}

func readAll(f types.FileRef) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
