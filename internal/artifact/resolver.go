// Package artifact names converter output and hands it off to a destination.
package artifact

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"mdpress/pkg/types"
)

// FilenameFromHeader extracts the suggested filename from a
// Content-Disposition value. The RFC 5987 filename* form wins over a plain
// filename. A header that does not parse as a whole is scanned for the
// filename parameters alone, so one bad parameter does not hide a good name.
// Missing or unusable values yield fallback, or types.DefaultArtifactName
// when fallback is empty. Directory components are dropped.
func FilenameFromHeader(h, fallback string) string {
	if fallback == "" {
		fallback = types.DefaultArtifactName
	}
	if strings.TrimSpace(h) == "" {
		return fallback
	}
	// ParseMediaType folds a decodable filename* into "filename".
	var name string
	if _, params, err := mime.ParseMediaType(h); err == nil {
		name = params["filename"]
	} else {
		name = scanFilename(h)
	}
	name = sanitize(name)
	if name == "" {
		return fallback
	}
	return name
}

var (
	extendedParam = regexp.MustCompile(`(?i)(?:^|;)\s*filename\*\s*=\s*([^';]*)'[^']*'([^;\s]+)`)
	quotedParam   = regexp.MustCompile(`(?i)(?:^|;)\s*filename\s*=\s*"((?:[^"\\]|\\.)*)"`)
	tokenParam    = regexp.MustCompile(`(?i)(?:^|;)\s*filename\s*=\s*([^";\s][^;]*)`)
	quotedPair    = regexp.MustCompile(`\\(.)`)
)

// scanFilename picks the filename parameters out of a header that
// mime.ParseMediaType rejected.
func scanFilename(h string) string {
	if m := extendedParam.FindStringSubmatch(h); m != nil && strings.EqualFold(m[1], "utf-8") {
		if name, err := url.PathUnescape(m[2]); err == nil && utf8.ValidString(name) {
			return name
		}
	}
	if m := quotedParam.FindStringSubmatch(h); m != nil {
		return quotedPair.ReplaceAllString(m[1], "$1")
	}
	if m := tokenParam.FindStringSubmatch(h); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func sanitize(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}

// Resolve builds the Artifact for a successful response whose body has been
// read.
func Resolve(resp *http.Response, body []byte, fallback string) *types.Artifact {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = mimetype.Detect(body).String()
	}
	return &types.Artifact{
		Data:        body,
		Filename:    FilenameFromHeader(resp.Header.Get("Content-Disposition"), fallback),
		ContentType: ct,
	}
}
