package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"

	"mdpress/internal/errors"
)

// maxRawDetail caps how much of a non-JSON error body is echoed.
const maxRawDetail = 500

// DefaultMaxArtifactBytes caps the size of a converted document.
const DefaultMaxArtifactBytes = 512 << 20

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 1 << 20

// readBody reads at most limit bytes and reports whether the body had more.
func readBody(resp *http.Response, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

func tooLarge(resp *http.Response, limit int64) error {
	detail := fmt.Sprintf("artifact exceeds %s (%d bytes)", humanize.IBytes(uint64(limit)), limit)
	return errors.NewTransferError(errors.RemoteError, detail, resp.StatusCode, nil)
}

// remoteDetail derives the message of a failed response. A JSON body yields
// its "detail" field, or the status text when that is missing or empty. Any
// other body yields "HTTP <code>: " and its first 500 characters.
func remoteDetail(resp *http.Response, body []byte) string {
	if gjson.ValidBytes(body) {
		d := gjson.GetBytes(body, "detail")
		if present(d) {
			if d.Type == gjson.String {
				return d.Str
			}
			return d.Raw
		}
		return statusText(resp)
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), maxRawDetail))
}

func present(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	default:
		return r.Exists()
	}
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// networkError classifies a failure that happened before a usable response.
func networkError(err error) error {
	detail := err.Error()
	var ue *url.Error
	if errors.As(err, &ue) {
		detail = ue.Err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		detail = "timed out waiting for the converter: " + detail
	}
	return errors.NewTransferError(errors.NetworkError, detail, 0, err)
}
