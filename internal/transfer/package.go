package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"mdpress/internal/errors"
	"mdpress/pkg/types"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// pack writes one part per entry, in manifest order. Each part is named
// FieldName and carries the relative path as its filename so the converter
// can rebuild the tree.
func (c *Client) pack(ctx context.Context, m types.Manifest) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for _, e := range m {
		if err := ctx.Err(); err != nil {
			return nil, "", errors.NewTransferError(errors.PackagingError, err.Error(), 0, err)
		}
		if err := writePart(w, c.opts.FieldName, e); err != nil {
			return nil, "", errors.NewTransferError(errors.PackagingError,
				fmt.Sprintf("cannot read %s: %v", e.RelativePath, err), 0, err)
		}
	}
	if c.opts.EntryDocument != "" {
		if err := w.WriteField(EntryField, c.opts.EntryDocument); err != nil {
			return nil, "", errors.NewTransferError(errors.PackagingError, err.Error(), 0, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.NewTransferError(errors.PackagingError, err.Error(), 0, err)
	}
	return &body, w.FormDataContentType(), nil
}

func writePart(w *multipart.Writer, field string, e types.ManifestEntry) error {
	rc, err := e.File.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(e.RelativePath)))
	h.Set("Content-Type", mimetype.Detect(data).String())

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}
