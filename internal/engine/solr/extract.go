package solr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/url"

	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/errors"
)

// AddFile posts the file body to the extract handler. The exported
// record fields ride as literal.* parameters so Tika's extracted text
// lands in the content field of a record carrying our metadata.
func (c *Client) AddFile(ctx context.Context, fields map[string]any, f document.File) error {
	params := url.Values{}
	for key, value := range fields {
		params.Set("literal."+key, fmt.Sprint(value))
	}
	// The true filename and mime type steer the server-side extractor.
	params.Set("resource.name", f.Filename)
	if f.MimeType != "" {
		params.Set("stream.type", f.MimeType)
	}
	params.Set("commitWithin", fmt.Sprint(c.cfg.AutoCommitMS))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", f.Filename)
	if err != nil {
		return errors.New(errors.ErrCodeInternal, "build multipart body", err)
	}
	if f.Content != nil {
		if _, err := io.Copy(part, f.Content); err != nil {
			return errors.New(errors.ErrCodeInternal,
				fmt.Sprintf("read file %d", f.ID), err)
		}
	}
	if err := mw.Close(); err != nil {
		return errors.New(errors.ErrCodeInternal, "finalize multipart body", err)
	}

	if err := c.post(ctx, "/update/extract", params, mw.FormDataContentType(), &body, nil); err != nil {
		return err
	}
	c.log.Debug("solr_file_added",
		slog.Any("id", fields[document.FieldID]),
		slog.String("filename", f.Filename))
	return nil
}
