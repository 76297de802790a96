package edgar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// maxIndexPages bounds how many registration filings are searched for
// an exhibit.
const maxIndexPages = 5

// Fetch locates the most recent filing for ref and downloads it.
func (c *Client) Fetch(ctx context.Context, ref domain.DocumentRef) (*domain.RawDocument, error) {
	cik, err := c.ResolveCIK(ctx, ref.Ticker)
	if err != nil {
		return nil, err
	}

	subs, err := c.submissions(ctx, cik)
	if err != nil {
		return nil, err
	}

	candidates := subs.filingsOf(cik, ref.Type.Forms())
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no %s filing for %s", domain.ErrNotFound, ref.Type.Code(), ref.Ticker)
	}

	if ref.Type.IsExhibit() {
		return c.fetchExhibit(ctx, ref, candidates)
	}

	f := candidates[0]
	return c.download(ctx, ref, f, f.documentURL(c.baseURL))
}

// fetchExhibit searches recent registration filings for the exhibit.
func (c *Client) fetchExhibit(ctx context.Context, ref domain.DocumentRef, candidates []filing) (*domain.RawDocument, error) {
	for _, f := range candidates[:min(len(candidates), maxIndexPages)] {
		body, _, err := c.get(ctx, f.indexURL(c.baseURL))
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("edgar: no index page for %s", f.AccessionNumber)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch filing index %s: %w", f.AccessionNumber, err)
		}

		entries, err := parseFilingIndex(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: parse filing index %s: %v", domain.ErrUnavailable, f.AccessionNumber, err)
		}

		if entry, ok := matchExhibit(entries, ref.Type); ok {
			return c.download(ctx, ref, f, entry.url(c.baseURL, f.folder(c.baseURL)))
		}
	}
	return nil, fmt.Errorf("%w: no %s exhibit in recent registration filings for %s",
		domain.ErrNotFound, ref.Type.Code(), ref.Ticker)
}

func (c *Client) download(ctx context.Context, ref domain.DocumentRef, f filing, docURL string) (*domain.RawDocument, error) {
	body, mediaType, err := c.get(ctx, docURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", docURL, err)
	}

	return &domain.RawDocument{
		Document: domain.Document{
			Ref:             ref,
			CIK:             f.CIK,
			Form:            f.Form,
			AccessionNumber: f.AccessionNumber,
			FilingDate:      f.FilingDate,
			SourceURL:       docURL,
			MIMEType:        mimeType(docURL, mediaType),
			FetchedAt:       time.Now().UTC(),
		},
		Content: body,
	}, nil
}

// mimeType prefers the document extension; EDGAR serves most archive
// files as text/html or application/octet-stream regardless of content.
func mimeType(docURL, served string) string {
	switch strings.ToLower(path.Ext(docURL)) {
	case ".htm", ".html":
		return "text/html"
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	}
	if t := mime.TypeByExtension(path.Ext(docURL)); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	if served != "" && served != "application/octet-stream" {
		return served
	}
	return ""
}
