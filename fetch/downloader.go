package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Downloader fetches whole PDFs into memory.
type Downloader struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewDownloader creates a Downloader that sends requests through client,
// normally one built by NewHTTPClient.
func NewDownloader(client *http.Client, opts ...Option) (*Downloader, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Downloader{
		client:   client,
		maxBytes: o.maxBytes,
		logger:   o.logger.With("component", "downloader"),
	}, nil
}

// Download returns the body of url once it passes every check: a 2xx status,
// an application/pdf content type, a non-empty body and the %PDF signature.
// Any failure is logged and returned with a nil buffer.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	data, err := d.download(ctx, url)
	if err != nil {
		d.logger.Warn("download rejected", "url", url, "err", err)
		return nil, err
	}
	d.logger.Debug("downloaded pdf", "url", url, "bytes", len(data))
	return data, nil
}

func (d *Downloader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(ct), pdfMimeType) {
		return nil, fmt.Errorf("%w: content type %q", ErrNotPDF, ct)
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 && resp.ContentLength <= d.maxBytes {
		buf.Grow(int(resp.ContentLength))
	}
	if _, err := copyChunked(&buf, resp.Body, d.maxBytes); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if buf.Len() == 0 {
		return nil, ErrEmptyBody
	}
	if !bytes.HasPrefix(buf.Bytes(), pdfSignature) {
		return nil, ErrBadSignature
	}
	return buf.Bytes(), nil
}
