package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/extract"
)

const pdfMimeType = "application/pdf"

var pdfSignature = []byte("%PDF")

// Verifier probes remote URLs for PDFs and fingerprints them from a prefix.
type Verifier struct {
	client *http.Client
	logger *slog.Logger
}

// NewVerifier creates a Verifier that sends requests through client.
func NewVerifier(client *http.Client, opts ...Option) (*Verifier, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		client: client,
		logger: o.logger.With("component", "verifier"),
	}, nil
}

// IsPDF reports whether a HEAD probe of url advertises a PDF.
// Any request failure counts as false.
func (v *Verifier) IsPDF(ctx context.Context, url string) bool {
	resp, err := v.head(ctx, url)
	if err != nil {
		v.logger.Debug("head probe failed", "url", url, "err", err)
		return false
	}
	return isPDFContentType(resp.Header.Get("Content-Type"))
}

// Fingerprint hashes at most the first PrefixBytes of url and reads the
// page count from that prefix. A prefix the parser cannot read yields a
// page count of 0. A prefix without the %PDF signature yields ErrNotPDF.
func (v *Verifier) Fingerprint(ctx context.Context, url string) (*core.Fingerprint, error) {
	head, err := v.head(ctx, url)
	if err != nil {
		return nil, err
	}
	if head.StatusCode < 200 || head.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HEAD %s: %d", ErrBadStatus, url, head.StatusCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", PrefixBytes-1))

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prefix of %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: %d", ErrBadStatus, url, resp.StatusCode)
	}

	hasher := sha256.New()
	var prefix bytes.Buffer
	if _, err := copyChunked(io.MultiWriter(hasher, &prefix), resp.Body, PrefixBytes); err != nil && !errors.Is(err, ErrTooLarge) {
		return nil, fmt.Errorf("read prefix of %s: %w", url, err)
	}

	data := prefix.Bytes()
	if !bytes.HasPrefix(data, pdfSignature) {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, url)
	}

	pages, err := extract.PageCount(data)
	if err != nil {
		v.logger.Debug("page count unavailable from prefix", "url", url, "err", err)
		pages = 0
	}

	size := head.ContentLength
	if size <= 0 {
		size = int64(len(data))
	}

	return &core.Fingerprint{
		MimeType:     pdfMimeType,
		ByteSize:     size,
		PageCount:    pages,
		ContentHash:  hex.EncodeToString(hasher.Sum(nil)),
		SourceURL:    url,
		LastModified: head.Header.Get("Last-Modified"),
	}, nil
}

func (v *Verifier) head(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", url, err)
	}
	resp.Body.Close()
	return resp, nil
}

func isPDFContentType(value string) bool {
	ct := strings.ToLower(value)
	return strings.Contains(ct, pdfMimeType) && !strings.Contains(ct, "html")
}

// copyChunked copies src to dst in readChunkSize reads and stops once limit
// bytes were written, returning ErrTooLarge if more data remained.
func copyChunked(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	buf := make([]byte, readChunkSize)
	var written int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			overflow := written+int64(n) > limit
			if overflow {
				chunk = chunk[:limit-written]
			}
			w, werr := dst.Write(chunk)
			written += int64(w)
			if werr != nil {
				return written, werr
			}
			if overflow {
				return written, ErrTooLarge
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
