// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/mirarav/convocatorias/core"
)

// US Letter, used when no MediaBox is found in the page tree.
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
)

const (
	defaultSnapTolerance         = 3.0
	defaultIntersectionTolerance = 10.0
	defaultTextTolerance         = 3.0
	defaultRuleThickness         = 2.0
)

// Extractor turns PDF bytes into extracted pages.
// It holds no per-document state and is safe for concurrent use.
type Extractor struct {
	snapTolerance         float64
	intersectionTolerance float64
	textTolerance         float64
	ruleThickness         float64
	logger                *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithSnapTolerance sets how far apart (in points) two rules may be and
// still be treated as the same grid line. Default is 3.
func WithSnapTolerance(tolerance float64) Option {
	return func(e *Extractor) error {
		if tolerance < 0 {
			return fmt.Errorf("snap tolerance must be >= 0, got %v", tolerance)
		}
		e.snapTolerance = tolerance
		return nil
	}
}

// WithIntersectionTolerance sets how far a rule may stop short of another
// and still count as crossing it. Default is 10.
func WithIntersectionTolerance(tolerance float64) Option {
	return func(e *Extractor) error {
		if tolerance < 0 {
			return fmt.Errorf("intersection tolerance must be >= 0, got %v", tolerance)
		}
		e.intersectionTolerance = tolerance
		return nil
	}
}

// WithTextTolerance sets how far a glyph may sit outside a cell edge and
// still be assigned to that cell. Default is 3.
func WithTextTolerance(tolerance float64) Option {
	return func(e *Extractor) error {
		if tolerance < 0 {
			return fmt.Errorf("text tolerance must be >= 0, got %v", tolerance)
		}
		e.textTolerance = tolerance
		return nil
	}
}

// New creates an Extractor.
func New(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		snapTolerance:         defaultSnapTolerance,
		intersectionTolerance: defaultIntersectionTolerance,
		textTolerance:         defaultTextTolerance,
		ruleThickness:         defaultRuleThickness,
		logger:                slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "extractor")
	return e, nil
}

// Extract returns every page with non-blank combined text, in page order.
// A page that fails to parse is logged and skipped. A document that cannot
// be opened yields nil.
func (e *Extractor) Extract(data []byte) []core.ExtractedPage {
	reader, err := openReader(data)
	if err != nil {
		e.logger.Warn("cannot open pdf", "err", err, "bytes", len(data))
		return nil
	}

	numPages, err := pageCount(reader)
	if err != nil {
		e.logger.Warn("cannot read page tree", "err", err)
		return nil
	}

	var pages []core.ExtractedPage
	for n := 1; n <= numPages; n++ {
		page, err := e.extractPage(reader, n)
		if err != nil {
			e.logger.Warn("skipping page", "page", n, "err", err)
			continue
		}
		if strings.TrimSpace(page.Combined()) == "" {
			e.logger.Debug("dropping blank page", "page", n)
			continue
		}
		pages = append(pages, *page)
	}

	if len(pages) == 0 {
		e.logger.Warn("no extractable text in document", "pages", numPages)
		return nil
	}
	e.logger.Debug("extracted document", "pages", numPages, "kept", len(pages))
	return pages
}

func (e *Extractor) extractPage(reader *pdf.Reader, n int) (page *core.ExtractedPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			page = nil
			err = fmt.Errorf("%w: page %d: %v", ErrPageParse, n, r)
		}
	}()

	p := reader.Page(n)
	if p.V.IsNull() {
		return nil, fmt.Errorf("%w: page %d not found", ErrPageParse, n)
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrPageParse, n, err)
	}

	width, height := mediaBox(p)
	content := p.Content()
	tables := e.findTables(content)

	serialized := make([]string, 0, len(tables))
	for i, t := range tables {
		serialized = append(serialized, t.serialize(i+1, n))
	}

	return &core.ExtractedPage{
		PageNumber: n,
		PlainText:  text,
		Tables:     serialized,
		Width:      width,
		Height:     height,
	}, nil
}

// PageCount reports how many pages the document declares.
func PageCount(data []byte) (int, error) {
	reader, err := openReader(data)
	if err != nil {
		return 0, err
	}
	return pageCount(reader)
}

func openReader(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader = nil
			err = fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return reader, nil
}

func pageCount(reader *pdf.Reader) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
			err = fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	n = reader.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("%w: no pages", ErrMalformedDocument)
	}
	return n, nil
}

// mediaBox walks up the page tree since MediaBox is inheritable.
func mediaBox(p pdf.Page) (width, height float64) {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() != pdf.Array || box.Len() != 4 {
			continue
		}
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return DefaultPageWidth, DefaultPageHeight
}
