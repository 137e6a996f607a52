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

package ingestion

import (
	"context"

	"github.com/mirarav/convocatorias/chunking"
	"github.com/mirarav/convocatorias/core"
)

// The stages below are satisfied by crawl.Discoverer, fetch.Verifier,
// fetch.Downloader, extract.Extractor and chunking.Splitter.

// LinkDiscoverer finds candidate PDF URLs on a call page.
type LinkDiscoverer interface {
	Discover(ctx context.Context, pageURL string) ([]string, error)
}

// PDFVerifier probes and fingerprints remote PDFs.
type PDFVerifier interface {
	IsPDF(ctx context.Context, url string) bool
	Fingerprint(ctx context.Context, url string) (*core.Fingerprint, error)
}

// PDFDownloader fetches a whole PDF into memory.
type PDFDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// PageExtractor pulls per-page text and tables out of a PDF.
type PageExtractor interface {
	Extract(data []byte) []core.ExtractedPage
}

// SegmentSplitter cuts page text into chunk-sized segments.
type SegmentSplitter interface {
	Segments(text string) []chunking.Segment
}
