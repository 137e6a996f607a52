package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Documents use it over their content hash so identical PDFs share an identity.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Fingerprint describes a remote PDF without downloading all of it.
// ContentHash covers a bounded prefix of the file, so two large PDFs sharing
// that prefix are treated as the same document.
type Fingerprint struct {
	MimeType     string
	ByteSize     int64
	PageCount    int
	ContentHash  string // hex SHA-256 of at most the first 1,000,000 bytes
	SourceURL    string
	LastModified string
}

// Document is a stored, deduplicated PDF.
type Document struct {
	Id           ID
	MimeType     string
	ByteSize     int64
	PageCount    int
	ContentHash  string
	SourceURL    string
	LastModified string
	InsertedAt   time.Time
}

// NewDocument builds a Document from a fingerprint. The ID is derived from the content hash.
func NewDocument(fp *Fingerprint) *Document {
	return &Document{
		Id:           IDFromContent(fp.ContentHash),
		MimeType:     fp.MimeType,
		ByteSize:     fp.ByteSize,
		PageCount:    fp.PageCount,
		ContentHash:  fp.ContentHash,
		SourceURL:    fp.SourceURL,
		LastModified: fp.LastModified,
	}
}

// Call is a grant call (convocatoria) page that links to one or more documents.
type Call struct {
	Id         ID
	URL        string
	Organism   string
	InsertedAt time.Time
}

// ExtractedPage is the text pulled from one PDF page.
type ExtractedPage struct {
	PageNumber int // 1-based
	PlainText  string
	Tables     []string // serialized table blocks, in page order
	Width      float64
	Height     float64
}

// Combined returns the page prose followed by its serialized tables, blank-line separated.
func (p *ExtractedPage) Combined() string {
	parts := make([]string, 0, len(p.Tables)+1)
	if text := strings.TrimSpace(p.PlainText); text != "" {
		parts = append(parts, text)
	}
	for _, table := range p.Tables {
		if strings.TrimSpace(table) != "" {
			parts = append(parts, table)
		}
	}
	return strings.Join(parts, "\n\n")
}

// HasTables reports whether any table was detected on the page.
func (p *ExtractedPage) HasTables() bool {
	return len(p.Tables) > 0
}

// Chunk is an embedded piece of a document page.
type Chunk struct {
	Id           ID
	DocumentId   ID
	PageNumber   int
	Ordinal      int // position within the page
	Text         string
	IsTable      bool
	SectionTitle string
	Vector       []float32
	InsertedAt   time.Time
}

// DocumentOutcome summarises one document run for the metrics collaborator.
// It is never persisted.
type DocumentOutcome struct {
	HasText     bool
	HasTables   bool
	HasMetadata bool
	ChunkCount  int
	CharCount   int
	Elapsed     time.Duration
}

// Success reports whether the run stored at least one chunk.
func (o DocumentOutcome) Success() bool {
	return o.ChunkCount > 0
}

// CrawlOutcome summarises one crawled call page.
type CrawlOutcome struct {
	Success       bool
	DocumentCount int
	PageCount     int
}

// SearchResult pairs a chunk with its similarity score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}

// Checkpoint records how far a resumable job got.
type Checkpoint struct {
	Name      string
	LastID    ID
	UpdatedAt time.Time
}
