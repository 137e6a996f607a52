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

// Package chunking splits page text into retrieval-sized chunks.
// Serialized table blocks are never subdivided.
package chunking

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Separators are tried in order: paragraphs, lines, double spaces, words, runes.
var Separators = []string{"\n\n", "\n", "  ", " ", ""}

var (
	// ErrInvalidChunkSize is returned for a chunk size below 1.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrInvalidChunkOverlap is returned for a negative overlap or one not smaller than the chunk size.
	ErrInvalidChunkOverlap = errors.New("chunk overlap must be >= 0 and smaller than chunk size")
)

var tableTag = regexp.MustCompile(`--- TABLE (\d+) PAGE (\d+) ---`)

// Segment is one chunk of page text.
type Segment struct {
	Text    string
	IsTable bool
	// TableNumber is the page-scoped number from the table tag, 0 for prose.
	TableNumber int
}

// Splitter partitions text on table tags and splits the prose in between.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	prose        textsplitter.RecursiveCharacter
	logger       *slog.Logger
}

// Option configures a Splitter.
type Option func(*Splitter) error

// WithChunkSize sets the maximum prose chunk length in runes.
// Default is 1000.
func WithChunkSize(size int) Option {
	return func(s *Splitter) error {
		if size < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
		}
		s.chunkSize = size
		return nil
	}
}

// WithChunkOverlap sets how many runes consecutive prose chunks may share.
// Default is 200.
func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) error {
		if overlap < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidChunkOverlap, overlap)
		}
		s.chunkOverlap = overlap
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Splitter) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a Splitter.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.chunkOverlap >= s.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d, size %d", ErrInvalidChunkOverlap, s.chunkOverlap, s.chunkSize)
	}

	s.prose = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.chunkOverlap),
		textsplitter.WithSeparators(Separators),
	)
	s.logger = s.logger.With("component", "splitter")
	return s, nil
}

// ChunkSize returns the configured maximum prose chunk length.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Split returns the chunk texts of page text in order.
func (s *Splitter) Split(text string) []string {
	segments := s.Segments(text)
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = seg.Text
	}
	return out
}

// Segments returns the chunks of page text in order. Each table tag and the
// text up to the next tag form one table segment, kept verbatim. Everything
// else goes through the recursive splitter. Blank pieces are dropped.
func (s *Splitter) Segments(text string) []Segment {
	var out []Segment
	matches := tableTag.FindAllStringSubmatchIndex(text, -1)

	prose := text
	if len(matches) > 0 {
		prose = text[:matches[0][0]]
	}
	out = append(out, s.splitProse(prose)...)

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		tag := text[m[0]:m[1]]
		number, _ := strconv.Atoi(text[m[2]:m[3]])

		block := tag
		if body := strings.TrimSpace(text[m[1]:end]); body != "" {
			block = tag + "\n" + body
		}
		out = append(out, Segment{Text: block, IsTable: true, TableNumber: number})
	}
	return out
}

func (s *Splitter) splitProse(text string) []Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	pieces, err := s.prose.SplitText(text)
	if err != nil {
		s.logger.Warn("prose split failed", "err", err, "chars", len(text))
		return nil
	}

	out := make([]Segment, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, Segment{Text: p})
	}
	return out
}
