package core

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateFingerprint(t *testing.T) {
	validHash := strings.Repeat("a1", 32)

	tests := []struct {
		name    string
		fp      *Fingerprint
		wantErr error
	}{
		{
			name:    "valid fingerprint",
			fp:      &Fingerprint{ContentHash: validHash, SourceURL: "https://www.cdti.es/bases.pdf", ByteSize: 100},
			wantErr: nil,
		},
		{
			name:    "nil fingerprint",
			fp:      nil,
			wantErr: ErrInvalidFingerprint,
		},
		{
			name:    "short hash",
			fp:      &Fingerprint{ContentHash: "abc", SourceURL: "https://www.cdti.es/bases.pdf"},
			wantErr: ErrEmptyHash,
		},
		{
			name:    "non hex hash",
			fp:      &Fingerprint{ContentHash: strings.Repeat("zz", 32), SourceURL: "https://www.cdti.es/bases.pdf"},
			wantErr: ErrEmptyHash,
		},
		{
			name:    "relative url",
			fp:      &Fingerprint{ContentHash: validHash, SourceURL: "/bases.pdf"},
			wantErr: ErrInvalidURL,
		},
		{
			name:    "negative size",
			fp:      &Fingerprint{ContentHash: validHash, SourceURL: "https://www.cdti.es/bases.pdf", ByteSize: -1},
			wantErr: ErrInvalidFingerprint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFingerprint(tt.fp)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFingerprint() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFingerprint() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:    "valid chunk",
			chunk:   &Chunk{DocumentId: 7, PageNumber: 1, Text: "Objeto de la convocatoria"},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "blank text",
			chunk:   &Chunk{DocumentId: 7, PageNumber: 1, Text: " \n "},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "page zero",
			chunk:   &Chunk{DocumentId: 7, PageNumber: 0, Text: "x"},
			wantErr: ErrInvalidPageNumber,
		},
		{
			name:    "missing document",
			chunk:   &Chunk{PageNumber: 1, Text: "x"},
			wantErr: ErrMissingDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidChunk) {
				t.Errorf("ValidateChunk() error = %v, want wrapped %v", err, ErrInvalidChunk)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://www.spri.eus/ayudas/", true},
		{"http://www.ader.es", true},
		{"ftp://example.com/file.pdf", false},
		{"www.ader.es", false},
		{"https://", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.valid && err != nil {
				t.Errorf("ValidateURL(%q) unexpected error = %v", tt.url, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidURL) {
				t.Errorf("ValidateURL(%q) error = %v, want %v", tt.url, err, ErrInvalidURL)
			}
		})
	}
}

func TestValidateCall(t *testing.T) {
	if err := ValidateCall(&Call{URL: "https://www.aei.gob.es/convocatorias"}); err != nil {
		t.Errorf("ValidateCall() unexpected error = %v", err)
	}
	if err := ValidateCall(&Call{URL: "not a url"}); !errors.Is(err, ErrInvalidCall) {
		t.Errorf("ValidateCall() error = %v, want %v", err, ErrInvalidCall)
	}
	if err := ValidateCall(nil); !errors.Is(err, ErrInvalidCall) {
		t.Errorf("ValidateCall(nil) error = %v, want %v", err, ErrInvalidCall)
	}
}
