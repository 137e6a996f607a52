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

package core

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// ValidateFingerprint checks that a fingerprint can act as a deduplication key.
func ValidateFingerprint(fp *Fingerprint) error {
	if fp == nil {
		return fmt.Errorf("%w: fingerprint is nil", ErrInvalidFingerprint)
	}

	if !IsValidHash(fp.ContentHash) {
		return fmt.Errorf("%w: %w", ErrInvalidFingerprint, ErrEmptyHash)
	}

	if err := ValidateURL(fp.SourceURL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFingerprint, err)
	}

	if fp.ByteSize < 0 || fp.PageCount < 0 {
		return fmt.Errorf("%w: negative size or page count", ErrInvalidFingerprint)
	}

	return nil
}

// ValidateChunk checks a chunk before it is stored.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.PageNumber < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidPageNumber)
	}

	if chunk.DocumentId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrMissingDocument)
	}

	return nil
}

// ValidateCall checks a call before it is stored.
func ValidateCall(call *Call) error {
	if call == nil {
		return fmt.Errorf("%w: call is nil", ErrInvalidCall)
	}

	if err := ValidateURL(call.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCall, err)
	}

	return nil
}

// ValidateURL accepts only absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// IsValidHash reports whether s is a hex encoded SHA-256 digest.
func IsValidHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
