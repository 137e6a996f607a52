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

import "errors"

var (
	// ErrInvalidFingerprint indicates a Fingerprint failed validation.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidCall indicates a Call failed validation.
	ErrInvalidCall = errors.New("invalid call")

	// ErrEmptyHash indicates the content hash is missing or malformed.
	ErrEmptyHash = errors.New("content hash must be a 64 character hex digest")

	// ErrEmptyContent indicates the Text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidPageNumber indicates a page number below 1.
	ErrInvalidPageNumber = errors.New("page number must be at least 1")

	// ErrMissingDocument indicates a chunk without an owning document.
	ErrMissingDocument = errors.New("document id is required")

	// ErrInvalidURL indicates a URL without an http(s) scheme or host.
	ErrInvalidURL = errors.New("url must be absolute http or https")
)
