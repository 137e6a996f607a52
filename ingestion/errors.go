package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrCallRepositoryRequired is returned when a call repository is not provided.
	ErrCallRepositoryRequired = errors.New("call repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrPipelineRequired is returned when a Queue is built without a pipeline.
	ErrPipelineRequired = errors.New("pipeline required")

	// ErrNotPDF is returned by IngestPDF when the URL does not serve a PDF.
	ErrNotPDF = errors.New("url does not serve a pdf")

	// ErrFingerprint is returned by IngestPDF when the PDF prefix cannot be read.
	ErrFingerprint = errors.New("could not fingerprint pdf")
)
