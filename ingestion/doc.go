// Package ingestion turns call pages and PDF URLs into stored, embedded chunks.
//
// A Pipeline runs one document at a time through download, extraction,
// splitting, embedding and storage. IngestPage adds link discovery and
// fingerprint deduplication in front of that, and associates every document
// with the call page it was found on.
//
// Documents that already have chunks are skipped before any network work, so
// re-running a crawl is cheap and stores nothing twice. Failures of a single
// page or candidate are logged and isolated; only cancellation and storage
// errors are returned to the caller.
//
// Queue drains page URLs through a single-worker pool so at most one browser
// session and one writer are active at a time.
package ingestion
