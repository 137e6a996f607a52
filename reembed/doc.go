// Package reembed rewrites the vectors of every stored chunk with a new or
// updated embedding model.
//
// Chunks are streamed from the repository in ID order and embedded in
// batches. Failed embedding calls are retried with exponential backoff,
// vectors are normalized to unit length for cosine similarity search, and
// a checkpoint lets an interrupted run resume after the last finished batch.
package reembed
