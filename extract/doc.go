// Package extract pulls per-page prose and ruled tables out of PDF documents.
//
// Tables are found by intersecting the horizontal and vertical rules drawn on
// a page and are serialized as tagged blocks:
//
//	--- TABLE 1 PAGE 3 ---
//	Header A | Header B
//	cell | cell
//
// The chunking package relies on that tag to keep each table in one chunk.
package extract
