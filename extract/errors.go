package extract

import "errors"

var (
	// ErrMalformedDocument indicates the PDF structure could not be read at all.
	ErrMalformedDocument = errors.New("malformed pdf document")

	// ErrPageParse indicates a single page could not be interpreted.
	ErrPageParse = errors.New("pdf page parse failed")
)
