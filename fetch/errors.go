package fetch

import "errors"

var (
	// ErrClientRequired is returned when a constructor gets a nil *http.Client.
	ErrClientRequired = errors.New("http client is required")

	// ErrBadStatus indicates a non-2xx HTTP response.
	ErrBadStatus = errors.New("unexpected http status")

	// ErrNotPDF indicates the response is not a PDF, by content type or by
	// the absence of any PDF structure.
	ErrNotPDF = errors.New("response is not a pdf")

	// ErrEmptyBody indicates the server returned no bytes.
	ErrEmptyBody = errors.New("empty response body")

	// ErrBadSignature indicates the body does not start with %PDF.
	ErrBadSignature = errors.New("missing %PDF signature")

	// ErrTooLarge indicates a download exceeded the configured size cap.
	ErrTooLarge = errors.New("response exceeds size limit")
)
