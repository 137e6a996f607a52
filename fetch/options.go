package fetch

import (
	"fmt"
	"log/slog"
)

const (
	// PrefixBytes bounds how much of a PDF is hashed for its fingerprint.
	PrefixBytes = 1_000_000

	// DefaultMaxDownloadBytes bounds a full download.
	DefaultMaxDownloadBytes = 200 << 20

	readChunkSize = 8192
)

type options struct {
	logger   *slog.Logger
	maxBytes int64
}

// Option configures a Verifier or Downloader.
type Option func(*options) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithMaxDownloadBytes caps the size of a full download.
// Default is DefaultMaxDownloadBytes.
func WithMaxDownloadBytes(n int64) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("max download bytes must be > 0, got %d", n)
		}
		o.maxBytes = n
		return nil
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := &options{
		logger:   slog.Default(),
		maxBytes: DefaultMaxDownloadBytes,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
