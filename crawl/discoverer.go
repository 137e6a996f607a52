package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mirarav/convocatorias/retry"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

// Discoverer finds candidate PDF links on a call page.
type Discoverer struct {
	renderer    Renderer
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer) error

// WithMaxAttempts sets how many renders are tried before giving up.
// Default is 3.
func WithMaxAttempts(n int) Option {
	return func(d *Discoverer) error {
		if n < 1 {
			return fmt.Errorf("max attempts must be >= 1, got %d", n)
		}
		d.maxAttempts = n
		return nil
	}
}

// WithBaseDelay sets the backoff base; the wait after the n-th failure is base * 2^n.
// Default is 2s.
func WithBaseDelay(delay time.Duration) Option {
	return func(d *Discoverer) error {
		if delay < 0 {
			return fmt.Errorf("base delay must be >= 0, got %s", delay)
		}
		d.baseDelay = delay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDiscoverer creates a Discoverer that loads pages through renderer.
func NewDiscoverer(renderer Renderer, opts ...Option) (*Discoverer, error) {
	if renderer == nil {
		return nil, ErrRendererRequired
	}
	d := &Discoverer{
		renderer:    renderer,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "discoverer")
	return d, nil
}

// Discover returns the PDF candidates linked from pageURL. Render failures
// are retried with exponential backoff; once attempts run out, or the page
// is a bot challenge, Discover returns an empty list and no error. Errors are
// reserved for an invalid pageURL and cancellation of ctx.
func (d *Discoverer) Discover(ctx context.Context, pageURL string) ([]string, error) {
	if err := ValidateURL(pageURL); err != nil {
		return nil, err
	}

	logger := d.logger.With("run", uuid.NewString(), "url", pageURL)
	var links []string

	err := retry.WithBackoff(ctx, func(attempt int) error {
		logger.Debug("rendering page", "attempt", attempt)

		html, err := d.renderer.Render(ctx, pageURL)
		if err == nil && IsBotChallenge(html) {
			err = ErrBotChallenge
		}
		if err != nil {
			if errors.Is(err, ErrBotChallenge) || ctx.Err() != nil {
				return retry.Permanent(err)
			}
			logger.Warn("render failed", "attempt", attempt, "max_attempts", d.maxAttempts, "err", err)
			return err
		}

		found, err := ExtractLinks(pageURL, html)
		if err != nil {
			return retry.Permanent(err)
		}
		links = found
		return nil
	}, d.maxAttempts, d.baseDelay)

	switch {
	case err == nil:
		logger.Info("discovered pdf links", "count", len(links))
		return links, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, ErrBotChallenge):
		logger.Warn("captcha detected, giving up")
	default:
		logger.Warn("giving up on page", "attempts", d.maxAttempts, "err", err)
	}
	return []string{}, nil
}
