package fetch

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mirarav/convocatorias/retry"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,application/pdf,*/*;q=0.8"
	defaultAcceptLanguage = "es-ES,es;q=0.8,en-US;q=0.5,en;q=0.3"
)

// Config tunes the hardened HTTP session.
type Config struct {
	// Timeout bounds every request, body included.
	Timeout time.Duration
	// MaxRetries is how many times a request is re-sent after a transport error.
	// HTTP error statuses are never retried.
	MaxRetries int
	// RetryDelay is the base delay for transport retries.
	RetryDelay time.Duration
	// RequestsPerSecond limits requests per host. Zero or less disables limiting.
	RequestsPerSecond float64
	// UserAgent overrides DefaultUserAgent.
	UserAgent string
}

// DefaultConfig returns the session settings used by the pipeline.
func DefaultConfig() Config {
	return Config{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryDelay:        500 * time.Millisecond,
		RequestsPerSecond: 2,
		UserAgent:         DefaultUserAgent,
	}
}

// NewHTTPClient builds a client for government sites with dated TLS setups:
// certificate verification is off, TLS 1.1 and legacy cipher suites are
// accepted, transport errors are retried and requests are throttled per host.
func NewHTTPClient(cfg Config) *http.Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = legacyTLSConfig()

	return &http.Client{
		Transport: wrapTransport(base, cfg),
		Timeout:   cfg.Timeout,
	}
}

// wrapTransport layers headers, retries and throttling over base. The limiter
// sits innermost so every attempt, retries included, waits for a token.
func wrapTransport(base http.RoundTripper, cfg Config) http.RoundTripper {
	rt := base
	if cfg.RequestsPerSecond > 0 {
		rt = &rateLimitTransport{next: rt, limiters: newHostLimiters(cfg.RequestsPerSecond)}
	}
	if cfg.MaxRetries > 0 {
		rt = &retryTransport{next: rt, retries: cfg.MaxRetries, delay: cfg.RetryDelay}
	}
	return &headerTransport{next: rt, userAgent: cfg.UserAgent}
}

func legacyTLSConfig() *tls.Config {
	var suites []uint16
	for _, s := range tls.CipherSuites() {
		suites = append(suites, s.ID)
	}
	for _, s := range tls.InsecureCipherSuites() {
		suites = append(suites, s.ID)
	}
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // public sites with self-signed or expired chains
		MinVersion:         tls.VersionTLS11,
		CipherSuites:       suites,
	}
}

// headerTransport fills browser-like defaults without overriding caller headers.
type headerTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", defaultAccept)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", defaultAcceptLanguage)
	}
	return t.next.RoundTrip(req)
}

// retryTransport re-sends requests that failed before a response arrived.
type retryTransport struct {
	next    http.RoundTripper
	retries int
	delay   time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return t.next.RoundTrip(req)
	}

	var resp *http.Response
	err := retry.WithBackoff(req.Context(), func(attempt int) error {
		if attempt > 1 {
			slog.Debug("retrying request", "url", req.URL.String(), "attempt", attempt)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return retry.Permanent(err)
				}
				req.Body = body
			}
		}
		var err error
		resp, err = t.next.RoundTrip(req)
		if err != nil && req.Context().Err() != nil {
			return retry.Permanent(err)
		}
		return err
	}, t.retries+1, t.delay)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// rateLimitTransport waits for the request host's token before sending.
type rateLimitTransport struct {
	next     http.RoundTripper
	limiters *hostLimiters
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiters.get(req.URL.Host).Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

type hostLimiters struct {
	mu       sync.Mutex
	perHost  rate.Limit
	limiters map[string]*rate.Limiter
}

func newHostLimiters(rps float64) *hostLimiters {
	return &hostLimiters{
		perHost:  rate.Limit(rps),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (h *hostLimiters) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.perHost, 1)
		h.limiters[host] = l
	}
	return l
}
