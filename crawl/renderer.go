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

package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/mirarav/convocatorias/fetch"
)

// Renderer loads a page and returns its final HTML.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// ExpandSelectors match controls that hide links behind a click.
var ExpandSelectors = []string{
	`button[aria-expanded="false"]`,
	`.accordion-button:not(.collapsed)`,
	`.show-more`,
	`.expand-section`,
	`[data-toggle="collapse"]`,
}

// ChromeConfig tunes the headless browser session.
type ChromeConfig struct {
	// NavigationTimeout bounds one whole render, expansion included.
	NavigationTimeout time.Duration
	// SettleDelay is waited after the body is ready, for late scripts.
	SettleDelay time.Duration
	// ClickDelay is waited after each expand click.
	ClickDelay time.Duration
	UserAgent  string
	Headless   bool
	// ExecPath overrides browser discovery.
	ExecPath string
}

// DefaultChromeConfig returns the browser settings used by the crawler.
func DefaultChromeConfig() ChromeConfig {
	return ChromeConfig{
		NavigationTimeout: 60 * time.Second,
		SettleDelay:       5 * time.Second,
		ClickDelay:        300 * time.Millisecond,
		UserAgent:         fetch.DefaultUserAgent,
		Headless:          true,
	}
}

// ChromeRenderer renders pages in a fresh headless Chrome per call.
type ChromeRenderer struct {
	config ChromeConfig
	logger *slog.Logger
}

// NewChromeRenderer creates a ChromeRenderer. A nil logger means slog.Default().
func NewChromeRenderer(config ChromeConfig, logger *slog.Logger) *ChromeRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.UserAgent == "" {
		config.UserAgent = fetch.DefaultUserAgent
	}
	return &ChromeRenderer{
		config: config,
		logger: logger.With("component", "chrome-renderer"),
	}
}

func (r *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.config.Headless),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.UserAgent(r.config.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	if r.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.config.ExecPath))
	}
	return opts
}

// Render navigates to pageURL, waits for the body, refuses captcha pages,
// clicks every expandable section and returns the resulting HTML. The
// browser is torn down before Render returns.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		r.logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer cancelTab()

	if r.config.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, r.config.NavigationTimeout)
		defer cancel()
	}

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.config.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", pageURL, err)
	}
	if IsBotChallenge(html) {
		return "", ErrBotChallenge
	}

	clicked := 0
	for _, sel := range ExpandSelectors {
		n, err := r.expand(tabCtx, sel)
		if err != nil {
			r.logger.Debug("expand failed", "selector", sel, "err", err)
		}
		clicked += n
	}

	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL, err)
	}
	r.logger.Debug("rendered page", "url", pageURL, "expanded", clicked, "bytes", len(html))
	return html, nil
}

// expand clicks each element matching sel, one at a time, so handlers that
// re-render the DOM do not invalidate the remaining matches.
func (r *ChromeRenderer) expand(ctx context.Context, sel string) (int, error) {
	quoted, err := json.Marshal(sel)
	if err != nil {
		return 0, err
	}

	var count int
	if err := chromedp.Run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.querySelectorAll(%s).length`, quoted), &count)); err != nil {
		return 0, err
	}

	clicked := 0
	for i := 0; i < count; i++ {
		var ok bool
		script := fmt.Sprintf(`(() => {
			const el = document.querySelectorAll(%s)[%d];
			if (!el) { return false; }
			try { el.click(); return true; } catch (e) { return false; }
		})()`, quoted, i)
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &ok), chromedp.Sleep(r.config.ClickDelay)); err != nil {
			if ctx.Err() != nil {
				return clicked, ctx.Err()
			}
			continue
		}
		if ok {
			clicked++
		}
	}
	return clicked, nil
}

// HTTPRenderer fetches pages without running scripts. It suits sites that
// publish their links in static HTML and environments without Chrome.
type HTTPRenderer struct {
	client *http.Client
}

// NewHTTPRenderer creates an HTTPRenderer over client.
func NewHTTPRenderer(client *http.Client) *HTTPRenderer {
	return &HTTPRenderer{client: client}
}

// Render GETs pageURL and returns the body.
func (r *HTTPRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", fetch.ErrBadStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL, err)
	}
	return string(body), nil
}
