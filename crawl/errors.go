package crawl

import "errors"

var (
	// ErrBotChallenge indicates the page served a captcha instead of content.
	// Discovery does not retry it.
	ErrBotChallenge = errors.New("bot challenge detected")

	// ErrRendererRequired is returned when NewDiscoverer gets a nil Renderer.
	ErrRendererRequired = errors.New("renderer is required")
)
