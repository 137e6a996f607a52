package crawl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	linkSelector  = `a[href], [role="link"][href], [data-href], [data-pdf]`
	embedSelector = `iframe[src], embed[src]`
)

// ExtractLinks returns the absolute http(s) URLs in html that look like PDFs:
// the reference ends in .pdf or mentions "pdf" anywhere, case-insensitively.
// Relative references resolve against pageURL, or the document's <base> when
// present. The result is deduplicated in first-seen order.
func ExtractLinks(pageURL, html string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	seen := make(map[string]bool)
	links := []string{}
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || !strings.Contains(strings.ToLower(ref), "pdf") {
			return
		}
		u, err := base.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		abs := u.String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	}

	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"href", "data-href", "data-pdf"} {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				add(v)
				return
			}
		}
	})
	doc.Find(embedSelector).Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		add(src)
	})

	return links, nil
}

// IsBotChallenge reports whether a rendered page is a captcha wall.
func IsBotChallenge(html string) bool {
	return strings.Contains(strings.ToLower(html), "captcha")
}
