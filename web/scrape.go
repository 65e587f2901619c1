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


package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultScrapeTimeout bounds a single page fetch.
	DefaultScrapeTimeout = 15 * time.Second

	// DefaultMaxContentChars caps the plain text extracted from one page.
	DefaultMaxContentChars = 8000
)

// Page is one scraped page: its title, when the markup carried one, and
// the body reduced to plain text.
type Page struct {
	Title   string
	Content string
}

// Scraper downloads a page and reduces it to a Page.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (*Page, error)
}

// HTTPScraper implements Scraper with a plain HTTP client and
// regex-based HTML stripping. Good enough for article-style pages; it
// makes no attempt to run JavaScript.
type HTTPScraper struct {
	client   *http.Client
	maxChars int
	logger   *slog.Logger
}

// ScraperOption is a functional option for configuring an HTTPScraper.
type ScraperOption func(*HTTPScraper)

// WithScrapeClient overrides the HTTP client.
func WithScrapeClient(client *http.Client) ScraperOption {
	return func(s *HTTPScraper) {
		s.client = client
	}
}

// WithMaxContentChars overrides the extracted text cap.
func WithMaxContentChars(max int) ScraperOption {
	return func(s *HTTPScraper) {
		s.maxChars = max
	}
}

// NewHTTPScraper creates a scraper with the default timeout and text cap.
func NewHTTPScraper(opts ...ScraperOption) *HTTPScraper {
	s := &HTTPScraper{
		client:   &http.Client{Timeout: DefaultScrapeTimeout},
		maxChars: DefaultMaxContentChars,
		logger:   slog.Default().With("component", "web-scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape downloads the URL, pulls the document title, strips HTML to
// plain text, and truncates the text to the configured cap.
func (s *HTTPScraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	trimmed := strings.TrimSpace(pageURL)
	if trimmed == "" {
		return nil, ErrEmptyURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrBadStatus, trimmed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}

	html := string(body)
	text := StripHTML(html)
	if len(text) > s.maxChars {
		text = text[:s.maxChars]
	}

	s.logger.Debug("page scraped", "url", trimmed, "chars", len(text))
	return &Page{Title: extractTitle(html), Content: text}, nil
}

var reTitle = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// extractTitle returns the document title, entity-decoded, or "".
func extractTitle(html string) string {
	match := reTitle.FindStringSubmatch(html)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(StripHTML(match[1]))
}

var (
	reScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reNav        = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	reHeader     = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	reFooter     = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	reTags       = regexp.MustCompile(`<[^>]+>`)
	reWhitespace = regexp.MustCompile(`[ \t]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
)

// StripHTML removes scripts, styles, nav/header/footer chrome, then all
// remaining tags, and collapses whitespace.
func StripHTML(html string) string {
	s := reScript.ReplaceAllString(html, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reNav.ReplaceAllString(s, "")
	s = reHeader.ReplaceAllString(s, "")
	s = reFooter.ReplaceAllString(s, "")
	s = reTags.ReplaceAllString(s, " ")

	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&nbsp;", " ")

	s = reWhitespace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	s = strings.Join(out, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
