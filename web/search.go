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
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/deepresearch/core"
)

// DefaultMaxResults caps how many search results a single query returns.
const DefaultMaxResults = 5

// Searcher finds web pages matching a keyword query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]core.WebResult, error)
}

// DuckDuckGo implements Searcher by scraping DuckDuckGo's lite HTML
// interface, which needs no API key and has a stable, simple structure.
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
	logger   *slog.Logger
}

// DuckDuckGoOption is a functional option for configuring a DuckDuckGo searcher.
type DuckDuckGoOption func(*DuckDuckGo)

// WithSearchClient overrides the HTTP client, useful for tests and for
// custom timeouts.
func WithSearchClient(client *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.client = client
	}
}

// WithSearchEndpoint overrides the lite endpoint URL.
func WithSearchEndpoint(endpoint string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.endpoint = endpoint
	}
}

// NewDuckDuckGo creates a DuckDuckGo searcher with a modest timeout.
func NewDuckDuckGo(opts ...DuckDuckGoOption) *DuckDuckGo {
	d := &DuckDuckGo{
		client:   &http.Client{Timeout: 15 * time.Second},
		endpoint: "https://lite.duckduckgo.com/lite/",
		logger:   slog.Default().With("component", "web-search"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search posts the query to the lite interface and parses result links
// out of the returned HTML.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]core.WebResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	formData := url.Values{}
	formData.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search returned %d", ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	results := parseSearchResults(string(body), maxResults)
	d.logger.Debug("search complete", "query", query, "results", len(results))
	return results, nil
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	// Result links: <a ... class='result-link' ... href='URL'>TITLE</a>,
	// in either attribute order.
	resultLinkPattern  = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	resultLinkPattern2 = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)

	resultSnippetPattern = regexp.MustCompile(`<td[^>]*class=['"]result-snippet['"][^>]*>([^<]+(?:<[^>]+>[^<]*</[^>]+>)*[^<]*)</td>`)

	anyLinkPattern = regexp.MustCompile(`<a[^>]+href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
)

// parseSearchResults extracts results from the lite HTML page.
func parseSearchResults(html string, maxResults int) []core.WebResult {
	var results []core.WebResult

	matches := resultLinkPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		matches = resultLinkPattern2.FindAllStringSubmatch(html, -1)
	}
	snippetMatches := resultSnippetPattern.FindAllStringSubmatch(html, -1)

	for i, match := range matches {
		if len(match) < 3 {
			continue
		}

		resultURL := strings.TrimSpace(match[1])
		title := cleanHTML(match[2])
		if resultURL == "" || title == "" {
			continue
		}

		snippet := ""
		if i < len(snippetMatches) && len(snippetMatches[i]) > 1 {
			snippet = cleanHTML(snippetMatches[i][1])
		}

		results = append(results, core.WebResult{
			Title:   title,
			URL:     resultURL,
			Snippet: snippet,
		})
		if len(results) >= maxResults {
			break
		}
	}

	// The markup drifts occasionally; fall back to scanning for any
	// external links before giving up.
	if len(results) == 0 {
		results = fallbackParse(html, maxResults)
	}
	return results
}

func fallbackParse(html string, maxResults int) []core.WebResult {
	var results []core.WebResult

	seen := make(map[string]bool)
	for _, match := range anyLinkPattern.FindAllStringSubmatch(html, -1) {
		if len(match) < 3 {
			continue
		}

		resultURL := strings.TrimSpace(match[1])
		title := cleanHTML(match[2])

		if strings.Contains(resultURL, "duckduckgo.com") ||
			strings.HasPrefix(resultURL, "/") ||
			strings.HasPrefix(resultURL, "#") ||
			strings.HasPrefix(resultURL, "javascript:") {
			continue
		}
		if len(title) < 5 {
			continue
		}
		if seen[resultURL] {
			continue
		}
		seen[resultURL] = true

		results = append(results, core.WebResult{Title: title, URL: resultURL})
		if len(results) >= maxResults {
			break
		}
	}
	return results
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// cleanHTML removes tags and decodes the entities the lite page uses.
func cleanHTML(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return strings.TrimSpace(s)
}
