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


package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/chunker"
	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/trace"
	"github.com/poiesic/deepresearch/vector"
	"github.com/poiesic/deepresearch/web"
)

const webSearchAgentName = "web_search"

// WebSearchResult reports what live search contributed: the usable
// results and how many chunks were written to the web-knowledge
// collection.
type WebSearchResult struct {
	Success     bool
	Results     []core.WebResult
	StoredCount int
}

// WebSearchAgent searches the web, scrapes result pages concurrently,
// and stores the gathered text for future retrieval. Page-level failures
// degrade to the engine's snippet; only an empty usable set is a miss.
type WebSearchAgent struct {
	searcher   web.Searcher
	scraper    web.Scraper
	splitter   *chunker.Chunker
	embedder   ai.Embedder
	store      *vector.Store
	maxResults int
	logger     *slog.Logger
}

// WebSearchOption is a functional option for configuring a WebSearchAgent.
type WebSearchOption func(*WebSearchAgent)

// WithMaxResults sets how many search results to scrape.
func WithMaxResults(maxResults int) WebSearchOption {
	return func(a *WebSearchAgent) {
		if maxResults > 0 {
			a.maxResults = maxResults
		}
	}
}

// NewWebSearchAgent creates a web search agent.
func NewWebSearchAgent(searcher web.Searcher, scraper web.Scraper, splitter *chunker.Chunker, embedder ai.Embedder, store *vector.Store, opts ...WebSearchOption) (*WebSearchAgent, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if scraper == nil {
		return nil, ErrScraperRequired
	}
	if splitter == nil {
		return nil, ErrChunkerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	agent := &WebSearchAgent{
		searcher:   searcher,
		scraper:    scraper,
		splitter:   splitter,
		embedder:   embedder,
		store:      store,
		maxResults: web.DefaultMaxResults,
		logger:     slog.Default().With("component", "websearch-agent"),
	}
	for _, opt := range opts {
		opt(agent)
	}
	return agent, nil
}

// Run searches, scrapes, and stores. Pages are scraped concurrently so a
// single slow URL only costs its own timeout.
func (a *WebSearchAgent) Run(ctx context.Context, query string, bus *trace.Bus) *WebSearchResult {
	bus.Start(webSearchAgentName, "searching the web")

	hits, err := a.searcher.Search(ctx, query, a.maxResults)
	if err != nil {
		a.logger.Warn("web search failed", "err", err)
		bus.Error(webSearchAgentName, fmt.Sprintf("search unavailable: %v", err))
		return &WebSearchResult{}
	}
	if len(hits) == 0 {
		bus.Emit(trace.Result{
			Agent: webSearchAgentName,
			Note:  "no search results",
			At:    now(),
		})
		return &WebSearchResult{}
	}

	urls := make([]string, len(hits))
	for i, hit := range hits {
		urls[i] = hit.URL
	}
	bus.Emit(trace.Progress{
		Agent: webSearchAgentName,
		Note:  fmt.Sprintf("scraping %d pages", len(hits)),
		URLs:  urls,
		At:    now(),
	})

	scraped := a.scrapeAll(ctx, hits)

	// Keep only results that yielded some text, in search order.
	var usable []core.WebResult
	for _, result := range scraped {
		if result.Content != "" || result.Snippet != "" {
			usable = append(usable, result)
		}
	}
	if len(usable) == 0 {
		bus.Emit(trace.Result{
			Agent: webSearchAgentName,
			Note:  "no pages yielded content",
			Count: 0,
			At:    now(),
		})
		return &WebSearchResult{}
	}

	stored := a.storeResults(ctx, query, usable)

	bus.Emit(trace.Result{
		Agent:  webSearchAgentName,
		Note:   fmt.Sprintf("%d usable pages, %d chunks stored", len(usable), stored),
		Count:  len(usable),
		Stored: stored,
		At:     now(),
	})

	return &WebSearchResult{Success: true, Results: usable, StoredCount: stored}
}

// scrapeAll fetches every hit concurrently through a bounded worker pool
// and falls back to the search snippet for pages that fail or come back
// empty.
func (a *WebSearchAgent) scrapeAll(ctx context.Context, hits []core.WebResult) []core.WebResult {
	results := make([]core.WebResult, len(hits))

	pool, err := ants.NewPool(len(hits))
	if err != nil {
		// Pool creation only fails on bad size; scrape sequentially.
		a.logger.Warn("worker pool unavailable, scraping sequentially", "err", err)
		for i, hit := range hits {
			results[i] = a.scrapeOne(ctx, hit)
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, hit := range hits {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = a.scrapeOne(ctx, hit)
		}); err != nil {
			results[i] = a.scrapeOne(ctx, hit)
			wg.Done()
		}
	}
	wg.Wait()

	return results
}

func (a *WebSearchAgent) scrapeOne(ctx context.Context, hit core.WebResult) core.WebResult {
	page, err := a.scraper.Scrape(ctx, hit.URL)
	if err != nil || page == nil || strings.TrimSpace(page.Content) == "" {
		if err != nil {
			a.logger.Debug("scrape failed, using snippet", "url", hit.URL, "err", err)
		}
		return hit // snippet-only fallback
	}
	hit.Content = page.Content
	// The page's own title beats the engine's rendering of it.
	if page.Title != "" {
		hit.Title = page.Title
	}
	return hit
}

// storeResults chunks and embeds each usable page into the web-knowledge
// collection. Failures are logged and skipped; partial storage is fine.
func (a *WebSearchAgent) storeResults(ctx context.Context, query string, results []core.WebResult) int {
	stored := 0
	for _, result := range results {
		text := result.Content
		if text == "" {
			text = result.Snippet
		}

		chunks := a.splitter.Split(text)
		if len(chunks) == 0 {
			continue
		}

		embeddings, err := a.embedder.EmbedTexts(ctx, chunks)
		if err != nil || len(embeddings) != len(chunks) {
			a.logger.Warn("failed to embed web content", "url", result.URL, "err", err)
			continue
		}

		metadatas := make([]map[string]string, len(chunks))
		for i := range chunks {
			metadatas[i] = map[string]string{
				"query": query,
				"url":   result.URL,
				"title": result.Title,
			}
		}

		count, err := a.store.AddTexts(ctx, vector.CollectionWeb, chunks, embeddings, metadatas)
		if err != nil {
			a.logger.Warn("failed to store web content", "url", result.URL, "err", err)
		}
		stored += count
	}
	return stored
}
