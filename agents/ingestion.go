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
	"path/filepath"
	"time"

	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/chunker"
	"github.com/poiesic/deepresearch/pdfx"
	"github.com/poiesic/deepresearch/trace"
	"github.com/poiesic/deepresearch/vector"
	"github.com/poiesic/deepresearch/web"
)

const ingestionAgentName = "ingestion"

const (
	embedMaxAttempts = 3
	embedBaseDelay   = 500 * time.Millisecond
)

// IngestResult reports one ingestion: where the content came from, the
// page title when one was found, how many chunks were written, and (for
// PDFs) how many pages failed.
type IngestResult struct {
	Source       string
	Title        string
	ChunksStored int
	FailedPages  int
	Err          error
}

// IngestionAgent pulls external content into the document collection:
// web pages by URL and local PDF files. Extraction is best-effort;
// partial content is stored and the failures counted.
type IngestionAgent struct {
	scraper   web.Scraper
	extractor *pdfx.Extractor
	splitter  *chunker.Chunker
	embedder  ai.Embedder
	store     *vector.Store
	logger    *slog.Logger
}

// NewIngestionAgent creates an ingestion agent.
func NewIngestionAgent(scraper web.Scraper, extractor *pdfx.Extractor, splitter *chunker.Chunker, embedder ai.Embedder, store *vector.Store) (*IngestionAgent, error) {
	if scraper == nil {
		return nil, ErrScraperRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
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

	return &IngestionAgent{
		scraper:   scraper,
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		logger:    slog.Default().With("component", "ingestion-agent"),
	}, nil
}

// IngestURL scrapes a page and stores its chunks in the document
// collection tagged with the source URL.
func (a *IngestionAgent) IngestURL(ctx context.Context, pageURL string, bus *trace.Bus) *IngestResult {
	bus.Start(ingestionAgentName, fmt.Sprintf("ingesting %s", pageURL))

	page, err := a.scraper.Scrape(ctx, pageURL)
	if err != nil {
		a.logger.Warn("url ingestion failed", "url", pageURL, "err", err)
		bus.Error(ingestionAgentName, fmt.Sprintf("could not fetch %s: %v", pageURL, err))
		return &IngestResult{Source: pageURL, Err: err}
	}

	metadata := map[string]string{
		"source": pageURL,
		"type":   "url",
	}
	if page.Title != "" {
		metadata["title"] = page.Title
	}
	stored, err := a.storeContent(ctx, page.Content, metadata)
	if err != nil {
		bus.Error(ingestionAgentName, fmt.Sprintf("could not store %s: %v", pageURL, err))
		return &IngestResult{Source: pageURL, Title: page.Title, Err: err}
	}

	name := page.Title
	if name == "" {
		name = pageURL
	}
	bus.Emit(trace.Result{
		Agent:  ingestionAgentName,
		Note:   fmt.Sprintf("ingested %s", name),
		Stored: stored,
		At:     now(),
	})
	return &IngestResult{Source: pageURL, Title: page.Title, ChunksStored: stored}
}

// IngestPDF extracts text from a local PDF and stores its chunks.
// Unreadable pages degrade the result rather than failing it.
func (a *IngestionAgent) IngestPDF(ctx context.Context, path string, bus *trace.Bus) *IngestResult {
	bus.Start(ingestionAgentName, fmt.Sprintf("ingesting %s", filepath.Base(path)))

	extraction, err := a.extractor.ExtractFile(path)
	if err != nil {
		a.logger.Warn("pdf ingestion failed", "path", path, "err", err)
		bus.Error(ingestionAgentName, fmt.Sprintf("could not read %s: %v", filepath.Base(path), err))
		return &IngestResult{Source: path, Err: err}
	}

	stored, err := a.storeContent(ctx, extraction.Text, map[string]string{
		"source": filepath.Base(path),
		"type":   "pdf",
	})
	if err != nil {
		bus.Error(ingestionAgentName, fmt.Sprintf("could not store %s: %v", filepath.Base(path), err))
		return &IngestResult{Source: path, Err: err, FailedPages: extraction.FailedPages}
	}

	note := fmt.Sprintf("ingested %s (%d pages)", filepath.Base(path), extraction.TotalPages)
	if extraction.FailedPages > 0 {
		note = fmt.Sprintf("%s, %d pages unreadable", note, extraction.FailedPages)
	}
	bus.Emit(trace.Result{
		Agent:    ingestionAgentName,
		Note:     note,
		Stored:   stored,
		Degraded: extraction.FailedPages > 0,
		At:       now(),
	})
	return &IngestResult{Source: path, ChunksStored: stored, FailedPages: extraction.FailedPages}
}

// storeContent chunks, embeds (with retry on transient provider errors),
// and writes into the document collection.
func (a *IngestionAgent) storeContent(ctx context.Context, content string, metadata map[string]string) (int, error) {
	chunks := a.splitter.SplitWithMetadata(content, metadata)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = a.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, embedMaxAttempts, embedBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("embedding failed: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	docs := make([]vector.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vector.Document{
			Content:   chunk.Text,
			Metadata:  chunk.Metadata,
			Embedding: embeddings[i],
		}
	}
	return a.store.AddDocuments(ctx, vector.CollectionDocuments, docs)
}
