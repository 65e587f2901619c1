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


package vector

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/deepresearch/core"
)

// Collection names managed by the store.
const (
	// CollectionResearchCache holds completed question/answer pairs so
	// repeat questions can skip the whole pipeline.
	CollectionResearchCache = "research_cache"

	// CollectionDocuments holds chunks from user-ingested documents.
	CollectionDocuments = "ingested_documents"

	// CollectionWeb holds content scraped from web search results.
	CollectionWeb = "web_knowledge"
)

const (
	// DefaultTopK is the number of nearest neighbors returned per search.
	DefaultTopK = 5

	// DefaultMaxDistance is the maximum distance at which a result still
	// counts as relevant. Distance is 1 - cosine similarity.
	DefaultMaxDistance = 0.45

	// maxBatchSize bounds a single insert; larger inputs are split.
	maxBatchSize = 5000
)

// Document is one entry to be stored, with its precomputed embedding.
// An empty ID is derived from the content hash, which makes repeated
// inserts of identical content idempotent.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Store wraps an embedded chromem database with the three fixed
// collections the research pipeline reads and writes.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	logger      *slog.Logger
}

// Option is a functional option for configuring a Store.
type Option func(*storeConfig)

type storeConfig struct {
	path     string
	compress bool
}

// WithPath makes the store persistent at the given directory.
// Without it the store is in-memory, which is what tests use.
func WithPath(path string) Option {
	return func(c *storeConfig) {
		c.path = path
	}
}

// WithCompression enables gzip compression of persisted collections.
// Only meaningful together with WithPath.
func WithCompression(compress bool) Option {
	return func(c *storeConfig) {
		c.compress = compress
	}
}

// New creates a Store and eagerly creates the three managed collections.
func New(opts ...Option) (*Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var db *chromem.DB
	var err error
	if cfg.path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.path, cfg.compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
	}

	store := &Store{
		db:          db,
		collections: make(map[string]*chromem.Collection, 3),
		logger:      slog.Default().With("component", "vector-store"),
	}

	for _, name := range []string{CollectionResearchCache, CollectionDocuments, CollectionWeb} {
		collection, err := db.GetOrCreateCollection(name, nil, rejectComputedEmbeddings)
		if err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		store.collections[name] = collection
	}

	return store, nil
}

// rejectComputedEmbeddings is installed as the collection embedding func
// so a document that slips through without a vector fails loudly instead
// of silently calling out to an embedding API.
func rejectComputedEmbeddings(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrMissingEmbedding
}

// AddDocuments stores documents with their precomputed embeddings in the
// named collection. Every document must carry an embedding. A timestamp
// is stamped into metadata when the caller didn't set one. Inserts larger
// than the batch limit are split.
func (s *Store) AddDocuments(ctx context.Context, collection string, docs []Document) (int, error) {
	target, ok := s.collections[collection]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	converted := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return 0, fmt.Errorf("%w: %q", ErrMissingEmbedding, truncate(doc.Content, 50))
		}

		id := doc.ID
		if id == "" {
			id = core.IDFromContent(doc.Content).String()
		}

		metadata := make(map[string]string, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		if _, ok := metadata["timestamp"]; !ok {
			metadata["timestamp"] = now
		}

		converted = append(converted, chromem.Document{
			ID:        id,
			Content:   doc.Content,
			Metadata:  metadata,
			Embedding: doc.Embedding,
		})
	}

	stored := 0
	for start := 0; start < len(converted); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(converted) {
			end = len(converted)
		}
		batch := converted[start:end]
		if err := target.AddDocuments(ctx, batch, runtime.NumCPU()); err != nil {
			return stored, fmt.Errorf("failed to add documents to %s: %w", collection, err)
		}
		stored += len(batch)
	}

	s.logger.Debug("documents stored", "collection", collection, "count", stored)
	return stored, nil
}

// AddTexts stores parallel slices of texts and precomputed embeddings,
// with optional per-text metadata. Mismatched slice lengths are a caller
// error, rejected before anything is written.
func (s *Store) AddTexts(ctx context.Context, collection string, texts []string, embeddings [][]float32, metadatas []map[string]string) (int, error) {
	if len(texts) != len(embeddings) {
		return 0, fmt.Errorf("%w: %d texts, %d embeddings", ErrLengthMismatch, len(texts), len(embeddings))
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return 0, fmt.Errorf("%w: %d texts, %d metadatas", ErrLengthMismatch, len(texts), len(metadatas))
	}

	docs := make([]Document, len(texts))
	for i, text := range texts {
		docs[i] = Document{Content: text, Embedding: embeddings[i]}
		if metadatas != nil {
			docs[i].Metadata = metadatas[i]
		}
	}
	return s.AddDocuments(ctx, collection, docs)
}

// Search returns up to topK nearest neighbors from one collection,
// ordered by ascending distance. An empty collection yields no results
// rather than an error, and topK is clamped to the collection size.
func (s *Store) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]core.RetrievedItem, error) {
	target, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if len(embedding) == 0 {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	count := target.Count()
	if count == 0 {
		return []core.RetrievedItem{}, nil
	}
	if topK > count {
		topK = count
	}

	results, err := target.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query on %s failed: %w", collection, err)
	}

	items := make([]core.RetrievedItem, 0, len(results))
	for _, result := range results {
		items = append(items, core.RetrievedItem{
			Text:       result.Content,
			Metadata:   result.Metadata,
			Distance:   1 - float64(result.Similarity),
			Collection: collection,
			Id:         result.ID,
		})
	}
	return items, nil
}

// SearchAll queries every managed collection and merges the results into
// a single list ordered by ascending distance, truncated to topK.
func (s *Store) SearchAll(ctx context.Context, embedding []float32, topK int) ([]core.RetrievedItem, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	var merged []core.RetrievedItem
	for _, name := range []string{CollectionResearchCache, CollectionDocuments, CollectionWeb} {
		items, err := s.Search(ctx, name, embedding, topK)
		if err != nil {
			return nil, err
		}
		merged = append(merged, items...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// HasSufficientResults reports whether at least minCount of the items
// fall within maxDistance. It drives the decision to skip later, more
// expensive retrieval stages.
func HasSufficientResults(items []core.RetrievedItem, maxDistance float64, minCount int) bool {
	if minCount <= 0 {
		minCount = 1
	}
	good := 0
	for _, item := range items {
		if item.Distance <= maxDistance {
			good++
			if good >= minCount {
				return true
			}
		}
	}
	return false
}

// CacheResearch stores a completed question/answer pair in the research
// cache so semantically similar future questions hit it directly.
// Sources are the flattened labels of whatever material the answer drew on.
func (s *Store) CacheResearch(ctx context.Context, query, answer string, sources []string, embedding []float32) error {
	entry := fmt.Sprintf("Q: %s\n\nA: %s", query, answer)
	metadata := map[string]string{
		"content_type": "research_qa",
		"query":        query,
	}
	if len(sources) > 0 {
		metadata["sources"] = strings.Join(sources, ", ")
	}
	_, err := s.AddDocuments(ctx, CollectionResearchCache, []Document{{
		Content:   entry,
		Metadata:  metadata,
		Embedding: embedding,
	}})
	return err
}

// Count returns the number of documents in one collection.
func (s *Store) Count(collection string) (int, error) {
	target, ok := s.collections[collection]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return target.Count(), nil
}

// Stats returns per-collection document counts.
func (s *Store) Stats() map[string]int {
	stats := make(map[string]int, len(s.collections))
	for name, collection := range s.collections {
		stats[name] = collection.Count()
	}
	return stats
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
