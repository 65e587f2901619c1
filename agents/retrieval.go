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

	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/trace"
	"github.com/poiesic/deepresearch/vector"
)

const retrievalAgentName = "retrieval"

// RetrievalResult is the retrieval agent's vote: whether the local
// semantic store alone can answer the query, and the items it found.
type RetrievalResult struct {
	Sufficient bool
	Items      []core.RetrievedItem
}

// RetrievalAgent embeds the query once and searches every collection in
// the semantic store. A provider failure is never fatal; it just makes
// this source abstain.
type RetrievalAgent struct {
	embedder    ai.Embedder
	store       *vector.Store
	topK        int
	maxDistance float64
	minResults  int
	logger      *slog.Logger
}

// RetrievalOption is a functional option for configuring a RetrievalAgent.
type RetrievalOption func(*RetrievalAgent)

// WithTopK sets how many nearest neighbors to retrieve.
func WithTopK(topK int) RetrievalOption {
	return func(a *RetrievalAgent) {
		if topK > 0 {
			a.topK = topK
		}
	}
}

// WithMaxDistance sets the maximum distance at which a result counts as
// relevant.
func WithMaxDistance(maxDistance float64) RetrievalOption {
	return func(a *RetrievalAgent) {
		if maxDistance > 0 {
			a.maxDistance = maxDistance
		}
	}
}

// WithMinResults sets how many relevant results are needed for the store
// to be sufficient on its own.
func WithMinResults(minResults int) RetrievalOption {
	return func(a *RetrievalAgent) {
		if minResults > 0 {
			a.minResults = minResults
		}
	}
}

// NewRetrievalAgent creates a retrieval agent.
func NewRetrievalAgent(embedder ai.Embedder, store *vector.Store, opts ...RetrievalOption) (*RetrievalAgent, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	agent := &RetrievalAgent{
		embedder:    embedder,
		store:       store,
		topK:        vector.DefaultTopK,
		maxDistance: vector.DefaultMaxDistance,
		minResults:  1,
		logger:      slog.Default().With("component", "retrieval-agent"),
	}
	for _, opt := range opts {
		opt(agent)
	}
	return agent, nil
}

// Run embeds the query, searches all collections, and scores sufficiency.
// The query embedding is written back onto qc so later stages reuse it
// instead of recomputing.
func (a *RetrievalAgent) Run(ctx context.Context, qc *core.QueryContext, bus *trace.Bus) *RetrievalResult {
	bus.Start(retrievalAgentName, "searching semantic store")

	if len(qc.Embedding) == 0 {
		embedding, err := a.embedder.EmbedText(ctx, qc.Query)
		if err != nil {
			a.logger.Warn("query embedding failed", "err", err)
			bus.Error(retrievalAgentName, fmt.Sprintf("embedding unavailable: %v", err))
			return &RetrievalResult{}
		}
		qc.Embedding = embedding
	}

	items, err := a.store.SearchAll(ctx, qc.Embedding, a.topK)
	if err != nil {
		a.logger.Warn("semantic search failed", "err", err)
		bus.Error(retrievalAgentName, fmt.Sprintf("search unavailable: %v", err))
		return &RetrievalResult{}
	}

	good := 0
	bestDistance := 0.0
	for i, item := range items {
		if i == 0 || item.Distance < bestDistance {
			bestDistance = item.Distance
		}
		if item.Distance <= a.maxDistance {
			good++
		}
	}

	sufficient := vector.HasSufficientResults(items, a.maxDistance, a.minResults)
	bus.Emit(trace.Result{
		Agent:        retrievalAgentName,
		Note:         fmt.Sprintf("found %d results, %d within threshold", len(items), good),
		Count:        len(items),
		GoodCount:    good,
		BestDistance: bestDistance,
		Sufficient:   sufficient,
		At:           now(),
	})

	return &RetrievalResult{Sufficient: sufficient, Items: items}
}
