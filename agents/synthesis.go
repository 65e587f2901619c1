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

	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/trace"
	"github.com/poiesic/deepresearch/vector"
)

const synthesisAgentName = "synthesis"

const (
	// DefaultContextBudget is the running character budget for the
	// synthesis prompt's source material.
	DefaultContextBudget = 6000

	// Per-entry caps. Higher-priority sources get their full cap first;
	// later sources may be dropped entirely when the budget runs out.
	vectorEntryCap    = 1000
	knowledgeEntryCap = 2000
	webEntryCap       = 1500
)

// SynthesisResult is the final answer plus the flattened source labels
// and whether the cache write succeeded.
type SynthesisResult struct {
	Answer  string
	Sources []string
	Cached  bool
}

// SynthesisAgent merges gathered sources into one bounded prompt,
// streams the answer token by token onto the bus, and writes the
// finished (query, answer) pair back into the research cache.
type SynthesisAgent struct {
	chat          ai.ChatModel
	embedder      ai.Embedder
	store         *vector.Store
	contextBudget int
	historyWindow int
	temperature   float64
	logger        *slog.Logger
}

// SynthesisOption is a functional option for configuring a SynthesisAgent.
type SynthesisOption func(*SynthesisAgent)

// WithContextBudget sets the source-material character budget.
func WithContextBudget(budget int) SynthesisOption {
	return func(a *SynthesisAgent) {
		if budget > 0 {
			a.contextBudget = budget
		}
	}
}

// NewSynthesisAgent creates a synthesis agent.
func NewSynthesisAgent(chat ai.ChatModel, embedder ai.Embedder, store *vector.Store, opts ...SynthesisOption) (*SynthesisAgent, error) {
	if chat == nil {
		return nil, ErrChatModelRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	agent := &SynthesisAgent{
		chat:          chat,
		embedder:      embedder,
		store:         store,
		contextBudget: DefaultContextBudget,
		historyWindow: DefaultHistoryWindow,
		temperature:   0.5,
		logger:        slog.Default().With("component", "synthesis-agent"),
	}
	for _, opt := range opts {
		opt(agent)
	}
	return agent, nil
}

// Run streams the answer and performs the cache write. A streaming
// failure emits a readable error token and an Error event instead of a
// StreamEnd; a cache-write failure degrades the Result event but never
// changes the already-streamed answer.
func (a *SynthesisAgent) Run(ctx context.Context, qc *core.QueryContext, bundle *core.SourceBundle, bus *trace.Bus) *SynthesisResult {
	bus.Start(synthesisAgentName, "composing answer")

	contextText, sources := a.buildContext(bundle)

	system := generalKnowledgePrompt
	if contextText != "" {
		system = fmt.Sprintf(synthesisSystemPrompt, contextText)
	} else {
		// Nothing external informed the answer; record where it came from.
		sources = []string{"model knowledge"}
	}

	messages := make([]core.Message, 0, a.historyWindow+2)
	messages = append(messages, core.Message{Role: core.RoleSystem, Content: system})
	messages = append(messages, tailMessages(qc.History, a.historyWindow)...)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: qc.Query})

	answer, err := a.chat.ChatStream(ctx, messages, a.temperature, func(token string) error {
		bus.Token(token)
		return nil
	})
	if err != nil {
		a.logger.Warn("answer stream failed", "streamed", len(answer), "err", err)
		bus.Token("\n\n[answer interrupted: the model stream failed]")
		bus.Error(synthesisAgentName, fmt.Sprintf("streaming failed: %v", err))
		return &SynthesisResult{Answer: answer, Sources: sources}
	}

	bus.StreamEnd()

	cached := a.cacheAnswer(ctx, qc, answer, sources)
	bus.Emit(trace.Result{
		Agent:          synthesisAgentName,
		Note:           "answer complete",
		ResponseLength: len(answer),
		Sources:        sources,
		Cached:         cached,
		Degraded:       !cached,
		At:             now(),
	})

	return &SynthesisResult{Answer: answer, Sources: sources, Cached: cached}
}

// buildContext renders the bounded source block in priority order:
// vector results first, then the model-knowledge answer, then web pages.
// Each block is included only when it fits the remaining budget whole;
// an oversized block is skipped, not truncated, and smaller blocks after
// it may still fit.
func (a *SynthesisAgent) buildContext(bundle *core.SourceBundle) (string, []string) {
	if bundle == nil || bundle.Empty() {
		return "", nil
	}

	remaining := a.contextBudget
	var blocks []string
	var sources []string
	seen := make(map[string]bool)

	addSource := func(label string) {
		if label != "" && !seen[label] {
			seen[label] = true
			sources = append(sources, label)
		}
	}
	addBlock := func(block, label string) {
		if len(block) > remaining {
			return
		}
		blocks = append(blocks, block)
		remaining -= len(block)
		addSource(label)
	}

	for _, item := range bundle.VectorResults {
		block := "[Stored knowledge]\n" + capText(item.Text, vectorEntryCap)
		label := item.Metadata["url"]
		if label == "" {
			label = "store:" + item.Collection
		}
		addBlock(block, label)
	}

	if bundle.KnowledgeResponse != "" {
		addBlock("[Model knowledge]\n"+capText(bundle.KnowledgeResponse, knowledgeEntryCap), "model knowledge")
	}

	for _, result := range bundle.WebResults {
		text := result.Content
		if text == "" {
			text = result.Snippet
		}
		block := fmt.Sprintf("[Web: %s]\n%s", result.Title, capText(text, webEntryCap))
		addBlock(block, result.URL)
	}

	return strings.Join(blocks, "\n\n"), sources
}

// cacheAnswer writes the finished Q/A pair into the research cache,
// reusing the precomputed query embedding when the pipeline supplied one.
func (a *SynthesisAgent) cacheAnswer(ctx context.Context, qc *core.QueryContext, answer string, sources []string) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}

	embedding := qc.Embedding
	if len(embedding) == 0 {
		var err error
		embedding, err = a.embedder.EmbedText(ctx, qc.Query)
		if err != nil {
			a.logger.Warn("cache write skipped, embedding failed", "err", err)
			return false
		}
	}

	if err := a.store.CacheResearch(ctx, qc.Query, answer, sources, embedding); err != nil {
		a.logger.Warn("cache write failed", "err", err)
		return false
	}
	return true
}

func capText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
