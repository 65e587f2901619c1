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


package deepresearch

import (
	"context"
	"iter"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/poiesic/deepresearch/agents"
	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/ai/openai"
	"github.com/poiesic/deepresearch/chunker"
	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/pdfx"
	"github.com/poiesic/deepresearch/storage"
	"github.com/poiesic/deepresearch/storage/badger"
	"github.com/poiesic/deepresearch/trace"
	"github.com/poiesic/deepresearch/vector"
	"github.com/poiesic/deepresearch/web"
)

// Platform wires the storage backends, the AI provider, and the agent
// pipeline into one handle. It owns the lifecycle of everything it opens.
type Platform struct {
	backend       *badger.Backend
	conversations storage.ConversationRepository
	store         *vector.Store
	provider      ai.Provider
	orchestrator  *agents.Orchestrator
	ingestion     *agents.IngestionAgent
	historyWindow int
	logger        *slog.Logger
}

// PlatformOption configures a Platform.
type PlatformOption func(*platformOptions)

type platformOptions struct {
	aiConfig      *ai.Config
	provider      ai.Provider
	searcher      web.Searcher
	scraper       web.Scraper
	historyWindow int
}

// WithAIConfig sets the AI provider configuration used when no provider
// is injected directly.
func WithAIConfig(config *ai.Config) PlatformOption {
	return func(o *platformOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects an AI provider directly, bypassing config-based
// construction. Tests use this to supply doubles.
func WithProvider(provider ai.Provider) PlatformOption {
	return func(o *platformOptions) {
		o.provider = provider
	}
}

// WithSearcher overrides the web search provider.
func WithSearcher(searcher web.Searcher) PlatformOption {
	return func(o *platformOptions) {
		o.searcher = searcher
	}
}

// WithScraper overrides the page scraper.
func WithScraper(scraper web.Scraper) PlatformOption {
	return func(o *platformOptions) {
		o.scraper = scraper
	}
}

// WithHistoryWindow sets how many trailing conversation messages are
// loaded as prompt history for each query.
func WithHistoryWindow(window int) PlatformOption {
	return func(o *platformOptions) {
		if window > 0 {
			o.historyWindow = window
		}
	}
}

// NewPlatform opens the platform rooted at dataDir: conversations live in
// a BadgerDB under it and vector collections persist beside them. An
// empty dataDir keeps everything in memory, which is what tests use.
func NewPlatform(dataDir string, opts ...PlatformOption) (*Platform, error) {
	options := &platformOptions{
		aiConfig:      ai.DefaultConfig(),
		historyWindow: agents.DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(conversationsPath(dataDir), dataDir == "")
	if err != nil {
		return nil, err
	}

	conversations, err := badger.NewConversationRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	var storeOpts []vector.Option
	if dataDir != "" {
		storeOpts = append(storeOpts, vector.WithPath(filepath.Join(dataDir, "vectors")))
	}
	store, err := vector.New(storeOpts...)
	if err != nil {
		conversations.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			conversations.Close()
			backend.Close()
			return nil, err
		}
	}

	searcher := options.searcher
	if searcher == nil {
		searcher = web.NewDuckDuckGo()
	}
	scraper := options.scraper
	if scraper == nil {
		scraper = web.NewHTTPScraper()
	}

	orchestrator, ingestion, err := buildPipeline(provider, store, searcher, scraper)
	if err != nil {
		provider.Close()
		conversations.Close()
		backend.Close()
		return nil, err
	}

	return &Platform{
		backend:       backend,
		conversations: conversations,
		store:         store,
		provider:      provider,
		orchestrator:  orchestrator,
		ingestion:     ingestion,
		historyWindow: options.historyWindow,
		logger:        slog.Default().With("component", "platform"),
	}, nil
}

func conversationsPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "conversations")
}

// buildPipeline constructs the five agents and the orchestrator over them.
func buildPipeline(provider ai.Provider, store *vector.Store, searcher web.Searcher, scraper web.Scraper) (*agents.Orchestrator, *agents.IngestionAgent, error) {
	splitter := chunker.New()
	embedder := provider.Embedder()
	chat := provider.ChatModel()

	retrieval, err := agents.NewRetrievalAgent(embedder, store)
	if err != nil {
		return nil, nil, err
	}
	knowledge, err := agents.NewKnowledgeAgent(chat)
	if err != nil {
		return nil, nil, err
	}
	webSearch, err := agents.NewWebSearchAgent(searcher, scraper, splitter, embedder, store)
	if err != nil {
		return nil, nil, err
	}
	synthesis, err := agents.NewSynthesisAgent(chat, embedder, store)
	if err != nil {
		return nil, nil, err
	}
	ingestion, err := agents.NewIngestionAgent(scraper, pdfx.NewExtractor(), splitter, embedder, store)
	if err != nil {
		return nil, nil, err
	}

	orchestrator, err := agents.NewOrchestrator(retrieval, knowledge, webSearch, synthesis, ingestion)
	if err != nil {
		return nil, nil, err
	}
	return orchestrator, ingestion, nil
}

// NewConversationID generates a fresh conversation identifier.
func NewConversationID() string {
	return uuid.NewString()
}

// Research is one in-flight query: a live event stream plus the final
// outcome once the pipeline completes.
type Research struct {
	bus     *trace.Bus
	done    chan struct{}
	outcome *agents.Outcome
	err     error
}

// Events returns the ordered live stream of trace events for this query.
// The sequence terminates once the pipeline has finished and the buffer
// is drained.
func (r *Research) Events() iter.Seq[trace.Event] {
	return r.bus.Subscribe()
}

// Wait blocks until the pipeline completes and returns its outcome.
func (r *Research) Wait() (*agents.Outcome, error) {
	<-r.done
	return r.outcome, r.err
}

// Trace returns the full ordered event log recorded so far.
func (r *Research) Trace() []trace.Event {
	return r.bus.Trace()
}

// Ask runs one query through the pipeline. The user message is persisted
// immediately; the pipeline runs in the background and the assistant's
// answer, source labels, and full trace are persisted when it completes.
// Callers stream progress through the returned Research.
func (p *Platform) Ask(ctx context.Context, conversationID, query string) (*Research, error) {
	stored, err := p.conversations.RecentMessages(ctx, conversationID, p.historyWindow)
	if err != nil {
		return nil, err
	}
	history := make([]core.Message, len(stored))
	for i, msg := range stored {
		history[i] = core.Message{Role: msg.Role, Content: msg.Content}
	}

	if _, err := p.conversations.AppendMessage(ctx, conversationID, &core.StoredMessage{
		Role:    core.RoleUser,
		Content: query,
	}); err != nil {
		return nil, err
	}

	research := &Research{
		bus:  trace.NewBus(),
		done: make(chan struct{}),
	}

	go func() {
		defer close(research.done)

		outcome, err := p.orchestrator.Run(ctx, &core.QueryContext{
			Query:   query,
			History: history,
		}, research.bus)
		research.bus.Close()

		research.outcome = outcome
		research.err = err
		if err != nil {
			return
		}

		encoded, err := trace.MarshalTrace(research.bus.Trace())
		if err != nil {
			p.logger.Warn("trace serialization failed, persisting answer without it", "err", err)
			encoded = nil
		}
		if _, err := p.conversations.AppendMessage(ctx, conversationID, &core.StoredMessage{
			Role:    core.RoleAssistant,
			Content: outcome.Answer,
			Sources: outcome.Sources,
			Trace:   encoded,
		}); err != nil {
			p.logger.Warn("failed to persist assistant message", "conversation", conversationID, "err", err)
		}
	}()

	return research, nil
}

// IngestPDF pulls a local PDF into the document collection and returns
// what was stored. Unreadable pages degrade the result, not fail it.
func (p *Platform) IngestPDF(ctx context.Context, path string) (*agents.IngestResult, []trace.Event) {
	bus := trace.NewBus()
	result := p.ingestion.IngestPDF(ctx, path, bus)
	bus.Close()
	return result, bus.Trace()
}

// Stats returns per-collection document counts from the vector store.
func (p *Platform) Stats() map[string]int {
	return p.store.Stats()
}

// Conversations exposes the conversation repository.
func (p *Platform) Conversations() storage.ConversationRepository {
	return p.conversations
}

// VectorStore exposes the semantic store.
func (p *Platform) VectorStore() *vector.Store {
	return p.store
}

// Close releases the AI provider and the storage backends.
func (p *Platform) Close() error {
	if err := p.provider.Close(); err != nil {
		p.logger.Error("error closing AI provider", "err", err)
	}
	if err := p.conversations.Close(); err != nil {
		p.logger.Error("error closing conversation repository", "err", err)
		return err
	}
	if err := p.backend.Close(); err != nil {
		p.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
