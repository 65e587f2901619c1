package agents

import "errors"

var (
	// ErrEmbedderRequired indicates no embedder was supplied.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrChatModelRequired indicates no chat model was supplied.
	ErrChatModelRequired = errors.New("chat model required")

	// ErrStoreRequired indicates no vector store was supplied.
	ErrStoreRequired = errors.New("vector store required")

	// ErrSearcherRequired indicates no web searcher was supplied.
	ErrSearcherRequired = errors.New("web searcher required")

	// ErrScraperRequired indicates no page scraper was supplied.
	ErrScraperRequired = errors.New("page scraper required")

	// ErrChunkerRequired indicates no chunker was supplied.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrExtractorRequired indicates no PDF extractor was supplied.
	ErrExtractorRequired = errors.New("pdf extractor required")

	// ErrAgentRequired indicates the orchestrator was built with a
	// missing agent.
	ErrAgentRequired = errors.New("agent required")

	// ErrEmptyQuery indicates an empty user message.
	ErrEmptyQuery = errors.New("query must not be empty")
)
