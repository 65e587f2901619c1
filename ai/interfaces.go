package ai

import (
	"context"

	"github.com/poiesic/deepresearch/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns ErrNotConfigured (possibly wrapped) if no embedding service
	// is configured.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TokenFunc receives one streamed answer token. Returning an error stops
// the stream.
type TokenFunc func(token string) error

// ChatModel generates text responses from conversation messages.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Chat sends the messages and returns the complete response text.
	Chat(ctx context.Context, messages []core.Message, temperature float64) (string, error)

	// ChatStream sends the messages and streams the response token by
	// token through fn, returning the accumulated full text. Partial text
	// is returned alongside a non-nil error when the stream fails mid-flight.
	ChatStream(ctx context.Context, messages []core.Message, temperature float64, fn TokenFunc) (string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ChatModel returns the inference service, including any configured
	// fallback chain.
	ChatModel() ChatModel

	// Close releases resources held by the provider and its services.
	Close() error
}
