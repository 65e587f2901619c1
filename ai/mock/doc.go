// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.ChatModel,
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	embeddings, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockChat := mock.NewMockChat()
//	mockChat.ChatFunc = func(ctx context.Context, messages []core.Message, temperature float64) (string, error) {
//	    return "canned answer", nil
//	}
//
//	// Check call counts
//	count := mockChat.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockChat: Echoes the last user message; streams it word by word
//   - MockProvider: Aggregates mock embedder and chat model
package mock
