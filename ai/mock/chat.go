package mock

import (
	"context"
	"strings"

	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/core"
)

// MockChat is a test double for ai.ChatModel.
// It allows custom behavior injection via function fields.
type MockChat struct {
	// ChatFunc is called by Chat if set.
	// If nil, uses default canned response behavior.
	ChatFunc func(ctx context.Context, messages []core.Message, temperature float64) (string, error)

	// ChatStreamFunc is called by ChatStream if set.
	// If nil, streams the default response word by word.
	ChatStreamFunc func(ctx context.Context, messages []core.Message, temperature float64, fn ai.TokenFunc) (string, error)

	// Response overrides the default canned response when non-empty.
	Response string

	callCount int
}

// NewMockChat creates a mock chat model with default canned behavior.
func NewMockChat() *MockChat {
	return &MockChat{}
}

// Chat returns the canned response, echoing the last user message.
func (m *MockChat) Chat(ctx context.Context, messages []core.Message, temperature float64) (string, error) {
	m.callCount++

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages, temperature)
	}

	return m.defaultResponse(messages), nil
}

// ChatStream streams the canned response token by token.
func (m *MockChat) ChatStream(ctx context.Context, messages []core.Message, temperature float64, fn ai.TokenFunc) (string, error) {
	m.callCount++

	if m.ChatStreamFunc != nil {
		return m.ChatStreamFunc(ctx, messages, temperature, fn)
	}

	response := m.defaultResponse(messages)
	for _, word := range strings.SplitAfter(response, " ") {
		if err := fn(word); err != nil {
			return "", err
		}
	}
	return response, nil
}

// CallCount returns the number of times any method was called.
func (m *MockChat) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockChat) Reset() {
	m.callCount = 0
	m.ChatFunc = nil
	m.ChatStreamFunc = nil
	m.Response = ""
}

func (m *MockChat) defaultResponse(messages []core.Message) string {
	if m.Response != "" {
		return m.Response
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			return "mock response to: " + messages[i].Content
		}
	}
	return "mock response"
}
