package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/deepresearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatFunc adapts plain functions to the ChatModel interface for tests.
type chatFunc struct {
	chat   func(ctx context.Context, messages []core.Message, temperature float64) (string, error)
	stream func(ctx context.Context, messages []core.Message, temperature float64, fn TokenFunc) (string, error)
}

func (c chatFunc) Chat(ctx context.Context, messages []core.Message, temperature float64) (string, error) {
	return c.chat(ctx, messages, temperature)
}

func (c chatFunc) ChatStream(ctx context.Context, messages []core.Message, temperature float64, fn TokenFunc) (string, error) {
	return c.stream(ctx, messages, temperature, fn)
}

func staticChat(response string, err error) ChatModel {
	return chatFunc{
		chat: func(context.Context, []core.Message, float64) (string, error) {
			return response, err
		},
		stream: func(_ context.Context, _ []core.Message, _ float64, fn TokenFunc) (string, error) {
			if err != nil {
				return "", err
			}
			if sendErr := fn(response); sendErr != nil {
				return "", sendErr
			}
			return response, nil
		},
	}
}

func userMessage(content string) []core.Message {
	return []core.Message{{Role: core.RoleUser, Content: content}}
}

func TestNewFallbackChat_NoProviders(t *testing.T) {
	_, err := NewFallbackChat()
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retriable bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"timeout", errors.New("request timed out"), true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"server error", errors.New("unexpected status: 503 Service Unavailable"), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"bad request", errors.New("invalid model name"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.retriable, IsRetriable(tc.err))
		})
	}
}

func TestFallbackChat_Chat(t *testing.T) {
	t.Run("primary succeeds", func(t *testing.T) {
		chain, err := NewFallbackChat(
			staticChat("primary answer", nil),
			staticChat("fallback answer", nil),
		)
		require.NoError(t, err)

		response, err := chain.Chat(context.Background(), userMessage("hi"), 0.7)
		require.NoError(t, err)
		assert.Equal(t, "primary answer", response)
	})

	t.Run("falls back on retriable error", func(t *testing.T) {
		chain, err := NewFallbackChat(
			staticChat("", errors.New("connection refused")),
			staticChat("fallback answer", nil),
		)
		require.NoError(t, err)

		response, err := chain.Chat(context.Background(), userMessage("hi"), 0.7)
		require.NoError(t, err)
		assert.Equal(t, "fallback answer", response)
	})

	t.Run("non-retriable error returned immediately", func(t *testing.T) {
		fallbackCalled := false
		chain, err := NewFallbackChat(
			staticChat("", errors.New("invalid model name")),
			chatFunc{
				chat: func(context.Context, []core.Message, float64) (string, error) {
					fallbackCalled = true
					return "should not happen", nil
				},
				stream: nil,
			},
		)
		require.NoError(t, err)

		_, err = chain.Chat(context.Background(), userMessage("hi"), 0.7)
		require.Error(t, err)
		assert.False(t, fallbackCalled)
	})

	t.Run("all providers fail returns last error", func(t *testing.T) {
		chain, err := NewFallbackChat(
			staticChat("", errors.New("connection refused")),
			staticChat("", errors.New("503 unavailable")),
		)
		require.NoError(t, err)

		_, err = chain.Chat(context.Background(), userMessage("hi"), 0.7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestFallbackChat_ChatStream(t *testing.T) {
	t.Run("falls back before first token", func(t *testing.T) {
		chain, err := NewFallbackChat(
			staticChat("", errors.New("connection refused")),
			staticChat("fallback answer", nil),
		)
		require.NoError(t, err)

		var tokens []string
		response, err := chain.ChatStream(context.Background(), userMessage("hi"), 0.7, func(token string) error {
			tokens = append(tokens, token)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "fallback answer", response)
		assert.Equal(t, []string{"fallback answer"}, tokens)
	})

	t.Run("no retry after tokens streamed", func(t *testing.T) {
		fallbackCalled := false
		broken := chatFunc{
			chat: nil,
			stream: func(_ context.Context, _ []core.Message, _ float64, fn TokenFunc) (string, error) {
				if err := fn("partial "); err != nil {
					return "", err
				}
				return "partial ", errors.New("connection reset mid-stream")
			},
		}
		fallback := chatFunc{
			chat: nil,
			stream: func(_ context.Context, _ []core.Message, _ float64, fn TokenFunc) (string, error) {
				fallbackCalled = true
				return "fresh", nil
			},
		}

		chain, err := NewFallbackChat(broken, fallback)
		require.NoError(t, err)

		var tokens []string
		_, err = chain.ChatStream(context.Background(), userMessage("hi"), 0.7, func(token string) error {
			tokens = append(tokens, token)
			return nil
		})
		require.Error(t, err)
		assert.False(t, fallbackCalled, "must not retry a stream that already produced output")
		assert.Equal(t, []string{"partial "}, tokens)
	})
}
