package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/deepresearch/ai/mock"
	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreConfidence(t *testing.T) {
	longClean := strings.Repeat("The empire fell in the fifth century. ", 4) // ~152 chars

	tests := []struct {
		name      string
		response  string
		confident bool
	}{
		{"hedge overrides length", "I'm not sure about this, but " + longClean, false},
		{"long clean response", longClean, true},
		{"short clean response", "Rome fell in 476.", false},
		{"hedge case-insensitive", "Honestly, I DON'T KNOW. " + longClean, false},
		{"stale-knowledge hedge", "As of my last update, the ruins still stood. " + longClean, false},
		{"unverifiable hedge", longClean + " However, I cannot confirm the exact year.", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			confident, detail := scoreConfidence(tc.response)
			assert.Equal(t, tc.confident, confident)
			assert.NotEmpty(t, detail)
		})
	}
}

// Every hedge phrase must mark a long answer unconfident on its own; the
// length vote must not rescue a hedged response.
func TestScoreConfidence_HedgePhrases(t *testing.T) {
	padding := strings.Repeat("The empire fell in the fifth century. ", 4)
	require.GreaterOrEqual(t, len(padding), minConfidentLength)

	for _, phrase := range hedgePhrases {
		t.Run(phrase, func(t *testing.T) {
			confident, detail := scoreConfidence(padding + " " + phrase + " about the rest.")
			assert.False(t, confident)
			assert.Contains(t, detail, "hedges")
		})
	}
}

func TestKnowledgeAgent_Run(t *testing.T) {
	ctx := context.Background()
	longClean := strings.Repeat("The empire fell in the fifth century. ", 4)

	t.Run("confident answer", func(t *testing.T) {
		chat := mock.NewMockChat()
		chat.Response = longClean

		agent, err := NewKnowledgeAgent(chat)
		require.NoError(t, err)

		bus := trace.NewBus()
		result := agent.Run(ctx, &core.QueryContext{Query: "when did the empire fall?"}, bus)

		assert.True(t, result.Confident)
		assert.Equal(t, longClean, result.Response)
	})

	t.Run("sends history window and query", func(t *testing.T) {
		var captured []core.Message
		var temperature float64
		chat := mock.NewMockChat()
		chat.ChatFunc = func(_ context.Context, messages []core.Message, temp float64) (string, error) {
			captured = messages
			temperature = temp
			return longClean, nil
		}

		agent, err := NewKnowledgeAgent(chat, WithHistoryWindow(2))
		require.NoError(t, err)

		history := []core.Message{
			{Role: core.RoleUser, Content: "old 1"},
			{Role: core.RoleAssistant, Content: "old 2"},
			{Role: core.RoleUser, Content: "recent 1"},
			{Role: core.RoleAssistant, Content: "recent 2"},
		}
		bus := trace.NewBus()
		agent.Run(ctx, &core.QueryContext{Query: "the question", History: history}, bus)

		require.Len(t, captured, 4) // system + 2 history + query
		assert.Equal(t, core.RoleSystem, captured[0].Role)
		assert.Equal(t, "recent 1", captured[1].Content)
		assert.Equal(t, "recent 2", captured[2].Content)
		assert.Equal(t, "the question", captured[3].Content)
		assert.InDelta(t, 0.4, temperature, 0.001)
	})

	t.Run("provider failure abstains", func(t *testing.T) {
		chat := mock.NewMockChat()
		chat.ChatFunc = func(context.Context, []core.Message, float64) (string, error) {
			return "", errors.New("connection refused")
		}

		agent, err := NewKnowledgeAgent(chat)
		require.NoError(t, err)

		bus := trace.NewBus()
		result := agent.Run(ctx, &core.QueryContext{Query: "anything"}, bus)

		assert.False(t, result.Confident)
		assert.Empty(t, result.Response)
		assert.Contains(t, traceKinds(bus), trace.KindError)
	})

	t.Run("nil chat model rejected", func(t *testing.T) {
		_, err := NewKnowledgeAgent(nil)
		assert.ErrorIs(t, err, ErrChatModelRequired)
	})
}
