package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/ai/mock"
	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/trace"
	"github.com/poiesic/deepresearch/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSynthesisAgent(t *testing.T, chat *mock.MockChat, opts ...SynthesisOption) (*SynthesisAgent, *vector.Store) {
	t.Helper()
	store, err := vector.New()
	require.NoError(t, err)

	agent, err := NewSynthesisAgent(chat, mock.NewMockEmbedder(), store, opts...)
	require.NoError(t, err)
	return agent, store
}

func TestSynthesisAgent_BuildContext(t *testing.T) {
	t.Run("priority order: vector, knowledge, web", func(t *testing.T) {
		agent, _ := newSynthesisAgent(t, mock.NewMockChat())

		bundle := &core.SourceBundle{
			VectorResults:     []core.RetrievedItem{{Text: "stored fact", Collection: vector.CollectionDocuments}},
			KnowledgeResponse: "model fact",
			WebResults:        []core.WebResult{{Title: "Site", URL: "https://site.example", Content: "web fact"}},
		}

		contextText, sources := agent.buildContext(bundle)

		storedIdx := strings.Index(contextText, "stored fact")
		modelIdx := strings.Index(contextText, "model fact")
		webIdx := strings.Index(contextText, "web fact")
		require.NotEqual(t, -1, storedIdx)
		require.NotEqual(t, -1, modelIdx)
		require.NotEqual(t, -1, webIdx)
		assert.Less(t, storedIdx, modelIdx)
		assert.Less(t, modelIdx, webIdx)

		assert.Equal(t, []string{"store:" + vector.CollectionDocuments, "model knowledge", "https://site.example"}, sources)
	})

	t.Run("oversized blocks skipped, smaller later blocks still fit", func(t *testing.T) {
		agent, _ := newSynthesisAgent(t, mock.NewMockChat(), WithContextBudget(100))

		bundle := &core.SourceBundle{
			VectorResults: []core.RetrievedItem{
				{Text: strings.Repeat("a", 50), Collection: vector.CollectionDocuments},
				{Text: strings.Repeat("b", 50), Collection: vector.CollectionDocuments},
			},
			WebResults: []core.WebResult{{Title: "Site", URL: "https://site.example", Content: "web fact"}},
		}

		contextText, sources := agent.buildContext(bundle)

		// The first block fits and leaves too little room for the second,
		// which is skipped whole; the small web block after it still fits,
		// and the total never overshoots the budget.
		assert.Contains(t, contextText, strings.Repeat("a", 50))
		assert.NotContains(t, contextText, strings.Repeat("b", 50))
		assert.Contains(t, contextText, "web fact")
		assert.Contains(t, sources, "https://site.example")
	})

	t.Run("empty bundle yields no context", func(t *testing.T) {
		agent, _ := newSynthesisAgent(t, mock.NewMockChat())

		contextText, sources := agent.buildContext(&core.SourceBundle{})
		assert.Empty(t, contextText)
		assert.Empty(t, sources)
	})

	t.Run("long entries are capped", func(t *testing.T) {
		agent, _ := newSynthesisAgent(t, mock.NewMockChat())

		bundle := &core.SourceBundle{
			VectorResults: []core.RetrievedItem{{Text: strings.Repeat("x", 5000), Collection: vector.CollectionWeb}},
		}
		contextText, _ := agent.buildContext(bundle)
		assert.LessOrEqual(t, len(contextText), vectorEntryCap+50)
	})
}

func TestSynthesisAgent_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("streams tokens, ends stream, caches answer", func(t *testing.T) {
		chat := mock.NewMockChat()
		chat.Response = "The answer spans several tokens."
		agent, store := newSynthesisAgent(t, chat)

		bus := trace.NewBus()
		qc := &core.QueryContext{Query: "the question", Embedding: []float32{1, 0, 0, 0}}
		result := agent.Run(ctx, qc, &core.SourceBundle{KnowledgeResponse: "model fact"}, bus)

		assert.Equal(t, "The answer spans several tokens.", result.Answer)
		assert.True(t, result.Cached)

		kinds := traceKinds(bus)
		assert.Contains(t, kinds, trace.KindToken)

		// Exactly one StreamEnd, followed only by the summary Result.
		streamEnds := 0
		for _, kind := range kinds {
			if kind == trace.KindStreamEnd {
				streamEnds++
			}
		}
		assert.Equal(t, 1, streamEnds)
		assert.Equal(t, trace.KindResult, kinds[len(kinds)-1])
		assert.Equal(t, trace.KindStreamEnd, kinds[len(kinds)-2])

		count, err := store.Count(vector.CollectionResearchCache)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("stream failure emits error token and no stream end", func(t *testing.T) {
		chat := mock.NewMockChat()
		chat.ChatStreamFunc = func(_ context.Context, _ []core.Message, _ float64, fn ai.TokenFunc) (string, error) {
			if err := fn("partial "); err != nil {
				return "", err
			}
			return "partial ", errors.New("stream reset")
		}
		agent, store := newSynthesisAgent(t, chat)

		bus := trace.NewBus()
		qc := &core.QueryContext{Query: "the question", Embedding: []float32{1, 0, 0, 0}}
		result := agent.Run(ctx, qc, &core.SourceBundle{}, bus)

		assert.False(t, result.Cached)
		assert.Equal(t, "partial ", result.Answer)

		kinds := traceKinds(bus)
		assert.NotContains(t, kinds, trace.KindStreamEnd)
		assert.Contains(t, kinds, trace.KindError)

		// The last token is the human-readable failure notice.
		events := bus.Trace()
		var lastToken trace.Token
		for _, event := range events {
			if token, ok := event.(trace.Token); ok {
				lastToken = token
			}
		}
		assert.Contains(t, lastToken.Text, "interrupted")

		count, err := store.Count(vector.CollectionResearchCache)
		require.NoError(t, err)
		assert.Zero(t, count, "failed stream is never cached")
	})

	t.Run("empty bundle labels the answer as model knowledge", func(t *testing.T) {
		chat := mock.NewMockChat()
		var temperature float64
		chat.ChatStreamFunc = func(_ context.Context, _ []core.Message, temp float64, fn ai.TokenFunc) (string, error) {
			temperature = temp
			if err := fn("answer"); err != nil {
				return "", err
			}
			return "answer", nil
		}
		agent, _ := newSynthesisAgent(t, chat)

		bus := trace.NewBus()
		qc := &core.QueryContext{Query: "q", Embedding: []float32{1, 0, 0, 0}}
		result := agent.Run(ctx, qc, &core.SourceBundle{}, bus)

		assert.Equal(t, []string{"model knowledge"}, result.Sources)
		assert.InDelta(t, 0.5, temperature, 0.001)
	})

	t.Run("cache write failure degrades but keeps answer", func(t *testing.T) {
		chat := mock.NewMockChat()
		chat.Response = "A complete answer."

		store, err := vector.New()
		require.NoError(t, err)

		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
			return nil, errors.New("embedder down")
		}
		agent, err := NewSynthesisAgent(chat, embedder, store)
		require.NoError(t, err)

		bus := trace.NewBus()
		// No precomputed embedding, so the cache write needs the embedder.
		result := agent.Run(ctx, &core.QueryContext{Query: "q"}, &core.SourceBundle{}, bus)

		assert.Equal(t, "A complete answer.", result.Answer)
		assert.False(t, result.Cached)

		kinds := traceKinds(bus)
		assert.Contains(t, kinds, trace.KindStreamEnd, "answer already streamed cleanly")
	})
}
