package agents

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/poiesic/deepresearch/ai/mock"
	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/trace"
	"github.com/poiesic/deepresearch/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vectorWithCosine builds a unit vector whose cosine similarity against
// the reference axis [1,0,0,0] is exactly cos.
func vectorWithCosine(cos float64) []float32 {
	sin := math.Sqrt(1 - cos*cos)
	return []float32{float32(cos), float32(sin), 0, 0}
}

var axisVector = []float32{1, 0, 0, 0}

func traceKinds(bus *trace.Bus) []trace.Kind {
	events := bus.Trace()
	kinds := make([]trace.Kind, len(events))
	for i, event := range events {
		kinds[i] = event.Kind()
	}
	return kinds
}

func seedStore(t *testing.T, store *vector.Store, collection string, content string, embedding []float32) {
	t.Helper()
	_, err := store.AddDocuments(context.Background(), collection, []vector.Document{
		{Content: content, Embedding: embedding},
	})
	require.NoError(t, err)
}

func TestNewRetrievalAgent_NilDependencies(t *testing.T) {
	store, err := vector.New()
	require.NoError(t, err)

	_, err = NewRetrievalAgent(nil, store)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewRetrievalAgent(mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestRetrievalAgent_Run(t *testing.T) {
	ctx := context.Background()

	newAgent := func(t *testing.T, embedder *mock.MockEmbedder) (*RetrievalAgent, *vector.Store) {
		t.Helper()
		store, err := vector.New()
		require.NoError(t, err)
		agent, err := NewRetrievalAgent(embedder, store)
		require.NoError(t, err)
		return agent, store
	}

	queryEmbedder := func() *mock.MockEmbedder {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
			return axisVector, nil
		}
		return embedder
	}

	t.Run("close result is sufficient", func(t *testing.T) {
		agent, store := newAgent(t, queryEmbedder())
		// cosine 0.7 puts the item at distance 0.3, inside the 0.45 threshold
		seedStore(t, store, vector.CollectionDocuments, "relevant", vectorWithCosine(0.7))

		bus := trace.NewBus()
		qc := &core.QueryContext{Query: "what is stored?"}
		result := agent.Run(ctx, qc, bus)

		assert.True(t, result.Sufficient)
		require.Len(t, result.Items, 1)
		assert.InDelta(t, 0.3, result.Items[0].Distance, 0.01)
		assert.NotEmpty(t, qc.Embedding, "embedding written back for reuse")
	})

	t.Run("distant result is insufficient", func(t *testing.T) {
		agent, store := newAgent(t, queryEmbedder())
		// cosine 0.5 puts the item at distance 0.5, past the threshold
		seedStore(t, store, vector.CollectionDocuments, "marginal", vectorWithCosine(0.5))

		bus := trace.NewBus()
		result := agent.Run(ctx, &core.QueryContext{Query: "what is stored?"}, bus)

		assert.False(t, result.Sufficient)
		assert.Len(t, result.Items, 1)
	})

	t.Run("empty store is insufficient", func(t *testing.T) {
		agent, _ := newAgent(t, queryEmbedder())

		bus := trace.NewBus()
		result := agent.Run(ctx, &core.QueryContext{Query: "anything"}, bus)

		assert.False(t, result.Sufficient)
		assert.Empty(t, result.Items)
	})

	t.Run("reuses precomputed embedding", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
			t.Fatal("must not re-embed when an embedding is supplied")
			return nil, nil
		}
		agent, _ := newAgent(t, embedder)

		bus := trace.NewBus()
		qc := &core.QueryContext{Query: "anything", Embedding: axisVector}
		agent.Run(ctx, qc, bus)
	})

	t.Run("embedding failure abstains with error event", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
			return nil, errors.New("provider down")
		}
		agent, _ := newAgent(t, embedder)

		bus := trace.NewBus()
		result := agent.Run(ctx, &core.QueryContext{Query: "anything"}, bus)

		assert.False(t, result.Sufficient)
		assert.Contains(t, traceKinds(bus), trace.KindError)
	})
}
