package vector

import (
	"context"
	"testing"

	"github.com/poiesic/deepresearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVector builds a simple unit-ish vector pointing mostly along one axis.
func testVector(axis int) []float32 {
	v := make([]float32, 4)
	for i := range v {
		v[i] = 0.1
	}
	v[axis] = 1.0
	return v
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New()
	require.NoError(t, err)
	return store
}

func TestStore_AddDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("stores documents and stamps timestamp", func(t *testing.T) {
		store := newTestStore(t)

		stored, err := store.AddDocuments(ctx, CollectionDocuments, []Document{
			{Content: "first chunk", Embedding: testVector(0)},
			{Content: "second chunk", Embedding: testVector(1)},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, stored)

		count, err := store.Count(CollectionDocuments)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		items, err := store.Search(ctx, CollectionDocuments, testVector(0), 1)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.NotEmpty(t, items[0].Metadata["timestamp"])
	})

	t.Run("derives id from content", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.AddDocuments(ctx, CollectionDocuments, []Document{
			{Content: "same content", Embedding: testVector(0)},
		})
		require.NoError(t, err)

		// Same content again overwrites the same ID instead of duplicating.
		_, err = store.AddDocuments(ctx, CollectionDocuments, []Document{
			{Content: "same content", Embedding: testVector(0)},
		})
		require.NoError(t, err)

		count, err := store.Count(CollectionDocuments)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("rejects missing embedding", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.AddDocuments(ctx, CollectionDocuments, []Document{
			{Content: "no vector"},
		})
		assert.ErrorIs(t, err, ErrMissingEmbedding)
	})

	t.Run("rejects unknown collection", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.AddDocuments(ctx, "nope", []Document{
			{Content: "x", Embedding: testVector(0)},
		})
		assert.ErrorIs(t, err, ErrUnknownCollection)
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		store := newTestStore(t)

		stored, err := store.AddDocuments(ctx, CollectionDocuments, nil)
		require.NoError(t, err)
		assert.Zero(t, stored)
	})
}

func TestStore_AddTexts(t *testing.T) {
	ctx := context.Background()

	t.Run("stores parallel slices", func(t *testing.T) {
		store := newTestStore(t)

		stored, err := store.AddTexts(ctx, CollectionWeb,
			[]string{"chunk one", "chunk two"},
			[][]float32{testVector(0), testVector(1)},
			[]map[string]string{{"url": "https://a.example"}, {"url": "https://a.example"}},
		)
		require.NoError(t, err)
		assert.Equal(t, 2, stored)

		items, err := store.Search(ctx, CollectionWeb, testVector(0), 1)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "https://a.example", items[0].Metadata["url"])
	})

	t.Run("nil metadatas allowed", func(t *testing.T) {
		store := newTestStore(t)

		stored, err := store.AddTexts(ctx, CollectionWeb,
			[]string{"bare chunk"},
			[][]float32{testVector(0)},
			nil,
		)
		require.NoError(t, err)
		assert.Equal(t, 1, stored)
	})

	t.Run("rejects mismatched lengths", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.AddTexts(ctx, CollectionWeb,
			[]string{"one", "two"},
			[][]float32{testVector(0)},
			nil,
		)
		assert.ErrorIs(t, err, ErrLengthMismatch)

		_, err = store.AddTexts(ctx, CollectionWeb,
			[]string{"one"},
			[][]float32{testVector(0)},
			[]map[string]string{{"a": "1"}, {"b": "2"}},
		)
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("empty collection returns no results", func(t *testing.T) {
		store := newTestStore(t)

		items, err := store.Search(ctx, CollectionWeb, testVector(0), 5)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("clamps topK to collection size", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.AddDocuments(ctx, CollectionDocuments, []Document{
			{Content: "only one", Embedding: testVector(0)},
		})
		require.NoError(t, err)

		items, err := store.Search(ctx, CollectionDocuments, testVector(0), 10)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("orders by ascending distance", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.AddDocuments(ctx, CollectionDocuments, []Document{
			{Content: "close match", Embedding: testVector(0)},
			{Content: "far match", Embedding: testVector(3)},
		})
		require.NoError(t, err)

		items, err := store.Search(ctx, CollectionDocuments, testVector(0), 2)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "close match", items[0].Text)
		assert.LessOrEqual(t, items[0].Distance, items[1].Distance)
		assert.Equal(t, CollectionDocuments, items[0].Collection)
	})

	t.Run("rejects empty query embedding", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.Search(ctx, CollectionDocuments, nil, 5)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})
}

func TestStore_SearchAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddDocuments(ctx, CollectionDocuments, []Document{
		{Content: "doc entry", Embedding: testVector(0)},
	})
	require.NoError(t, err)
	_, err = store.AddDocuments(ctx, CollectionWeb, []Document{
		{Content: "web entry", Embedding: testVector(1)},
	})
	require.NoError(t, err)

	items, err := store.SearchAll(ctx, testVector(0), 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "doc entry", items[0].Text)

	// Truncation applies after the merge.
	items, err = store.SearchAll(ctx, testVector(0), 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestHasSufficientResults(t *testing.T) {
	items := []core.RetrievedItem{
		{Distance: 0.2},
		{Distance: 0.4},
		{Distance: 0.9},
	}

	assert.True(t, HasSufficientResults(items, 0.45, 2))
	assert.False(t, HasSufficientResults(items, 0.45, 3))
	assert.False(t, HasSufficientResults(nil, 0.45, 1))
	assert.True(t, HasSufficientResults(items, 0.45, 0), "minCount defaults to 1")
}

func TestStore_CacheResearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sources := []string{"https://go.dev", "model knowledge"}
	require.NoError(t, store.CacheResearch(ctx, "what is Go?", "A programming language.", sources, testVector(0)))

	items, err := store.Search(ctx, CollectionResearchCache, testVector(0), 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Q: what is Go?\n\nA: A programming language.", items[0].Text)
	assert.Equal(t, "research_qa", items[0].Metadata["content_type"])
	assert.Equal(t, "what is Go?", items[0].Metadata["query"])
	assert.Equal(t, "https://go.dev, model knowledge", items[0].Metadata["sources"])
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddDocuments(ctx, CollectionDocuments, []Document{
		{Content: "a", Embedding: testVector(0)},
		{Content: "b", Embedding: testVector(1)},
	})
	require.NoError(t, err)

	stats := store.Stats()
	assert.Equal(t, 2, stats[CollectionDocuments])
	assert.Equal(t, 0, stats[CollectionResearchCache])
	assert.Equal(t, 0, stats[CollectionWeb])
}
