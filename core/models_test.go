package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := IDFromContent("hello world")
		id2 := IDFromContent("hello world")
		assert.Equal(t, id1, id2)
	})

	t.Run("different content produces different IDs", func(t *testing.T) {
		id1 := IDFromContent("hello world")
		id2 := IDFromContent("hello world!")
		assert.NotEqual(t, id1, id2)
	})

	t.Run("empty content is valid", func(t *testing.T) {
		id := IDFromContent("")
		assert.NotEqual(t, ID(0), id)
	})

	t.Run("string form is hex", func(t *testing.T) {
		id := ID(0xdeadbeef)
		assert.Equal(t, "deadbeef", id.String())
	})
}

func TestValidateMessage(t *testing.T) {
	t.Run("valid message", func(t *testing.T) {
		msg := &Message{Role: RoleUser, Content: "what is a vector database?"}
		require.NoError(t, ValidateMessage(msg))
	})

	t.Run("nil message", func(t *testing.T) {
		err := ValidateMessage(nil)
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})

	t.Run("empty content", func(t *testing.T) {
		err := ValidateMessage(&Message{Role: RoleUser})
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("unknown role", func(t *testing.T) {
		err := ValidateMessage(&Message{Role: "moderator", Content: "hi"})
		assert.ErrorIs(t, err, ErrInvalidRole)
	})
}

func TestSourceBundleEmpty(t *testing.T) {
	assert.True(t, (&SourceBundle{}).Empty())
	assert.False(t, (&SourceBundle{KnowledgeResponse: "x"}).Empty())
	assert.False(t, (&SourceBundle{VectorResults: []RetrievedItem{{Text: "a"}}}).Empty())
	assert.False(t, (&SourceBundle{WebResults: []WebResult{{URL: "https://example.com"}}}).Empty())
}
