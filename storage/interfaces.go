package storage

import (
	"context"

	"github.com/poiesic/deepresearch/core"
)

// ConversationRepository provides operations for persisting conversation
// history. Implementations must be thread-safe and support concurrent access.
type ConversationRepository interface {
	// AppendMessage appends a message to the named conversation.
	// Sets InsertedAt if not already set. Returns the stored message with
	// its timestamp populated.
	AppendMessage(ctx context.Context, conversationID string, message *core.StoredMessage) (*core.StoredMessage, error)

	// RecentMessages retrieves up to limit most recent messages from the
	// conversation, ordered oldest first so they can be fed directly into
	// a prompt. A missing conversation yields an empty slice, not an error.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*core.StoredMessage, error)

	// MessageCount returns the number of messages stored for the conversation.
	MessageCount(ctx context.Context, conversationID string) (int, error)

	// ListConversations returns the IDs of all stored conversations.
	ListConversations(ctx context.Context) ([]string, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
