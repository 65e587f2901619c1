// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/storage"
)

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
type ConversationRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	idSeq, err := backend.GetSequence(messageIDSeq)
	if err != nil {
		return nil, err
	}

	return &ConversationRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ConversationRepository) Close() error {
	return r.idSeq.Release()
}

// AppendMessage appends a message to the named conversation.
func (r *ConversationRepository) AppendMessage(ctx context.Context, conversationID string, message *core.StoredMessage) (*core.StoredMessage, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	if message == nil {
		return nil, fmt.Errorf("%w: message is nil", core.ErrInvalidMessage)
	}
	if err := core.ValidateMessage(&core.Message{Role: message.Role, Content: message.Content}); err != nil {
		return nil, err
	}

	if message.InsertedAt.IsZero() {
		message.InsertedAt = time.Now().UTC()
	}

	value, err := storage.MarshalStoredMessage(message)
	if err != nil {
		return nil, err
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		seq, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if seq == 0 {
			seq, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}

		if err := tx.Set(makeMessageKey(conversationID, seq), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return message, nil
}

// RecentMessages retrieves up to limit most recent messages, oldest first.
func (r *ConversationRepository) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*core.StoredMessage, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}

	var messages []*core.StoredMessage
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeConversationPrefix(conversationID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var message *core.StoredMessage
			err := iter.Item().Value(func(val []byte) error {
				var err error
				message, err = storage.UnmarshalStoredMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// MessageCount returns the number of messages stored for the conversation.
func (r *ConversationRepository) MessageCount(ctx context.Context, conversationID string) (int, error) {
	if err := validateConversationID(conversationID); err != nil {
		return 0, err
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeConversationPrefix(conversationID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListConversations returns the IDs of all stored conversations.
func (r *ConversationRepository) ListConversations(ctx context.Context) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeAllMessagesPrefix()
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefixLen := len(makeAllMessagesPrefix())
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			// Key layout: prefix + conversationID + ":" + 8-byte sequence.
			if len(key) < prefixLen+9 {
				continue
			}
			rest := key[prefixLen : len(key)-9]
			if idx := bytes.IndexByte(rest, ':'); idx >= 0 {
				rest = rest[:idx]
			}
			id := string(rest)
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func validateConversationID(conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: empty", storage.ErrInvalidConversationID)
	}
	if strings.Contains(conversationID, ":") {
		return fmt.Errorf("%w: %q contains ':'", storage.ErrInvalidConversationID, conversationID)
	}
	return nil
}
