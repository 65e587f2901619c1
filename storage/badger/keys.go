package badger

import "encoding/binary"

// Key prefixes for different data types
const (
	messagePrefix = "convmsg"
	messageIDSeq  = "convmsgseq"
)

// makeMessageKey generates a composite key for one conversation message.
// Format: prefix:conversationID:seq, with the sequence written in
// BigEndian order so lexicographic iteration yields insertion order.
func makeMessageKey(conversationID string, seq uint64) []byte {
	prefix := messagePrefix + ":" + conversationID + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeConversationPrefix generates the iteration prefix for one conversation.
func makeConversationPrefix(conversationID string) []byte {
	return []byte(messagePrefix + ":" + conversationID + ":")
}

// makeAllMessagesPrefix generates the iteration prefix covering every
// conversation.
func makeAllMessagesPrefix() []byte {
	return []byte(messagePrefix + ":")
}
