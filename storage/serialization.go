package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/deepresearch/core"
)

// MarshalStoredMessage encodes a stored message for persistence.
func MarshalStoredMessage(message *core.StoredMessage) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalStoredMessage decodes a stored message from its persisted form.
func UnmarshalStoredMessage(data []byte) (*core.StoredMessage, error) {
	var message core.StoredMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &message, nil
}
