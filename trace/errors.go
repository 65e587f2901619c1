package trace

import "errors"

var (
	// ErrUnknownEventKind indicates a persisted trace contained an
	// unrecognized event kind.
	ErrUnknownEventKind = errors.New("unknown event kind")
)
