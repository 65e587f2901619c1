package ai

import "errors"

var (
	// ErrNotConfigured indicates that a required AI service has no
	// configuration. This is a fatal configuration error, never retried.
	ErrNotConfigured = errors.New("ai service not configured")

	// ErrNoProviders indicates a fallback chain was built with no providers.
	ErrNoProviders = errors.New("at least one chat provider is required")

	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrInvalidMaxAttempts indicates maxAttempts was not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
