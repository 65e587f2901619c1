package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/deepresearch/core"
)

// FallbackChat is a ChatModel that tries an explicit ordered list of
// providers. When a provider fails with a retriable error the next one in
// the list is attempted; non-retriable errors are returned immediately.
//
// A stream that fails after tokens have already been produced is never
// retried on the next provider, because the consumer has seen partial
// output that a fresh stream would not reproduce.
type FallbackChat struct {
	models []ChatModel
	logger *slog.Logger
}

// NewFallbackChat creates a chat model that tries the given providers in order.
func NewFallbackChat(models ...ChatModel) (*FallbackChat, error) {
	if len(models) == 0 {
		return nil, ErrNoProviders
	}
	return &FallbackChat{
		models: models,
		logger: slog.Default().With("component", "fallback-chat"),
	}, nil
}

// retriableFragments are matched case-insensitively against provider error
// text. They cover connection failures, timeouts, rate limits, and
// transient server errors.
var retriableFragments = []string{
	"connection",
	"timeout",
	"timed out",
	"refused",
	"rate limit",
	"429",
	"500",
	"502",
	"503",
	"unavailable",
	"failed to load",
	"overloaded",
}

// IsRetriable reports whether an error is worth retrying on the next
// provider in the chain.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range retriableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// Chat tries each provider in order until one succeeds.
func (f *FallbackChat) Chat(ctx context.Context, messages []core.Message, temperature float64) (string, error) {
	var lastErr error
	for i, model := range f.models {
		response, err := model.Chat(ctx, messages, temperature)
		if err == nil {
			return response, nil
		}
		if !IsRetriable(err) {
			return "", err
		}
		f.logger.Warn("chat provider failed, trying next", "provider", i, "err", err)
		lastErr = err
	}
	return "", lastErr
}

// ChatStream tries each provider in order until one starts streaming.
// Once any token has reached fn, a subsequent failure is returned as-is
// rather than retried.
func (f *FallbackChat) ChatStream(ctx context.Context, messages []core.Message, temperature float64, fn TokenFunc) (string, error) {
	var lastErr error
	for i, model := range f.models {
		streamed := false
		wrapped := func(token string) error {
			streamed = true
			return fn(token)
		}

		response, err := model.ChatStream(ctx, messages, temperature, wrapped)
		if err == nil {
			return response, nil
		}
		if streamed || !IsRetriable(err) {
			return response, err
		}
		f.logger.Warn("chat stream provider failed before first token, trying next", "provider", i, "err", err)
		lastErr = err
	}
	return "", lastErr
}
