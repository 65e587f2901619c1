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


package openai

import (
	"log/slog"

	"github.com/poiesic/deepresearch/ai"
)

// Provider implements ai.Provider using OpenAI-compatible services.
// It manages the embedder and the chat fallback chain.
type Provider struct {
	config   *ai.Config
	embedder *Embedder
	chat     ai.ChatModel
	logger   *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use. When a fallback host
// is configured, the returned chat model is an explicit two-provider
// chain: primary first, fallback on retriable failures.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	primary, err := newChat(config.InferenceHost, config.Token, config.InferenceModel)
	if err != nil {
		return nil, err
	}

	chain := []ai.ChatModel{primary}
	if config.FallbackHost != "" {
		fallback, err := newChat(config.FallbackHost, config.FallbackToken, config.FallbackModel)
		if err != nil {
			return nil, err
		}
		chain = append(chain, fallback)
	}

	chat, err := ai.NewFallbackChat(chain...)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:   config,
		embedder: embedder,
		chat:     chat,
		logger:   slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ChatModel returns the inference service.
func (p *Provider) ChatModel() ai.ChatModel {
	return p.chat
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
