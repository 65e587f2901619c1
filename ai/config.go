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


package ai

import (
	"fmt"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	EmbeddingHost string

	// InferenceHost is the base URL for the primary chat service API.
	InferenceHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// InferenceModel is the model identifier to use for chat inference.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	InferenceModel string

	// Token is the API token sent to the embedding and primary inference
	// hosts. Local OpenAI-compatible services ignore it; "none" works.
	Token string

	// FallbackHost is the base URL for the secondary chat service tried
	// when the primary fails with a retriable error. Empty disables the
	// fallback chain.
	FallbackHost string

	// FallbackModel is the model identifier used on the fallback host.
	// Required when FallbackHost is set.
	FallbackModel string

	// FallbackToken is the API token for the fallback host.
	FallbackToken string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithInferenceHost sets the primary inference service host URL.
func WithInferenceHost(host string) ConfigOption {
	return func(c *Config) {
		c.InferenceHost = host
	}
}

// WithHost sets both embedding and inference hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.InferenceHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithInferenceModel sets the inference model identifier.
func WithInferenceModel(model string) ConfigOption {
	return func(c *Config) {
		c.InferenceModel = model
	}
}

// WithToken sets the API token for the primary hosts.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithFallback configures the secondary inference provider tried after a
// retriable primary failure.
func WithFallback(host, model, token string) ConfigOption {
	return func(c *Config) {
		c.FallbackHost = host
		c.FallbackModel = model
		c.FallbackToken = token
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services. No fallback is configured by default.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:  defaultHost,
		InferenceHost:  defaultHost,
		EmbeddingModel: "embeddinggemma",
		InferenceModel: "qwen2.5:3b",
		Token:          "none",
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithInferenceModel("qwen2.5:7b"),
//	    WithFallback("https://api.openai.com/v1", "gpt-4o-mini", apiKey),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is
// required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.InferenceHost = normalizeHost(c.InferenceHost)
	c.FallbackHost = normalizeHost(c.FallbackHost)
	if c.Token == "" {
		c.Token = "none"
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
// A validation failure is fatal: surface it immediately, never retry.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return fmt.Errorf("%w: EmbeddingHost is required", ErrNotConfigured)
	}
	if c.InferenceHost == "" {
		return fmt.Errorf("%w: InferenceHost is required", ErrNotConfigured)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: EmbeddingModel is required", ErrNotConfigured)
	}
	if c.InferenceModel == "" {
		return fmt.Errorf("%w: InferenceModel is required", ErrNotConfigured)
	}
	if c.FallbackHost != "" && c.FallbackModel == "" {
		return fmt.Errorf("%w: FallbackModel is required when FallbackHost is set", ErrNotConfigured)
	}
	return nil
}
