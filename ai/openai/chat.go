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
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Chat implements ai.ChatModel against a single OpenAI-compatible endpoint.
type Chat struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

// newChat creates a chat client for one host/model pair.
func newChat(host, token, model string) (*Chat, error) {
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(token),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}

	return &Chat{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "openai-chat", "model", model),
	}, nil
}

// NewChat creates a chat client for one host/model pair.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChat(host, token, model string) (ai.ChatModel, error) {
	return newChat(host, token, model)
}

// Chat sends the messages and returns the complete response text.
func (c *Chat) Chat(ctx context.Context, messages []core.Message, temperature float64) (string, error) {
	response, err := c.client.GenerateContent(ctx, convertMessages(messages), llms.WithTemperature(temperature))
	if err != nil {
		c.logger.Error("chat request failed", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyResponse
	}
	return response.Choices[0].Content, nil
}

// ChatStream streams the response token by token through fn and returns
// the accumulated full text.
func (c *Chat) ChatStream(ctx context.Context, messages []core.Message, temperature float64, fn ai.TokenFunc) (string, error) {
	var full strings.Builder

	_, err := c.client.GenerateContent(ctx, convertMessages(messages),
		llms.WithTemperature(temperature),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			token := string(chunk)
			if token == "" {
				return nil
			}
			full.WriteString(token)
			return fn(token)
		}),
	)
	if err != nil {
		c.logger.Error("chat stream failed", "streamed", full.Len(), "err", err)
		return full.String(), err
	}

	return full.String(), nil
}

// convertMessages maps conversation messages onto langchaingo content.
func convertMessages(messages []core.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case core.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case core.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}
	return content
}
