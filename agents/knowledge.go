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


package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/trace"
)

const knowledgeAgentName = "knowledge"

// DefaultHistoryWindow is how many trailing conversation messages are
// sent with the query (3 turns).
const DefaultHistoryWindow = 6

// KnowledgeResult is the knowledge agent's vote: the model's answer and
// whether the confidence heuristic accepts it.
type KnowledgeResult struct {
	Response  string
	Confident bool
	Detail    string
}

// KnowledgeAgent asks the inference model directly and scores the answer
// with a crude, fast, explainable heuristic: hedging phrases or a very
// short answer mark it not confident. Either signal alone is enough.
type KnowledgeAgent struct {
	chat          ai.ChatModel
	historyWindow int
	temperature   float64
	logger        *slog.Logger
}

// KnowledgeOption is a functional option for configuring a KnowledgeAgent.
type KnowledgeOption func(*KnowledgeAgent)

// WithHistoryWindow sets how many trailing history messages to include.
func WithHistoryWindow(window int) KnowledgeOption {
	return func(a *KnowledgeAgent) {
		if window > 0 {
			a.historyWindow = window
		}
	}
}

// NewKnowledgeAgent creates a knowledge agent.
func NewKnowledgeAgent(chat ai.ChatModel, opts ...KnowledgeOption) (*KnowledgeAgent, error) {
	if chat == nil {
		return nil, ErrChatModelRequired
	}

	agent := &KnowledgeAgent{
		chat:          chat,
		historyWindow: DefaultHistoryWindow,
		temperature:   0.4,
		logger:        slog.Default().With("component", "knowledge-agent"),
	}
	for _, opt := range opts {
		opt(agent)
	}
	return agent, nil
}

// Run asks the model and scores confidence. A provider failure makes
// this source abstain, never fails the pipeline.
func (a *KnowledgeAgent) Run(ctx context.Context, qc *core.QueryContext, bus *trace.Bus) *KnowledgeResult {
	bus.Start(knowledgeAgentName, "asking model directly")

	messages := make([]core.Message, 0, a.historyWindow+2)
	messages = append(messages, core.Message{Role: core.RoleSystem, Content: knowledgeSystemPrompt})
	messages = append(messages, tailMessages(qc.History, a.historyWindow)...)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: qc.Query})

	response, err := a.chat.Chat(ctx, messages, a.temperature)
	if err != nil {
		a.logger.Warn("knowledge query failed", "err", err)
		bus.Error(knowledgeAgentName, fmt.Sprintf("inference unavailable: %v", err))
		return &KnowledgeResult{}
	}

	confident, detail := scoreConfidence(response)
	bus.Emit(trace.Result{
		Agent:          knowledgeAgentName,
		Note:           detail,
		Confident:      confident,
		ResponseLength: len(response),
		At:             now(),
	})

	return &KnowledgeResult{Response: response, Confident: confident, Detail: detail}
}

// scoreConfidence applies the two independent votes against confidence:
// a hedging phrase anywhere in the response, or a trimmed length under
// the minimum.
func scoreConfidence(response string) (bool, string) {
	trimmed := strings.TrimSpace(response)
	lowered := strings.ToLower(trimmed)

	for _, phrase := range hedgePhrases {
		if strings.Contains(lowered, phrase) {
			return false, fmt.Sprintf("response hedges (%q)", phrase)
		}
	}
	if len(trimmed) < minConfidentLength {
		return false, fmt.Sprintf("response too short (%d chars)", len(trimmed))
	}
	return true, "confident answer"
}

// tailMessages returns the last n messages of the history.
func tailMessages(history []core.Message, n int) []core.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
