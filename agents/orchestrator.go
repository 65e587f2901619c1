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
	"regexp"
	"strings"

	"github.com/poiesic/deepresearch/core"
	"github.com/poiesic/deepresearch/trace"
)

// Intent classifies what the user's message asks the pipeline to do.
type Intent string

const (
	// IntentQuestion is a question to be answered through the source ladder.
	IntentQuestion Intent = "question"
	// IntentURLIngestion is a request to pull one or more URLs into the
	// document store.
	IntentURLIngestion Intent = "url_ingestion"
)

// urlPattern matches URL-shaped substrings in a message.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\])]+`)

// ingestionVerbs is the small fixed vocabulary that marks a message
// containing a URL as an ingestion request regardless of its length.
var ingestionVerbs = map[string]bool{
	"read": true, "ingest": true, "process": true, "analyze": true,
	"summarize": true, "learn": true, "store": true, "save": true,
	"index": true, "load": true, "add": true,
}

// ClassifyIntent scans the message for URLs. With URLs present, a short
// remainder (five words or fewer) or any ingestion verb in the remainder
// classifies the message as an ingestion request. The verb check
// deliberately overrides length; long analytical questions that use one
// of the verbs will be misclassified, which is accepted for now.
func ClassifyIntent(message string) (Intent, []string) {
	urls := urlPattern.FindAllString(message, -1)
	if len(urls) == 0 {
		return IntentQuestion, nil
	}

	remainder := urlPattern.ReplaceAllString(message, " ")
	words := strings.Fields(remainder)
	if len(words) <= 5 {
		return IntentURLIngestion, urls
	}
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:\"'()"))
		if ingestionVerbs[cleaned] {
			return IntentURLIngestion, urls
		}
	}
	return IntentQuestion, urls
}

// Outcome is what one orchestrated query produced.
type Outcome struct {
	Intent  Intent
	Answer  string
	Sources []string
}

// Orchestrator runs the decision ladder: semantic store first, then the
// model's own knowledge, then live web search, each stage consulted only
// when the previous one votes no. Synthesis always runs last for
// questions; ingestion requests bypass the ladder entirely. No stage is
// ever retried within one query.
type Orchestrator struct {
	retrieval *RetrievalAgent
	knowledge *KnowledgeAgent
	webSearch *WebSearchAgent
	synthesis *SynthesisAgent
	ingestion *IngestionAgent
	logger    *slog.Logger
}

// NewOrchestrator creates the orchestrator over its five agents.
func NewOrchestrator(retrieval *RetrievalAgent, knowledge *KnowledgeAgent, webSearch *WebSearchAgent, synthesis *SynthesisAgent, ingestion *IngestionAgent) (*Orchestrator, error) {
	if retrieval == nil || knowledge == nil || webSearch == nil || synthesis == nil || ingestion == nil {
		return nil, ErrAgentRequired
	}

	return &Orchestrator{
		retrieval: retrieval,
		knowledge: knowledge,
		webSearch: webSearch,
		synthesis: synthesis,
		ingestion: ingestion,
		logger:    slog.Default().With("component", "orchestrator"),
	}, nil
}

// Run classifies the message and executes the matching flow. The caller
// owns the bus lifecycle; Run emits but never closes.
func (o *Orchestrator) Run(ctx context.Context, qc *core.QueryContext, bus *trace.Bus) (*Outcome, error) {
	if strings.TrimSpace(qc.Query) == "" {
		return nil, ErrEmptyQuery
	}

	intent, urls := ClassifyIntent(qc.Query)
	bus.Emit(trace.PlanStep{
		Note:   fmt.Sprintf("classified as %s", intent),
		Intent: string(intent),
		At:     now(),
	})

	if intent == IntentURLIngestion {
		return o.runIngestion(ctx, urls, bus), nil
	}
	return o.runQuestion(ctx, qc, bus), nil
}

// runIngestion ingests each URL independently, in message order, with
// one confirmation block streamed per URL.
func (o *Orchestrator) runIngestion(ctx context.Context, urls []string, bus *trace.Bus) *Outcome {
	var answer strings.Builder
	var sources []string

	for _, pageURL := range urls {
		result := o.ingestion.IngestURL(ctx, pageURL, bus)

		var block string
		switch {
		case result.Err != nil:
			block = fmt.Sprintf("Could not ingest %s: %v\n\n", pageURL, result.Err)
		case result.Title != "":
			block = fmt.Sprintf("Ingested %q from %s (%d chunks stored).\n\n", result.Title, pageURL, result.ChunksStored)
			sources = append(sources, pageURL)
		default:
			block = fmt.Sprintf("Ingested %s (%d chunks stored).\n\n", pageURL, result.ChunksStored)
			sources = append(sources, pageURL)
		}
		bus.Token(block)
		answer.WriteString(block)
	}

	bus.StreamEnd()
	return &Outcome{
		Intent:  IntentURLIngestion,
		Answer:  strings.TrimSpace(answer.String()),
		Sources: sources,
	}
}

// runQuestion walks the ladder. Partial vector results stay in the
// bundle even when insufficient; they are still useful context.
func (o *Orchestrator) runQuestion(ctx context.Context, qc *core.QueryContext, bus *trace.Bus) *Outcome {
	bundle := &core.SourceBundle{}

	retrieved := o.retrieval.Run(ctx, qc, bus)
	bundle.VectorResults = retrieved.Items

	if retrieved.Sufficient {
		bus.PlanStep("semantic store sufficient, synthesizing from stored results")
	} else {
		bus.PlanStep("semantic store insufficient, asking model knowledge")

		known := o.knowledge.Run(ctx, qc, bus)
		if known.Confident {
			bundle.KnowledgeResponse = known.Response
			bus.PlanStep("model knowledge confident, synthesizing")
		} else {
			// Keep an unconfident answer as context; it may still help.
			bundle.KnowledgeResponse = known.Response
			bus.PlanStep(fmt.Sprintf("model knowledge unconvincing (%s), searching the web", known.Detail))

			searched := o.webSearch.Run(ctx, qc.Query, bus)
			bundle.WebResults = searched.Results
			if searched.Success {
				bus.PlanStep("web results gathered, synthesizing")
			} else {
				bus.PlanStep("web search came up empty, synthesizing from what we have")
			}
		}
	}

	result := o.synthesis.Run(ctx, qc, bundle, bus)
	return &Outcome{
		Intent:  IntentQuestion,
		Answer:  result.Answer,
		Sources: result.Sources,
	}
}
