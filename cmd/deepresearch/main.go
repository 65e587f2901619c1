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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/poiesic/deepresearch"
	"github.com/poiesic/deepresearch/ai"
	"github.com/poiesic/deepresearch/trace"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "deepresearch",
		Usage: "Answer questions from a semantic cache, model knowledge, and live web search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Run one question through the research pipeline",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append(providerFlags(),
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the data directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "conversation",
						Usage: "Conversation ID to continue; a new one is created when omitted",
					},
					&cli.BoolFlag{
						Name:  "show-trace",
						Usage: "Print progress events to stderr while streaming the answer",
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a local PDF into the document collection",
				ArgsUsage: "FILE.pdf",
				Action:    ingestCommand,
				Flags: append(providerFlags(),
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the data directory",
						Required: true,
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Print per-collection document counts",
				Action: statsCommand,
				Flags: append(providerFlags(),
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the data directory",
						Required: true,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func providerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL for embeddings and inference",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "inference-model",
			Usage: "Inference model name",
			Value: "qwen2.5:3b",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "API token for the primary host",
			Value: "none",
		},
		&cli.StringFlag{
			Name:  "fallback-host",
			Usage: "Secondary inference host tried on retriable primary failures",
		},
		&cli.StringFlag{
			Name:  "fallback-model",
			Usage: "Model name on the fallback host",
		},
		&cli.StringFlag{
			Name:    "fallback-token",
			Usage:   "API token for the fallback host",
			EnvVars: []string{"DEEPRESEARCH_FALLBACK_TOKEN"},
		},
	}
}

func openPlatform(c *cli.Context) (*deepresearch.Platform, error) {
	config := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithInferenceModel(c.String("inference-model")),
		ai.WithToken(c.String("token")),
	)
	if c.String("fallback-host") != "" {
		ai.WithFallback(
			c.String("fallback-host"),
			c.String("fallback-model"),
			c.String("fallback-token"),
		)(config)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return deepresearch.NewPlatform(c.String("data"), deepresearch.WithAIConfig(config))
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	conversationID := c.String("conversation")
	if conversationID == "" {
		conversationID = deepresearch.NewConversationID()
		fmt.Fprintf(os.Stderr, "conversation: %s\n", conversationID)
	}

	research, err := platform.Ask(context.Background(), conversationID, question)
	if err != nil {
		return err
	}

	showTrace := c.Bool("show-trace")
	for event := range research.Events() {
		switch e := event.(type) {
		case trace.Token:
			fmt.Print(e.Text)
		case trace.StreamEnd:
			fmt.Println()
		case trace.Error:
			fmt.Fprintf(os.Stderr, "[%s] error: %s\n", e.Agent, e.Note)
		default:
			if showTrace {
				fmt.Fprintf(os.Stderr, "[%s]\n", describeEvent(event))
			}
		}
	}

	outcome, err := research.Wait()
	if err != nil {
		return err
	}
	if len(outcome.Sources) > 0 {
		fmt.Fprintf(os.Stderr, "sources: %s\n", strings.Join(outcome.Sources, ", "))
	}
	return nil
}

func describeEvent(event trace.Event) string {
	switch e := event.(type) {
	case trace.Start:
		return fmt.Sprintf("%s: %s", e.Agent, e.Note)
	case trace.Progress:
		return fmt.Sprintf("%s: %s", e.Agent, e.Note)
	case trace.Result:
		return fmt.Sprintf("%s: %s", e.Agent, e.Note)
	case trace.PlanStep:
		return fmt.Sprintf("plan: %s", e.Note)
	default:
		return string(event.Kind())
	}
}

func ingestCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("a PDF file path is required")
	}

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	result, _ := platform.IngestPDF(context.Background(), path)
	if result.Err != nil {
		return fmt.Errorf("ingestion failed: %w", result.Err)
	}

	fmt.Printf("stored %d chunks from %s\n", result.ChunksStored, path)
	if result.FailedPages > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d pages could not be read\n", result.FailedPages)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	stats := platform.Stats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%-20s %d\n", name, stats[name])
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
