// Copyright 2026 Calyptra Labs
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
	"strconv"
	"strings"
	"time"

	"github.com/calyptra/lectern"
	"github.com/calyptra/lectern/ai"
	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/search"
	"github.com/calyptra/lectern/storage/badger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env file is fine; flags and real env still apply.
	godotenv.Load() //nolint:errcheck

	app := &cli.App{
		Name:  "lectern",
		Usage: "Transcript knowledge pipeline and semantic retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Submit source references (e.g. YouTube URLs) and process them to completion",
				ArgsUsage: "SOURCE_REF [SOURCE_REF...]",
				Action:    processCommand,
				Flags: append(commonFlags(),
					&cli.DurationFlag{
						Name:  "wait",
						Usage: "How long to wait for processing to finish",
						Value: 10 * time.Minute,
					},
				),
			},
			{
				Name:      "reprocess",
				Usage:     "Re-run chunking and embedding for completed or failed content items",
				ArgsUsage: "CONTENT_ID [CONTENT_ID...]",
				Action:    reprocessCommand,
				Flags: append(commonFlags(),
					&cli.DurationFlag{
						Name:  "wait",
						Usage: "How long to wait for processing to finish",
						Value: 10 * time.Minute,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search the owner's embedded content",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "match-count",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "similarity-threshold",
						Usage: "Minimum raw vector similarity",
						Value: 0.60,
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Bypass the result cache",
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Show an owner's content items and daily usage",
				Action: statsCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "day",
						Usage: "UTC day for usage totals (YYYY-MM-DD)",
						Value: core.UsageDay(time.Now()),
					},
				),
			},
			{
				Name:   "dead-letters",
				Usage:  "List pipeline events that exhausted their retry budget",
				Action: deadLettersCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:     "owner",
			Aliases:  []string{"o"},
			Usage:    "Owner identifier",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"LECTERN_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"LECTERN_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "Embedding provider API token",
			EnvVars: []string{"LECTERN_API_TOKEN"},
		},
		&cli.Float64Flag{
			Name:    "cost-per-million",
			Usage:   "Embedding cost per million tokens, in USD",
			EnvVars: []string{"LECTERN_COST_PER_MILLION"},
		},
	}
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

func openLibrary(c *cli.Context) (*lectern.Library, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithToken(c.String("token")),
		ai.WithCostPerMillionTokens(c.Float64("cost-per-million")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return lectern.NewLibrary(c.String("db"), lectern.WithAIConfig(aiConfig))
}

func processCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one source reference is required")
	}
	owner := core.ID(c.Uint64("owner"))

	library, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer library.Close()

	pipe, err := library.NewPipeline()
	if err != nil {
		return err
	}
	defer pipe.Release()

	if err := pipe.Start(); err != nil {
		return err
	}

	ctx := context.Background()
	ids := make([]core.ID, 0, c.NArg())
	for _, sourceRef := range c.Args().Slice() {
		id, err := pipe.SubmitForProcessing(ctx, owner, sourceRef, "")
		if err != nil {
			return fmt.Errorf("submitting %q: %w", sourceRef, err)
		}
		fmt.Fprintf(os.Stderr, "submitted %s as content %d\n", sourceRef, id)
		ids = append(ids, id)
	}

	return waitForItems(ctx, library, ids, c.Duration("wait"))
}

func reprocessCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one content id is required")
	}

	ids := make([]core.ID, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid content id %q: %w", arg, err)
		}
		ids = append(ids, core.ID(id))
	}

	library, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer library.Close()

	pipe, err := library.NewPipeline()
	if err != nil {
		return err
	}
	defer pipe.Release()

	if err := pipe.Start(); err != nil {
		return err
	}

	ctx := context.Background()
	if err := pipe.Reprocess(ctx, ids...); err != nil {
		return fmt.Errorf("reprocessing: %w", err)
	}

	return waitForItems(ctx, library, ids, c.Duration("wait"))
}

// waitForItems polls until every item reaches a terminal status or the
// deadline passes.
func waitForItems(ctx context.Context, library *lectern.Library, ids []core.ID, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	pending := make(map[core.ID]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	var failed int
	for len(pending) > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %d items", len(pending))
		}
		time.Sleep(time.Second)

		for id := range pending {
			item, err := library.ContentRepository().GetContentItem(ctx, id)
			if err != nil {
				return err
			}
			if !item.Status.Terminal() {
				continue
			}
			delete(pending, id)

			if item.Status == core.StatusFailed {
				failed++
				fmt.Fprintf(os.Stderr, "content %d failed: %s\n", id, item.ErrorMessage)
				continue
			}
			fmt.Fprintf(os.Stderr, "content %d completed: %q (%d embedding tokens, $%.4f)\n",
				id, item.Title, item.EmbeddingTokens, item.EmbeddingCost)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d items failed", failed)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a query is required")
	}
	query := strings.Join(c.Args().Slice(), " ")
	owner := core.ID(c.Uint64("owner"))

	library, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer library.Close()

	searcher, err := library.NewSearcher()
	if err != nil {
		return err
	}

	opts := search.DefaultOptions()
	opts.MatchCount = c.Int("match-count")
	opts.SimilarityThreshold = float32(c.Float64("similarity-threshold"))
	if c.Bool("no-cache") {
		opts.EnableCache = false
	}

	results, err := searcher.Search(context.Background(), owner, query, opts)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no relevant content found")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%2d. content %d chunk %d  score=%.3f sim=%.3f  [%s - %s]\n",
			i+1, result.Chunk.ContentId, result.Chunk.Index,
			result.Score, result.Similarity,
			formatSeconds(result.Chunk.StartSeconds), formatSeconds(result.Chunk.EndSeconds))
		fmt.Printf("    %s\n", excerpt(result.Chunk.Text, 200))
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	owner := core.ID(c.Uint64("owner"))

	library, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer library.Close()

	ctx := context.Background()
	items, err := library.ContentRepository().GetContentItemsByOwner(ctx, owner)
	if err != nil {
		return err
	}

	fmt.Printf("content items: %d\n", len(items))
	for _, item := range items {
		fmt.Printf("  %d  %-12s %-40q views=%d tokens=%d cost=$%.4f\n",
			item.Id, item.Status, excerpt(item.Title, 38),
			item.ViewCount, item.EmbeddingTokens, item.EmbeddingCost+item.TranscriptCost)
	}

	records, err := library.UsageRepository().GetUsage(ctx, owner, c.String("day"))
	if err != nil {
		return err
	}
	fmt.Printf("usage for %s:\n", c.String("day"))
	if len(records) == 0 {
		fmt.Println("  none")
	}
	for _, record := range records {
		fmt.Printf("  %-14s tokens=%d cost=$%.4f\n", record.Operation, record.Tokens, record.Cost)
	}
	return nil
}

func deadLettersCommand(c *cli.Context) error {
	stores, err := badger.NewStores(c.String("db"))
	if err != nil {
		return err
	}
	defer stores.Close()

	events, err := stores.Queue.DeadLetters(context.Background())
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Println("no dead-lettered events")
		return nil
	}
	for _, event := range events {
		fmt.Printf("%s  %-20s content=%d owner=%d created=%s\n",
			event.Id, event.Kind, event.ContentId, event.OwnerId,
			event.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func formatSeconds(s float64) string {
	d := time.Duration(s * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
