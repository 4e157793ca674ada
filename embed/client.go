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


package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calyptra/lectern/ai"
	"github.com/calyptra/lectern/core"
)

// Config holds configuration for the batch embedding client.
type Config struct {
	// BatchSize is the number of chunks sent per provider request.
	BatchSize int

	// MaxRetries is the maximum number of attempts per batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff between attempts.
	RetryDelay time.Duration

	// RequestTimeout bounds each provider request. A timed-out request is
	// a transient failure subject to the retry policy.
	RequestTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      50,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// Normalize fills unset fields with their defaults, so a zero Config
// behaves like DefaultConfig.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
}

// Validate checks that the configuration is usable.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.BatchSize < 1 {
		return errors.New("embed config: BatchSize must be positive")
	}
	if c.MaxRetries < 1 {
		return errors.New("embed config: MaxRetries must be positive")
	}
	if c.RetryDelay < 0 {
		return errors.New("embed config: RetryDelay cannot be negative")
	}
	if c.RequestTimeout < 1 {
		return errors.New("embed config: RequestTimeout must be positive")
	}
	return nil
}

// Result is the outcome of a successful batch embedding run. Embeddings
// are in the same order as the input chunks; usage is summed across all
// batches. This is the only place embedding cost accounting happens.
type Result struct {
	Embeddings     [][]float32
	TotalTokens    int64
	TotalCost      float64
	Model          string
	ProcessingTime time.Duration
}

// Client generates embeddings for chunk sets in provider-sized batches.
// Failed batches are retried individually; the whole operation fails if
// any batch exhausts its retries. No partial success is ever reported.
type Client struct {
	embedder ai.Embedder
	config   *Config
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a batch embedding client.
func NewClient(embedder ai.Embedder, config *Config, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		embedder: embedder,
		config:   config,
		logger:   slog.Default().With("component", "embed-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// EmbedChunks generates one normalized vector per input chunk.
// Vectors are returned in input order. Each batch is retried
// independently; exhausting retries on any batch fails the whole call.
func (c *Client) EmbedChunks(ctx context.Context, chunks []*core.Chunk) (*Result, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return c.EmbedTexts(ctx, texts)
}

// EmbedTexts generates one normalized vector per input text.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) (*Result, error) {
	start := time.Now()
	result := &Result{
		Embeddings: make([][]float32, 0, len(texts)),
	}

	batches := (len(texts) + c.config.BatchSize - 1) / c.config.BatchSize
	c.logger.Debug("embedding texts", "texts", len(texts), "batches", batches)

	for i := 0; i < len(texts); i += c.config.BatchSize {
		end := i + c.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		vectors, usage, err := c.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d/%d: %w", i/c.config.BatchSize+1, batches, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d, received %d", ErrCountMismatch, len(batch), len(vectors))
		}

		for _, v := range vectors {
			result.Embeddings = append(result.Embeddings, NormalizeVector(v))
		}
		if usage != nil {
			result.TotalTokens += usage.Tokens
			result.TotalCost += usage.Cost
			if result.Model == "" {
				result.Model = usage.Model
			}
		}
	}

	result.ProcessingTime = time.Since(start)
	return result, nil
}

// EmbedQuery embeds a single query string (a single-item batch) and
// normalizes the vector. Used by the retrieval engine.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, *ai.EmbedUsage, error) {
	var vector []float32
	var usage *ai.EmbedUsage
	err := RetryWithBackoff(ctx, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
		var err error
		vector, usage, err = c.embedder.EmbedText(reqCtx, query)
		return err
	}, c.config.MaxRetries, c.config.RetryDelay)
	if err != nil {
		return nil, nil, err
	}
	return NormalizeVector(vector), usage, nil
}

// embedBatch issues one provider request for a batch, retrying transient
// failures of that batch only.
func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, *ai.EmbedUsage, error) {
	var vectors [][]float32
	var usage *ai.EmbedUsage
	err := RetryWithBackoff(ctx, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
		var err error
		vectors, usage, err = c.embedder.EmbedTexts(reqCtx, batch)
		return err
	}, c.config.MaxRetries, c.config.RetryDelay)
	if err != nil {
		return nil, nil, fmt.Errorf("after %d attempts: %w", c.config.MaxRetries, err)
	}
	return vectors, usage, nil
}
