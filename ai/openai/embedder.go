package openai

import (
	"context"
	"log/slog"

	"github.com/calyptra/lectern/ai"
	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	encoder  *tiktoken.Tiktoken
	model    string
	costPerM float64
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.Token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	encoder, err := tiktoken.GetEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		encoder:  encoder,
		model:    config.EmbeddingModel,
		costPerM: config.CostPerMillionTokens,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, *ai.EmbedUsage, error) {
	vectors, usage, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, nil, err
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, usage, nil
	}
	return vectors[0], usage, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in one
// provider request, reporting token usage for cost accounting.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, *ai.EmbedUsage, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, nil, ai.ClassifyProviderError(err)
	}

	return vectors, e.usageFor(texts), nil
}

// usageFor counts tokens with the configured tiktoken encoding and prices
// them at the configured rate.
func (e *Embedder) usageFor(texts []string) *ai.EmbedUsage {
	var tokens int64
	for _, text := range texts {
		tokens += int64(len(e.encoder.Encode(text, nil, nil)))
	}
	return &ai.EmbedUsage{
		Tokens: tokens,
		Cost:   float64(tokens) / 1_000_000 * e.costPerM,
		Model:  e.model,
	}
}
