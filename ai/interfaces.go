package ai

import "context"

// EmbedUsage reports provider-side resource consumption for one
// embedding request. Token counts come from the provider's tokenizer;
// cost is derived from the configured per-token pricing.
type EmbedUsage struct {
	Tokens int64
	Cost   float64
	Model  string
}

// Add accumulates another usage report into u.
func (u *EmbedUsage) Add(other *EmbedUsage) {
	if other == nil {
		return
	}
	u.Tokens += other.Tokens
	u.Cost += other.Cost
	if u.Model == "" {
		u.Model = other.Model
	}
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, *EmbedUsage, error)

	// EmbedTexts generates vector embeddings for multiple text strings in
	// one provider request. The returned slice contains embeddings in the
	// same order as the input texts. No partial results: an error means no
	// vectors were produced for this request.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, *EmbedUsage, error)
}
