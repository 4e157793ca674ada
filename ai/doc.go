// Package ai defines the embedding provider abstraction used by the
// processing pipeline and the retrieval engine.
//
// The Embedder interface is the only sanctioned way to reach an embedding
// provider; implementations report token usage and cost alongside the
// vectors so that cost accounting happens in exactly one place.
//
// Subpackages:
//   - openai: implementation for OpenAI-compatible APIs via langchaingo
//   - mock: deterministic test doubles
package ai
