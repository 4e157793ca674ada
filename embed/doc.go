// Package embed wraps an ai.Embedder with batching, per-batch retry, and
// aggregated cost accounting.
//
// The client partitions chunk text into provider-sized batches and retries
// failed batches individually with exponential backoff. No partial success
// is ever reported: if any batch exhausts its retries the whole operation
// fails, and the caller decides what to do with the item.
package embed
