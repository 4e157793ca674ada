// Package pipeline provides orchestration for processing content items.
//
// The Pipeline type drives items through the processing stages:
//   - Fetching the transcript from the content source
//   - Splitting the transcript into overlapping chunks
//   - Generating embeddings for the chunk set
//
// Stages communicate through a durable event queue and are idempotent, so
// a redelivered event re-derives the same state instead of duplicating
// work. Events are processed concurrently by a worker pool; work on a
// single content item is serialized, and provider calls are rate-limited
// per owner. Transient failures are redelivered with exponential backoff
// until the delivery budget runs out; permanent failures mark the item
// failed with a diagnostic message.
package pipeline
