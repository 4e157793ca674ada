package storage

import (
	"context"
	"time"

	"github.com/calyptra/lectern/core"
)

// SimilarityOptions restricts a vector similarity search.
type SimilarityOptions struct {
	// MinSimilarity filters out matches below this score.
	MinSimilarity float32

	// Limit caps the number of returned matches (highest first).
	Limit int

	// OwnerId restricts the search to one owner's content set. Zero means
	// no owner restriction.
	OwnerId core.ID

	// ContentIds restricts the search to the given content items. Nil
	// means no content restriction.
	ContentIds []core.ID
}

// ContentRepository provides operations for managing content items.
// Implementations must be thread-safe and support concurrent access.
type ContentRepository interface {
	// UpsertContentItem atomically inserts or overwrites a content item by
	// its ID. Sets InsertedAt on first write and UpdatedAt on every write.
	UpsertContentItem(ctx context.Context, item *core.ContentItem) (*core.ContentItem, error)

	// GetContentItem retrieves a single content item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	GetContentItem(ctx context.Context, id core.ID) (*core.ContentItem, error)

	// GetContentItemsByOwner retrieves all content items for an owner.
	GetContentItemsByOwner(ctx context.Context, owner core.ID) ([]*core.ContentItem, error)

	// TransitionStatus conditionally moves an item to the given status,
	// guarded by the pipeline state machine: the current status must
	// permit the transition. mutate, if non-nil, is applied to the item
	// inside the same transaction so transcript writes and status updates
	// are atomic with respect to readers. A transition to the current
	// status is an idempotent no-op update.
	// Returns ErrStatusConflict if the state machine forbids the move.
	TransitionStatus(ctx context.Context, id core.ID, to core.Status, mutate func(*core.ContentItem) error) (*core.ContentItem, error)

	// DeleteContentItem removes a content item and all of its chunks.
	// Returns ErrNotFound if the item doesn't exist.
	DeleteContentItem(ctx context.Context, id core.ID) error

	// Close releases repository resources.
	Close() error
}

// ChunkRepository provides operations for managing chunk sets and vector
// similarity search over them.
type ChunkRepository interface {
	// ReplaceChunks transactionally replaces the full chunk set for a
	// content item: old chunks are deleted and new ones inserted in one
	// transaction, so concurrent readers see either the old complete set
	// or the new complete set, never a mix.
	ReplaceChunks(ctx context.Context, contentId core.ID, chunks []*core.Chunk) error

	// GetChunks retrieves the chunk set for a content item, ordered by index.
	GetChunks(ctx context.Context, contentId core.ID) ([]*core.Chunk, error)

	// SetChunkVectors writes one vector per chunk, in index order, in a
	// single transaction. The vector count must match the chunk count;
	// nothing is written otherwise.
	SetChunkVectors(ctx context.Context, contentId core.ID, vectors [][]float32) error

	// DeleteChunks removes all chunks for a content item.
	DeleteChunks(ctx context.Context, contentId core.ID) error

	// FindSimilar finds chunks similar to the given vector, restricted by
	// the options. Chunks without vectors are skipped. Results are ordered
	// by similarity (highest first).
	FindSimilar(ctx context.Context, vector []float32, opts SimilarityOptions) ([]*core.SimilarityMatch, error)

	// Close releases repository resources.
	Close() error
}

// CacheStore is a key-value store with per-entry TTL and prefix-based
// bulk invalidation. Writes are last-writer-wins; entries expire after
// their TTL and behave as misses afterwards.
type CacheStore interface {
	// Get returns the value for a key.
	// Returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeleteByPrefix removes every key with the given prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Keys lists the live keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases store resources.
	Close() error
}

// Delivery is one delivery attempt of a pipeline event.
type Delivery struct {
	Event   *core.PipelineEvent
	Attempt int // 1-based
}

// EventQueue is a durable at-least-once event transport. Events are
// validated at enqueue time; redeliveries carry an attempt count and are
// dead-lettered once the per-event retry budget is exhausted. No ordering
// is guaranteed across different content identifiers.
type EventQueue interface {
	// Enqueue durably appends events for delivery. Malformed events are
	// rejected with core.ErrInvalidEvent.
	Enqueue(ctx context.Context, events ...*core.PipelineEvent) error

	// Dequeue claims the next ready event for processing.
	// Returns ErrQueueEmpty when no event is ready.
	Dequeue(ctx context.Context) (*Delivery, error)

	// Ack marks a claimed event as processed and removes it.
	Ack(ctx context.Context, eventId string) error

	// Nack returns a claimed event for redelivery after the given backoff.
	// Once the event's attempt count reaches the queue's maximum it is
	// moved to the dead-letter set instead.
	Nack(ctx context.Context, eventId string, backoff time.Duration) error

	// DeadLetters lists events that exhausted their retry budget.
	DeadLetters(ctx context.Context) ([]*core.PipelineEvent, error)

	// Close releases queue resources.
	Close() error
}

// UsageRepository records token/cost metrics per owner per day, and the
// per-owner view history that feeds popularity and personalization
// ranking boosts.
type UsageRepository interface {
	// RecordUsage accumulates tokens and cost into the record's
	// owner/day/operation bucket.
	RecordUsage(ctx context.Context, record *core.UsageRecord) error

	// GetUsage retrieves the usage buckets for an owner on a UTC day.
	GetUsage(ctx context.Context, owner core.ID, day string) ([]*core.UsageRecord, error)

	// RecordView notes that an owner consumed a content item and bumps the
	// item's aggregate view count.
	RecordView(ctx context.Context, owner, contentId core.ID) error

	// GetViewedContent lists the content items an owner has consumed.
	GetViewedContent(ctx context.Context, owner core.ID) ([]core.ID, error)

	// Close releases repository resources.
	Close() error
}
