package pipeline

import "errors"

var (
	// ErrContentRepositoryRequired is returned when no content repository is provided.
	ErrContentRepositoryRequired = errors.New("content repository is required")

	// ErrChunkRepositoryRequired is returned when no chunk repository is provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository is required")

	// ErrQueueRequired is returned when no event queue is provided.
	ErrQueueRequired = errors.New("event queue is required")

	// ErrSourceRequired is returned when no transcript source is provided.
	ErrSourceRequired = errors.New("transcript source is required")

	// ErrEmbedClientRequired is returned when no embedding client is provided.
	ErrEmbedClientRequired = errors.New("embedding client is required")

	// ErrAlreadyRunning is returned when Start is called on a running pipeline.
	ErrAlreadyRunning = errors.New("pipeline is already running")

	// ErrNotRunning is returned when Stop is called on a stopped pipeline.
	ErrNotRunning = errors.New("pipeline is not running")

	// ErrItemInFlight is returned when reprocessing is requested for an item
	// that has not yet reached a terminal status.
	ErrItemInFlight = errors.New("content item is still being processed")
)
