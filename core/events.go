package core

import (
	"fmt"
	"time"
)

// EventKind tags the pipeline event variants. Each kind carries a fixed,
// validated payload; malformed events are rejected at enqueue time rather
// than trusted at each consumer.
type EventKind int

const (
	// KindExtractRequested asks the pipeline to obtain a transcript for a
	// content item. Payload: SourceRef.
	KindExtractRequested EventKind = iota + 1
	// KindTranscriptReady signals that a transcript is durably persisted
	// and the item should be chunked. No extra payload: the handler reads
	// the transcript from storage so redeliveries stay idempotent.
	KindTranscriptReady
	// KindChunksReady signals that the full chunk set is durably persisted
	// and embeddings should be generated.
	KindChunksReady
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case KindExtractRequested:
		return "extract_requested"
	case KindTranscriptReady:
		return "transcript_ready"
	case KindChunksReady:
		return "chunks_ready"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a defined event kind.
func (k EventKind) Valid() bool {
	return k >= KindExtractRequested && k <= KindChunksReady
}

// PipelineEvent is an immutable message that triggers one pipeline stage.
// Retries are new delivery attempts of the same logical event; the delivery
// attempt count lives in the queue envelope, never on the event itself.
type PipelineEvent struct {
	Id        string // UUID assigned at creation
	Kind      EventKind
	ContentId ID
	OwnerId   ID
	SourceRef string // Set only for KindExtractRequested
	Reprocess bool   // True when the event belongs to an explicit reprocessing run
	CreatedAt time.Time
}

// Validate checks the event envelope and the per-kind payload schema.
func (e *PipelineEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: event is nil", ErrInvalidEvent)
	}
	if e.Id == "" {
		return fmt.Errorf("%w: missing event id", ErrInvalidEvent)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidEvent, e.Kind)
	}
	if e.ContentId == 0 {
		return fmt.Errorf("%w: missing content id", ErrInvalidEvent)
	}
	if e.OwnerId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, ErrInvalidOwner)
	}
	switch e.Kind {
	case KindExtractRequested:
		if e.SourceRef == "" {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, ErrEmptySourceRef)
		}
	case KindTranscriptReady, KindChunksReady:
		if e.SourceRef != "" {
			return fmt.Errorf("%w: unexpected source ref for %s", ErrInvalidEvent, e.Kind)
		}
	}
	return nil
}
