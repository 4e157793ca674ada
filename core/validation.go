package core

import (
	"fmt"
)

// ValidateContentItem validates a ContentItem according to domain rules.
//
// Validation rules:
//   - SourceRef must not be empty
//   - OwnerId must be set
//   - Status must be a defined pipeline state
//
// NOT validated (populated by pipeline stages):
//   - Transcript (empty until the transcribing stage completes)
//   - Cost and token fields
func ValidateContentItem(item *ContentItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidContentItem)
	}

	if item.SourceRef == "" {
		return fmt.Errorf("%w: %w", ErrInvalidContentItem, ErrEmptySourceRef)
	}

	if item.OwnerId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidContentItem, ErrInvalidOwner)
	}

	if !item.Status.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidContentItem, ErrInvalidStatus)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ContentId must be set
//   - Text must not be empty
//   - Index must not be negative
//   - EndSeconds must not precede StartSeconds
//
// NOT validated (populated by the embedding stage):
//   - Vector (nil until embeddings are generated)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ContentId == 0 {
		return fmt.Errorf("%w: missing content id", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidChunk, chunk.Index)
	}

	if chunk.EndSeconds < chunk.StartSeconds {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidTimeBounds)
	}

	return nil
}

// ValidateChunkSet validates that a chunk set is internally consistent:
// all chunks belong to the same content item and indices are contiguous
// from zero.
func ValidateChunkSet(chunks []*Chunk) error {
	for i, chunk := range chunks {
		if err := ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.Index != i {
			return fmt.Errorf("%w: index %d at position %d, indices must be contiguous from 0",
				ErrInvalidChunk, chunk.Index, i)
		}
		if chunk.ContentId != chunks[0].ContentId {
			return fmt.Errorf("%w: mixed content ids in chunk set", ErrInvalidChunk)
		}
	}
	return nil
}
