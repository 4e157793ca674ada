package transcript

import (
	"context"

	"github.com/calyptra/lectern/core"
)

// Transcript is the result of extracting spoken text from a content item.
type Transcript struct {
	Text            string
	Segments        []core.TimedSegment // Time-aligned pieces; may be empty
	Method          core.TranscriptMethod
	Cost            float64 // Extraction cost; 0 for caption-based methods
	DurationSeconds float64
	Title           string
}

// Source obtains a transcript for a content reference. Multiple
// underlying methods exist (free caption extraction, paid speech-to-text);
// the pipeline treats them as a single capability with a cost tag.
// Implementations must be thread-safe for concurrent use.
type Source interface {
	// Fetch returns the transcript for the given source reference.
	// Returns ErrNoTranscript if the source has no extractable speech
	// content; that is a permanent failure, never retried.
	Fetch(ctx context.Context, sourceRef string) (*Transcript, error)
}
