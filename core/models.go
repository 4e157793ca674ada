package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs. Content items derive
// their ID from the source reference, so re-submitting the same video is idempotent.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TranscriptMethod identifies how a transcript was obtained.
type TranscriptMethod int

const (
	// TranscriptMethodCaptions represents free caption-based extraction.
	TranscriptMethodCaptions TranscriptMethod = iota + 1
	// TranscriptMethodSpeechToText represents paid speech-to-text extraction.
	TranscriptMethodSpeechToText
)

// ContentItem represents one unit of ingested material (e.g., a video)
// tracked through the processing pipeline.
type ContentItem struct {
	Id              ID
	OwnerId         ID
	SourceRef       string // External reference, e.g. a video URL or object-store key
	Title           string
	Transcript      string         // Empty until the transcribing stage completes
	Segments        []TimedSegment // Time alignment for the transcript; empty when the source has none
	Status          Status
	ErrorMessage    string // Populated only when Status is StatusFailed
	DurationSeconds float64
	ViewCount       int64 // Aggregate view/usage count, feeds the popularity boost
	Method          TranscriptMethod
	TranscriptCost  float64 // Cost of transcript extraction (0 for captions)
	EmbeddingTokens int64   // Tokens consumed by the embedding stage
	EmbeddingCost   float64
	EmbeddingModel  string
	InsertedAt      time.Time
	UpdatedAt       time.Time
	ProcessedAt     time.Time // When the item last reached a terminal state
}

// Chunk is an ordered slice of a ContentItem's transcript, the unit of
// embedding and retrieval. Indices are contiguous starting at 0 for a
// given content identifier.
type Chunk struct {
	ContentId    ID
	OwnerId      ID
	Index        int
	Text         string
	StartSeconds float64
	EndSeconds   float64
	WordCount    int
	Vector       []float32 // Embedding vector, nil until the embedding stage runs
}

// TimedSegment is a time-aligned piece of a transcript, as produced by
// caption tracks or speech-to-text segment timings.
type TimedSegment struct {
	Text         string
	StartSeconds float64
	EndSeconds   float64
}

// SimilarityMatch represents a chunk match from vector similarity search.
type SimilarityMatch struct {
	Chunk      *Chunk
	Similarity float32
}

// SearchResult represents a ranked retrieval result. Score is the combined
// ranking score; Similarity is the raw vector similarity it started from.
type SearchResult struct {
	Chunk      Chunk
	Score      float32
	Similarity float32
}

// UsageRecord accumulates token and cost metrics per owner per day.
type UsageRecord struct {
	OwnerId   ID
	Day       string // UTC day in "2006-01-02" form
	Operation string // "embedding" or "transcription"
	Tokens    int64
	Cost      float64
	UpdatedAt time.Time
}

// UsageDay returns the UTC day bucket for a usage record.
func UsageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
