package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "transcribing", StatusTranscribing.String())
	assert.Equal(t, "processing", StatusProcessing.String())
	assert.Equal(t, "embedding", StatusEmbedding.String())
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "failed", StatusFailed.String())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusTranscribing.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusEmbedding.Terminal())
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to transcribing", StatusPending, StatusTranscribing, true},
		{"transcribing to processing", StatusTranscribing, StatusProcessing, true},
		{"processing to embedding", StatusProcessing, StatusEmbedding, true},
		{"embedding to completed", StatusEmbedding, StatusCompleted, true},
		{"pending to completed skips stages", StatusPending, StatusCompleted, false},
		{"pending to embedding skips stages", StatusPending, StatusEmbedding, false},
		{"completed to pending", StatusCompleted, StatusPending, false},
		{"backward processing to transcribing", StatusProcessing, StatusTranscribing, false},

		// Redelivery of an event while already in the stage is a no-op
		// status update, not an error.
		{"idempotent transcribing", StatusTranscribing, StatusTranscribing, true},
		{"idempotent processing", StatusProcessing, StatusProcessing, true},
		{"idempotent embedding", StatusEmbedding, StatusEmbedding, true},

		// Any non-terminal state may fail.
		{"pending to failed", StatusPending, StatusFailed, true},
		{"transcribing to failed", StatusTranscribing, StatusFailed, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"embedding to failed", StatusEmbedding, StatusFailed, true},
		{"completed to failed", StatusCompleted, StatusFailed, false},

		// Explicit reprocessing re-enters from terminal states.
		{"reprocess completed at chunking", StatusCompleted, StatusProcessing, true},
		{"reprocess completed at transcription", StatusCompleted, StatusTranscribing, true},
		{"reprocess failed at chunking", StatusFailed, StatusProcessing, true},
		{"reprocess failed at transcription", StatusFailed, StatusTranscribing, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusFailed.Valid())
	assert.False(t, Status(0).Valid())
	assert.False(t, Status(100).Valid())
}
