package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateContentItem(t *testing.T) {
	valid := &ContentItem{
		OwnerId:   7,
		SourceRef: "https://www.youtube.com/watch?v=abc",
		Status:    StatusPending,
	}
	require.NoError(t, ValidateContentItem(valid))

	t.Run("nil item", func(t *testing.T) {
		assert.ErrorIs(t, ValidateContentItem(nil), ErrInvalidContentItem)
	})

	t.Run("empty source ref", func(t *testing.T) {
		item := *valid
		item.SourceRef = ""
		assert.ErrorIs(t, ValidateContentItem(&item), ErrEmptySourceRef)
	})

	t.Run("missing owner", func(t *testing.T) {
		item := *valid
		item.OwnerId = 0
		assert.ErrorIs(t, ValidateContentItem(&item), ErrInvalidOwner)
	})

	t.Run("undefined status", func(t *testing.T) {
		item := *valid
		item.Status = Status(42)
		assert.ErrorIs(t, ValidateContentItem(&item), ErrInvalidStatus)
	})
}

func TestValidateChunk(t *testing.T) {
	valid := &Chunk{ContentId: 1, Index: 0, Text: "some text", StartSeconds: 0, EndSeconds: 30}
	require.NoError(t, ValidateChunk(valid))

	t.Run("empty text", func(t *testing.T) {
		chunk := *valid
		chunk.Text = ""
		assert.ErrorIs(t, ValidateChunk(&chunk), ErrEmptyChunkText)
	})

	t.Run("end before start", func(t *testing.T) {
		chunk := *valid
		chunk.StartSeconds = 60
		chunk.EndSeconds = 30
		assert.ErrorIs(t, ValidateChunk(&chunk), ErrInvalidTimeBounds)
	})

	t.Run("negative index", func(t *testing.T) {
		chunk := *valid
		chunk.Index = -1
		assert.ErrorIs(t, ValidateChunk(&chunk), ErrInvalidChunk)
	})
}

func TestValidateChunkSet(t *testing.T) {
	mk := func(contentId ID, index int) *Chunk {
		return &Chunk{ContentId: contentId, Index: index, Text: "text", EndSeconds: 1}
	}

	t.Run("contiguous set", func(t *testing.T) {
		assert.NoError(t, ValidateChunkSet([]*Chunk{mk(1, 0), mk(1, 1), mk(1, 2)}))
	})

	t.Run("empty set", func(t *testing.T) {
		assert.NoError(t, ValidateChunkSet(nil))
	})

	t.Run("gap in indices", func(t *testing.T) {
		assert.ErrorIs(t, ValidateChunkSet([]*Chunk{mk(1, 0), mk(1, 2)}), ErrInvalidChunk)
	})

	t.Run("not starting at zero", func(t *testing.T) {
		assert.ErrorIs(t, ValidateChunkSet([]*Chunk{mk(1, 1)}), ErrInvalidChunk)
	})

	t.Run("mixed content ids", func(t *testing.T) {
		assert.ErrorIs(t, ValidateChunkSet([]*Chunk{mk(1, 0), mk(2, 1)}), ErrInvalidChunk)
	})
}
