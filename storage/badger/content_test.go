package badger

import (
	"context"
	"testing"
	"time"

	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(id, owner core.ID) *core.ContentItem {
	return &core.ContentItem{
		Id:        id,
		OwnerId:   owner,
		SourceRef: "https://example.com/video",
		Title:     "Lecture",
		Status:    core.StatusPending,
	}
}

func TestUpsertContentItem_InsertAndGet(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	item, err := stores.Content.UpsertContentItem(ctx, testItem(1, 10))
	require.NoError(t, err)
	assert.False(t, item.InsertedAt.IsZero())
	assert.False(t, item.UpdatedAt.IsZero())

	got, err := stores.Content.GetContentItem(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.ID(1), got.Id)
	assert.Equal(t, core.ID(10), got.OwnerId)
	assert.Equal(t, "Lecture", got.Title)
	assert.Equal(t, core.StatusPending, got.Status)
}

func TestUpsertContentItem_PreservesInsertedAt(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	first, err := stores.Content.UpsertContentItem(ctx, testItem(1, 10))
	require.NoError(t, err)
	insertedAt := first.InsertedAt

	time.Sleep(5 * time.Millisecond)

	updated := testItem(1, 10)
	updated.Title = "Lecture (revised)"
	second, err := stores.Content.UpsertContentItem(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, insertedAt, second.InsertedAt)
	assert.True(t, second.UpdatedAt.After(insertedAt))

	got, err := stores.Content.GetContentItem(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Lecture (revised)", got.Title)
}

func TestUpsertContentItem_Invalid(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = stores.Content.UpsertContentItem(context.Background(), &core.ContentItem{})
	assert.ErrorIs(t, err, core.ErrInvalidContentItem)
}

func TestGetContentItem_NotFound(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = stores.Content.GetContentItem(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetContentItemsByOwner(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	for _, id := range []core.ID{1, 2, 3} {
		_, err := stores.Content.UpsertContentItem(ctx, testItem(id, 10))
		require.NoError(t, err)
	}
	_, err = stores.Content.UpsertContentItem(ctx, testItem(4, 20))
	require.NoError(t, err)

	items, err := stores.Content.GetContentItemsByOwner(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	for _, item := range items {
		assert.Equal(t, core.ID(10), item.OwnerId)
	}

	other, err := stores.Content.GetContentItemsByOwner(ctx, 30)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTransitionStatus_ForwardPath(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	_, err = stores.Content.UpsertContentItem(ctx, testItem(1, 10))
	require.NoError(t, err)

	for _, to := range []core.Status{
		core.StatusTranscribing,
		core.StatusProcessing,
		core.StatusEmbedding,
		core.StatusCompleted,
	} {
		item, err := stores.Content.TransitionStatus(ctx, 1, to, nil)
		require.NoError(t, err, "transition to %s", to)
		assert.Equal(t, to, item.Status)
	}

	got, err := stores.Content.GetContentItem(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, got.Status)
	assert.False(t, got.ProcessedAt.IsZero())
}

func TestTransitionStatus_Conflict(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	_, err = stores.Content.UpsertContentItem(ctx, testItem(1, 10))
	require.NoError(t, err)

	// pending -> embedding skips two stages; the state machine forbids it.
	_, err = stores.Content.TransitionStatus(ctx, 1, core.StatusEmbedding, nil)
	assert.ErrorIs(t, err, storage.ErrStatusConflict)

	got, err := stores.Content.GetContentItem(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, got.Status)
}

func TestTransitionStatus_MutateAtomicWithStatus(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	_, err = stores.Content.UpsertContentItem(ctx, testItem(1, 10))
	require.NoError(t, err)

	_, err = stores.Content.TransitionStatus(ctx, 1, core.StatusTranscribing, nil)
	require.NoError(t, err)

	item, err := stores.Content.TransitionStatus(ctx, 1, core.StatusProcessing, func(it *core.ContentItem) error {
		it.Transcript = "hello world"
		it.Method = core.TranscriptMethodCaptions
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusProcessing, item.Status)
	assert.Equal(t, "hello world", item.Transcript)

	got, err := stores.Content.GetContentItem(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Transcript)
	assert.Equal(t, core.TranscriptMethodCaptions, got.Method)
}

func TestTransitionStatus_FailedRecordsProcessedAt(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	_, err = stores.Content.UpsertContentItem(ctx, testItem(1, 10))
	require.NoError(t, err)

	item, err := stores.Content.TransitionStatus(ctx, 1, core.StatusFailed, func(it *core.ContentItem) error {
		it.ErrorMessage = "no captions"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, item.Status)
	assert.Equal(t, "no captions", item.ErrorMessage)
	assert.False(t, item.ProcessedAt.IsZero())
}

func TestTransitionStatus_NotFound(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = stores.Content.TransitionStatus(context.Background(), 404, core.StatusTranscribing, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteContentItem_CascadesChunks(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	_, err = stores.Content.UpsertContentItem(ctx, testItem(1, 10))
	require.NoError(t, err)

	chunks := []*core.Chunk{
		{ContentId: 1, OwnerId: 10, Index: 0, Text: "part one", WordCount: 2},
		{ContentId: 1, OwnerId: 10, Index: 1, Text: "part two", WordCount: 2},
	}
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, 1, chunks))

	require.NoError(t, stores.Content.DeleteContentItem(ctx, 1))

	_, err = stores.Content.GetContentItem(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	remaining, err := stores.Chunks.GetChunks(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// The owner index entry goes with the item.
	items, err := stores.Content.GetContentItemsByOwner(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteContentItem_NotFound(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	err = stores.Content.DeleteContentItem(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
