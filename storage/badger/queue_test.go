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

func testEvent(id string) *core.PipelineEvent {
	return &core.PipelineEvent{
		Id:        id,
		Kind:      core.KindExtractRequested,
		ContentId: 1,
		OwnerId:   10,
		SourceRef: "https://example.com/video",
		CreatedAt: time.Now().UTC(),
	}
}

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Queue.Enqueue(ctx, testEvent("ev-1")))

	delivery, err := stores.Queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ev-1", delivery.Event.Id)
	assert.Equal(t, core.KindExtractRequested, delivery.Event.Kind)
	assert.Equal(t, 1, delivery.Attempt)
}

func TestEventQueue_EnqueueInvalid(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	event := testEvent("ev-1")
	event.ContentId = 0
	err = stores.Queue.Enqueue(context.Background(), event)
	assert.ErrorIs(t, err, core.ErrInvalidEvent)
}

func TestEventQueue_DequeueEmpty(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = stores.Queue.Dequeue(context.Background())
	assert.ErrorIs(t, err, storage.ErrQueueEmpty)
}

func TestEventQueue_DeliversOldestFirst(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Queue.Enqueue(ctx, testEvent("ev-first")))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, stores.Queue.Enqueue(ctx, testEvent("ev-second")))

	first, err := stores.Queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ev-first", first.Event.Id)

	second, err := stores.Queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ev-second", second.Event.Id)
}

func TestEventQueue_ClaimedNotRedelivered(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Queue.Enqueue(ctx, testEvent("ev-1")))

	_, err = stores.Queue.Dequeue(ctx)
	require.NoError(t, err)

	// The claimed event is in flight, not ready.
	_, err = stores.Queue.Dequeue(ctx)
	assert.ErrorIs(t, err, storage.ErrQueueEmpty)
}

func TestEventQueue_Ack(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Queue.Enqueue(ctx, testEvent("ev-1")))

	delivery, err := stores.Queue.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, stores.Queue.Ack(ctx, delivery.Event.Id))

	// Acking twice means the claim is gone.
	err = stores.Queue.Ack(ctx, delivery.Event.Id)
	assert.ErrorIs(t, err, storage.ErrNotClaimed)
}

func TestEventQueue_AckUnclaimed(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	err = stores.Queue.Ack(context.Background(), "never-claimed")
	assert.ErrorIs(t, err, storage.ErrNotClaimed)
}

func TestEventQueue_NackReschedules(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Queue.Enqueue(ctx, testEvent("ev-1")))

	delivery, err := stores.Queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivery.Attempt)

	require.NoError(t, stores.Queue.Nack(ctx, delivery.Event.Id, 0))

	redelivered, err := stores.Queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ev-1", redelivered.Event.Id)
	assert.Equal(t, 2, redelivered.Attempt)
}

func TestEventQueue_NackBackoffDelaysRedelivery(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Queue.Enqueue(ctx, testEvent("ev-1")))

	delivery, err := stores.Queue.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, stores.Queue.Nack(ctx, delivery.Event.Id, time.Hour))

	_, err = stores.Queue.Dequeue(ctx)
	assert.ErrorIs(t, err, storage.ErrQueueEmpty)
}

func TestEventQueue_NackDeadLettersAfterMaxAttempts(t *testing.T) {
	stores, err := NewMemoryStores(WithMaxAttempts(2))
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Queue.Enqueue(ctx, testEvent("ev-1")))

	for attempt := 1; attempt <= 2; attempt++ {
		delivery, err := stores.Queue.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, attempt, delivery.Attempt)
		require.NoError(t, stores.Queue.Nack(ctx, delivery.Event.Id, 0))
	}

	// The budget is spent: no redelivery, the event is dead-lettered.
	_, err = stores.Queue.Dequeue(ctx)
	assert.ErrorIs(t, err, storage.ErrQueueEmpty)

	dead, err := stores.Queue.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "ev-1", dead[0].Id)
}

func TestEventQueue_NackUnclaimed(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	err = stores.Queue.Nack(context.Background(), "never-claimed", 0)
	assert.ErrorIs(t, err, storage.ErrNotClaimed)
}

func TestEventQueue_DeadLettersEmpty(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	dead, err := stores.Queue.DeadLetters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dead)
}
