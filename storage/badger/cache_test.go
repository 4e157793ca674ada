package badger

import (
	"context"
	"testing"
	"time"

	"github.com/calyptra/lectern/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStore_SetGet(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Cache.Set(ctx, "q:abc", []byte("payload"), time.Minute))

	value, err := stores.Cache.Get(ctx, "q:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), value)
}

func TestCacheStore_GetMissing(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = stores.Cache.Get(context.Background(), "q:missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCacheStore_TTLExpiry(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Cache.Set(ctx, "q:short", []byte("x"), 50*time.Millisecond))

	_, err = stores.Cache.Get(ctx, "q:short")
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	_, err = stores.Cache.Get(ctx, "q:short")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCacheStore_Overwrite(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Cache.Set(ctx, "q:key", []byte("old"), time.Minute))
	require.NoError(t, stores.Cache.Set(ctx, "q:key", []byte("new"), time.Minute))

	value, err := stores.Cache.Get(ctx, "q:key")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), value)
}

func TestCacheStore_Delete(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Cache.Set(ctx, "q:a", []byte("1"), time.Minute))
	require.NoError(t, stores.Cache.Set(ctx, "q:b", []byte("2"), time.Minute))

	require.NoError(t, stores.Cache.Delete(ctx, "q:a", "q:missing"))

	_, err = stores.Cache.Get(ctx, "q:a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = stores.Cache.Get(ctx, "q:b")
	assert.NoError(t, err)
}

func TestCacheStore_DeleteByPrefix(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Cache.Set(ctx, "idx:c:1:a", nil, time.Minute))
	require.NoError(t, stores.Cache.Set(ctx, "idx:c:1:b", nil, time.Minute))
	require.NoError(t, stores.Cache.Set(ctx, "idx:c:2:a", nil, time.Minute))

	require.NoError(t, stores.Cache.DeleteByPrefix(ctx, "idx:c:1:"))

	_, err = stores.Cache.Get(ctx, "idx:c:1:a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = stores.Cache.Get(ctx, "idx:c:1:b")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = stores.Cache.Get(ctx, "idx:c:2:a")
	assert.NoError(t, err)
}

func TestCacheStore_Keys(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Cache.Set(ctx, "idx:o:5:x", nil, time.Minute))
	require.NoError(t, stores.Cache.Set(ctx, "idx:o:5:y", nil, time.Minute))
	require.NoError(t, stores.Cache.Set(ctx, "q:z", []byte("payload"), time.Minute))

	keys, err := stores.Cache.Keys(ctx, "idx:o:5:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"idx:o:5:x", "idx:o:5:y"}, keys)
}

func TestCacheStore_KeysEmpty(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	keys, err := stores.Cache.Keys(context.Background(), "idx:c:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
