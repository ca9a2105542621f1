package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/futig/doc-chat/internal/config"
	"github.com/futig/doc-chat/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(ttl time.Duration, maxEntries int) *StateStore {
	return NewStateStore(config.StateConfig{
		TTL:             ttl,
		CleanupInterval: time.Minute,
		MaxEntries:      maxEntries,
	})
}

func TestStateStore_LastBucketIsPerClient(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Hour, 10)

	require.NoError(t, store.SetLastBucket(ctx, "alice", "bucket-a"))
	require.NoError(t, store.SetLastBucket(ctx, "bob", "bucket-b"))
	require.NoError(t, store.SetLastBucket(ctx, "alice", "bucket-c"))

	assert.Equal(t, "bucket-c", store.GetLastBucket(ctx, "alice"))
	assert.Equal(t, "bucket-b", store.GetLastBucket(ctx, "bob"))
	assert.Empty(t, store.GetLastBucket(ctx, "carol"))

	assert.ErrorIs(t, store.SetLastBucket(ctx, "", "x"), entity.ErrMissingField)
}

func TestStateStore_UploadStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Hour, 10)

	_, err := store.GetUploadStatus(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	want := entity.UploadStatus{Status: entity.UploadStatusProcessing, Step: entity.UploadStepExtracting, Progress: 25}
	require.NoError(t, store.SetUploadStatus(ctx, "u1", want))

	got, err := store.GetUploadStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestStateStore_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(20*time.Millisecond, 10)

	require.NoError(t, store.SetLastBucket(ctx, "alice", "bucket-a"))
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, store.GetLastBucket(ctx, "alice"))
}

func TestStateStore_BoundedEvictsSoonestExpiring(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Hour, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SetLastBucket(ctx, fmt.Sprintf("client-%d", i), "bucket"))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, store.SetLastBucket(ctx, "client-3", "bucket"))

	assert.Equal(t, 3, store.Len())
	assert.Empty(t, store.GetLastBucket(ctx, "client-0"), "oldest entry should be evicted")
	assert.Equal(t, "bucket", store.GetLastBucket(ctx, "client-3"))

	// Overwriting an existing key never evicts
	require.NoError(t, store.SetLastBucket(ctx, "client-3", "other"))
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, "bucket", store.GetLastBucket(ctx, "client-1"))
}
