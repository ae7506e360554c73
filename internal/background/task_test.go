package background

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTaskStoreCopies(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	result := &TaskResult{ProcessID: "a", Status: TaskStatusAccepted}
	require.NoError(t, store.Store(ctx, result))

	result.Status = TaskStatusSuccess
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusAccepted, got.Status)

	got.Status = TaskStatusFailure
	again, _ := store.Get(ctx, "a")
	assert.Equal(t, TaskStatusAccepted, again.Status)

	assert.ErrorIs(t, store.Update(ctx, &TaskResult{ProcessID: "missing"}), ErrTaskNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrTaskNotFound)
}

func TestInMemoryTaskStoreCleanupKeepsActive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryTaskStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	old := now.Add(-48 * time.Hour)
	require.NoError(t, store.Store(ctx, &TaskResult{ProcessID: "done", Status: TaskStatusSuccess, CreatedAt: old}))
	require.NoError(t, store.Store(ctx, &TaskResult{ProcessID: "running", Status: TaskStatusProcessing, CreatedAt: old}))
	require.NoError(t, store.Store(ctx, &TaskResult{ProcessID: "recent", Status: TaskStatusFailure, CreatedAt: now}))

	require.NoError(t, store.Cleanup(ctx, 24*time.Hour))

	_, err := store.Get(ctx, "done")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = store.Get(ctx, "running")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "recent")
	assert.NoError(t, err)
}

func TestListNewestFirst(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Store(ctx, &TaskResult{ProcessID: "first", CreatedAt: base}))
	require.NoError(t, store.Store(ctx, &TaskResult{ProcessID: "second", CreatedAt: base.Add(time.Minute)}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].ProcessID)
	assert.Equal(t, "first", list[1].ProcessID)
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, TaskStatusAccepted.Terminal())
	assert.False(t, TaskStatusProcessing.Terminal())
	assert.True(t, TaskStatusSuccess.Terminal())
	assert.True(t, TaskStatusFailure.Terminal())
	assert.True(t, TaskStatusCancelled.Terminal())
}
