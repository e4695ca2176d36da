package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurtab/nurtab-store/internal/store"
)

// flakyTasksStore fails updates on demand while delegating everything else.
type flakyTasksStore struct {
	TasksStore
	failPut bool
}

func (f *flakyTasksStore) PutTask(ctx context.Context, t *store.Task) error {
	if f.failPut {
		return errors.New("disk full")
	}
	return f.TasksStore.PutTask(ctx, t)
}

func setupTasksState(t *testing.T) (*store.SQLiteStore, *TasksState) {
	t.Helper()
	db := setupStateStore(t)
	state := NewTasksState(db, nil)
	require.NoError(t, state.Init(context.Background()))
	return db, state
}

func TestTasksState_AddAssignsID(t *testing.T) {
	db, state := setupTasksState(t)
	ctx := context.Background()

	task, err := state.Add(ctx, "read surah al-kahf")
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
	assert.False(t, task.Done)

	stored, err := db.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, task.ID, stored[0].ID)
}

func TestTasksState_Toggle(t *testing.T) {
	db, state := setupTasksState(t)
	ctx := context.Background()

	task, err := state.Add(ctx, "morning adhkar")
	require.NoError(t, err)

	require.NoError(t, state.Toggle(ctx, task.ID))
	assert.True(t, state.List()[0].Done)

	require.NoError(t, state.Toggle(ctx, task.ID))
	assert.False(t, state.List()[0].Done)

	// Each flip is persisted, not just mirrored
	stored, err := db.ListTasks(ctx)
	require.NoError(t, err)
	assert.False(t, stored[0].Done)

	assert.ErrorIs(t, state.Toggle(ctx, 999), store.ErrNotFound)
}

func TestTasksState_UpdateRevertsOnStoreFailure(t *testing.T) {
	db := setupStateStore(t)
	ctx := context.Background()

	flaky := &flakyTasksStore{TasksStore: db}
	state := NewTasksState(flaky, nil)
	require.NoError(t, state.Init(ctx))

	task, err := state.Add(ctx, "fast monday")
	require.NoError(t, err)

	flaky.failPut = true
	edited := *task
	edited.Text = "fast thursday"
	require.Error(t, state.Update(ctx, &edited))

	// Mirror converged back on the stored record
	require.Len(t, state.List(), 1)
	assert.Equal(t, "fast monday", state.List()[0].Text)
	assert.Error(t, state.Err())

	flaky.failPut = false
	require.NoError(t, state.Update(ctx, &edited))
	assert.Equal(t, "fast thursday", state.List()[0].Text)
	assert.NoError(t, state.Err())
}

func TestTasksState_DeleteAbsentIsNoop(t *testing.T) {
	_, state := setupTasksState(t)

	require.NoError(t, state.Delete(context.Background(), 42))
	assert.NoError(t, state.Err())
}

func TestTasksState_Delete(t *testing.T) {
	db, state := setupTasksState(t)
	ctx := context.Background()

	task, err := state.Add(ctx, "doomed")
	require.NoError(t, err)
	require.NoError(t, state.Delete(ctx, task.ID))

	assert.Empty(t, state.List())
	stored, err := db.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestTasksState_Stats(t *testing.T) {
	_, state := setupTasksState(t)
	ctx := context.Background()

	assert.Equal(t, TaskStats{}, state.Stats())

	first, err := state.Add(ctx, "one")
	require.NoError(t, err)
	_, err = state.Add(ctx, "two")
	require.NoError(t, err)
	_, err = state.Add(ctx, "three")
	require.NoError(t, err)

	require.NoError(t, state.Toggle(ctx, first.ID))

	stats := state.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 2, stats.Pending)
}

func TestTasksState_MutateBeforeInit(t *testing.T) {
	db := setupStateStore(t)
	state := NewTasksState(db, nil)
	ctx := context.Background()

	_, err := state.Add(ctx, "too early")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, state.Delete(ctx, 1), ErrNotLoaded)
}
