// ABOUTME: Tasks facade: add reloads (store assigns ids), update/delete optimistic
// ABOUTME: Derived stats are computed from the in-memory list

package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nurtab/nurtab-store/internal/store"
)

// TaskStats are derived counts over the current in-memory task list.
type TaskStats struct {
	Total     int
	Completed int
	Pending   int
}

// TasksState mirrors the tasks collection in memory.
type TasksState struct {
	store    TasksStore
	migrator Migrating
	logger   *slog.Logger

	mu      sync.RWMutex
	tasks   []*store.Task
	loaded  bool
	lastErr error
}

// NewTasksState creates the tasks facade.
func NewTasksState(st TasksStore, migrator Migrating) *TasksState {
	return &TasksState{
		store:    st,
		migrator: migrator,
		logger:   slog.Default().With("component", "tasks-state"),
	}
}

// Init runs the migration if needed and loads the task list.
func (s *TasksState) Init(ctx context.Context) error {
	if s.migrator != nil {
		if err := s.migrator.EnsureMigrated(ctx); err != nil {
			return fmt.Errorf("initializing tasks state: %w", err)
		}
	}
	return s.reload(ctx)
}

func (s *TasksState) reload(ctx context.Context) error {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	s.mu.Lock()
	s.tasks = tasks
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// List returns a copy of the task list ordered by id.
func (s *TasksState) List() []*store.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Loaded reports whether the initial load has completed.
func (s *TasksState) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Err returns the error from the most recent failed mutation.
func (s *TasksState) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Stats returns total/completed/pending counts from the in-memory list.
func (s *TasksState) Stats() TaskStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := TaskStats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Done {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats
}

// Add creates a task. Not optimistic: the store assigns the id, so the
// mirror reloads after the insert.
func (s *TasksState) Add(ctx context.Context, text string) (*store.Task, error) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		return nil, ErrNotLoaded
	}

	task := &store.Task{Text: text}
	if err := s.store.InsertTask(ctx, task); err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return nil, fmt.Errorf("adding task: %w", err)
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	return task, nil
}

// Update replaces a task. The mirror is updated optimistically; on failure
// it reverts to store-confirmed state by reloading.
func (s *TasksState) Update(ctx context.Context, task *store.Task) error {
	t := *task

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	for i, existing := range s.tasks {
		if existing.ID == t.ID {
			s.tasks[i] = &t
			break
		}
	}
	s.mu.Unlock()

	if err := s.store.PutTask(ctx, &t); err != nil {
		if rerr := s.recover(ctx, err); rerr != nil {
			return rerr
		}
		return fmt.Errorf("updating task %d: %w", t.ID, err)
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Delete removes a task. Deleting an absent id is a no-op.
func (s *TasksState) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	kept := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	s.mu.Unlock()

	err := s.store.DeleteTask(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		if rerr := s.recover(ctx, err); rerr != nil {
			return rerr
		}
		return fmt.Errorf("deleting task %d: %w", id, err)
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Toggle flips a task's done flag via Update.
func (s *TasksState) Toggle(ctx context.Context, id int64) error {
	s.mu.RLock()
	var toggled *store.Task
	for _, t := range s.tasks {
		if t.ID == id {
			copied := *t
			copied.Done = !copied.Done
			toggled = &copied
			break
		}
	}
	s.mu.RUnlock()

	if toggled == nil {
		return store.ErrNotFound
	}
	return s.Update(ctx, toggled)
}

func (s *TasksState) recover(ctx context.Context, cause error) error {
	s.mu.Lock()
	s.lastErr = cause
	s.mu.Unlock()
	if cause != nil {
		s.logger.Warn("tasks mutation reverted", "error", cause)
	}
	return s.reload(ctx)
}
