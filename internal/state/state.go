// ABOUTME: Shared interfaces and errors for the in-memory state facades
// ABOUTME: Facades are the only writers; UI code never touches the store directly

package state

import (
	"context"
	"errors"

	"github.com/nurtab/nurtab-store/internal/store"
)

// ErrNotLoaded is returned by mutators invoked before Init has completed.
var ErrNotLoaded = errors.New("state not loaded")

// Migrating gates facade initialization on the schema migration. The
// migrator runs at most once per process regardless of how many facades
// call it.
type Migrating interface {
	EnsureMigrated(ctx context.Context) error
}

// SettingsStore is the slice of the store the settings facade needs.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*store.Settings, error)
	PutSettings(ctx context.Context, s *store.Settings) error
}

// FavoritesStore is the slice of the store the favorites facade needs.
type FavoritesStore interface {
	ListFavorites(ctx context.Context) ([]*store.Favorite, error)
	GetFavorite(ctx context.Context, id string) (*store.Favorite, error)
	InsertFavorite(ctx context.Context, f *store.Favorite) error
	PutFavorite(ctx context.Context, f *store.Favorite) error
	DeleteFavorite(ctx context.Context, id string) error
}

// TasksStore is the slice of the store the tasks facade needs.
type TasksStore interface {
	ListTasks(ctx context.Context) ([]*store.Task, error)
	InsertTask(ctx context.Context, t *store.Task) error
	PutTask(ctx context.Context, t *store.Task) error
	DeleteTask(ctx context.Context, id int64) error
}
