// ABOUTME: Store interface and error types for nurtab-store persistence
// ABOUTME: Defines the typed accessors shared by SQLiteStore and Tx

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateFavorite is returned when inserting a favorite whose id
// already exists. The existing record is never overwritten.
var ErrDuplicateFavorite = errors.New("favorite already exists")

// StorageError wraps a read or write rejected by the underlying medium
// (quota exceeded, corruption). Callers decide the retry policy, typically
// by reducing the payload.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MigrationError wraps a failure in a migration step. The surrounding
// transaction has been rolled back by the time this is returned.
type MigrationError struct {
	Step string
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration step %s: %v", e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// Store defines the typed accessors over the five record collections.
// Both SQLiteStore (autocommit) and Tx (inside a transaction) implement it.
type Store interface {
	// Settings (singleton record)
	GetSettings(ctx context.Context) (*Settings, error)
	PutSettings(ctx context.Context, s *Settings) error

	// Favorites
	ListFavorites(ctx context.Context) ([]*Favorite, error)
	GetFavorite(ctx context.Context, id string) (*Favorite, error)
	InsertFavorite(ctx context.Context, f *Favorite) error
	PutFavorite(ctx context.Context, f *Favorite) error
	DeleteFavorite(ctx context.Context, id string) error

	// Tasks
	ListTasks(ctx context.Context) ([]*Task, error)
	InsertTask(ctx context.Context, t *Task) error
	PutTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id int64) error

	// Content cache
	ListCachedContent(ctx context.Context) ([]*CachedContent, error)
	GetCachedContent(ctx context.Context, id string) (*CachedContent, error)
	PutCachedContent(ctx context.Context, c *CachedContent) error
	DeleteCachedContent(ctx context.Context, id string) error
	DeleteExpiredContent(ctx context.Context, now time.Time) (int64, error)
	TrimCachedContent(ctx context.Context, keep int) (int64, error)

	// Image cache
	ListCachedImages(ctx context.Context) ([]*CachedImage, error)
	GetCachedImage(ctx context.Context, id string) (*CachedImage, error)
	PutCachedImage(ctx context.Context, img *CachedImage) error
	DeleteCachedImage(ctx context.Context, id string) error
	DeleteExpiredImages(ctx context.Context, now time.Time) (int64, error)
	TrimCachedImages(ctx context.Context, keep int) (int64, error)
}
