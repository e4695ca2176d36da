// ABOUTME: Favorites facade with idempotent add and optimistic remove
// ABOUTME: Failed mutations revert by reloading the collection from the store

package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nurtab/nurtab-store/internal/store"
)

// FavoritesState mirrors the favorites collection in memory.
type FavoritesState struct {
	store    FavoritesStore
	migrator Migrating
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	favorites []*store.Favorite
	loaded    bool
	lastErr   error
}

// NewFavoritesState creates the favorites facade.
func NewFavoritesState(st FavoritesStore, migrator Migrating) *FavoritesState {
	return &FavoritesState{
		store:    st,
		migrator: migrator,
		logger:   slog.Default().With("component", "favorites-state"),
		now:      time.Now,
	}
}

// Init runs the migration if needed and loads the favorites list.
func (s *FavoritesState) Init(ctx context.Context) error {
	if s.migrator != nil {
		if err := s.migrator.EnsureMigrated(ctx); err != nil {
			return fmt.Errorf("initializing favorites state: %w", err)
		}
	}
	if err := s.reload(ctx); err != nil {
		return err
	}
	return nil
}

func (s *FavoritesState) reload(ctx context.Context) error {
	favorites, err := s.store.ListFavorites(ctx)
	if err != nil {
		return fmt.Errorf("loading favorites: %w", err)
	}
	s.mu.Lock()
	s.favorites = favorites
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// List returns a copy of the favorites list, oldest first.
func (s *FavoritesState) List() []*store.Favorite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Favorite, len(s.favorites))
	copy(out, s.favorites)
	return out
}

// Loaded reports whether the initial load has completed.
func (s *FavoritesState) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Err returns the error from the most recent failed mutation.
func (s *FavoritesState) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// IsFavorited reports whether a favorite with the given id is present.
func (s *FavoritesState) IsFavorited(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.favorites {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Add saves a favorite. The id is derived from the content coordinates if
// unset, and adding an already-favorited item is an idempotent no-op that
// never overwrites the stored record's note.
func (s *FavoritesState) Add(ctx context.Context, f *store.Favorite) error {
	fav := *f
	if fav.ID == "" {
		fav.ID = fav.DerivedID()
		if fav.ID == "" {
			return fmt.Errorf("favorite has unknown type %q", fav.Kind)
		}
	}
	if fav.DateAdded.IsZero() {
		fav.DateAdded = s.now()
	}
	if fav.Tags == nil {
		fav.Tags = []string{}
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	for _, existing := range s.favorites {
		if existing.ID == fav.ID {
			s.mu.Unlock()
			return nil
		}
	}
	s.favorites = append(s.favorites, &fav)
	s.mu.Unlock()

	err := s.store.InsertFavorite(ctx, &fav)
	if errors.Is(err, store.ErrDuplicateFavorite) {
		// Raced with another writer; the stored record wins.
		return s.recover(ctx, nil)
	}
	if err != nil {
		if rerr := s.recover(ctx, err); rerr != nil {
			return rerr
		}
		return fmt.Errorf("saving favorite: %w", err)
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Remove deletes a favorite. Removing an absent id is a no-op.
func (s *FavoritesState) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	kept := s.favorites[:0:0]
	for _, f := range s.favorites {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	s.favorites = kept
	s.mu.Unlock()

	err := s.store.DeleteFavorite(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		if rerr := s.recover(ctx, err); rerr != nil {
			return rerr
		}
		return fmt.Errorf("removing favorite: %w", err)
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// UpdateNote sets the note on a stored favorite. Not optimistic: the write
// goes to the store first and the mirror reloads afterwards.
func (s *FavoritesState) UpdateNote(ctx context.Context, id, note string) error {
	fav, err := s.store.GetFavorite(ctx, id)
	if err != nil {
		return fmt.Errorf("loading favorite %s: %w", id, err)
	}
	fav.Note = note
	if err := s.store.PutFavorite(ctx, fav); err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return fmt.Errorf("updating note: %w", err)
	}
	if err := s.reload(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Search returns favorites whose text, translation, note or name contains
// the query, case-insensitively. An empty query matches everything.
func (s *FavoritesState) Search(query string) []*store.Favorite {
	q := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.Favorite
	for _, f := range s.favorites {
		if q == "" ||
			strings.Contains(strings.ToLower(f.Text), q) ||
			strings.Contains(strings.ToLower(f.Translation), q) ||
			strings.Contains(strings.ToLower(f.Note), q) ||
			strings.Contains(strings.ToLower(f.Name), q) {
			out = append(out, f)
		}
	}
	return out
}

// recover reverts the mirror to store-confirmed state after a failed
// mutation. cause lands in the error slot; a nil cause clears it.
func (s *FavoritesState) recover(ctx context.Context, cause error) error {
	s.mu.Lock()
	s.lastErr = cause
	s.mu.Unlock()
	if cause != nil {
		s.logger.Warn("favorites mutation reverted", "error", cause)
	}
	return s.reload(ctx)
}
