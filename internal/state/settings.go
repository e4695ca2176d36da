// ABOUTME: Settings facade with optimistic updates and revert-on-failure
// ABOUTME: Keeps the last persisted snapshot to roll back failed mutations

package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nurtab/nurtab-store/internal/store"
)

// SettingsState mirrors the singleton settings record in memory. Reads are
// synchronous against the mirror; mutations apply optimistically, persist,
// and revert to the last confirmed snapshot on failure.
type SettingsState struct {
	store    SettingsStore
	migrator Migrating
	logger   *slog.Logger

	mu        sync.RWMutex
	current   *store.Settings
	confirmed *store.Settings
	loaded    bool
	lastErr   error
}

// NewSettingsState creates the settings facade. migrator may be nil when
// migration is managed elsewhere.
func NewSettingsState(st SettingsStore, migrator Migrating) *SettingsState {
	return &SettingsState{
		store:    st,
		migrator: migrator,
		logger:   slog.Default().With("component", "settings-state"),
	}
}

// Init runs the migration if needed and loads the settings record. Once
// Init returns nil the facade never transitions back to unloaded.
func (s *SettingsState) Init(ctx context.Context) error {
	if s.migrator != nil {
		if err := s.migrator.EnsureMigrated(ctx); err != nil {
			return fmt.Errorf("initializing settings state: %w", err)
		}
	}

	current, err := s.store.GetSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		current = store.DefaultSettings()
		if err := s.store.PutSettings(ctx, current); err != nil {
			return fmt.Errorf("creating default settings: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	s.mu.Lock()
	s.current = current
	s.confirmed = current.Clone()
	s.loaded = true
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Settings returns a copy of the current settings, or nil while loading.
func (s *SettingsState) Settings() *store.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil
	}
	return s.current.Clone()
}

// Loaded reports whether the initial load has completed.
func (s *SettingsState) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Err returns the error from the most recent failed mutation, cleared by
// the next successful one.
func (s *SettingsState) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Update shallow-merges the top-level keys of patch onto the settings. The
// mirror is updated optimistically before the write; on persistence failure
// it reverts to the last confirmed snapshot and the error slot is set.
func (s *SettingsState) Update(ctx context.Context, patch map[string]any) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	optimistic, err := store.ApplyPatch(s.current, patch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = optimistic
	s.mu.Unlock()

	// Reconcile against the persisted record rather than the mirror, so a
	// stale mirror can't resurrect overwritten fields.
	base, err := s.store.GetSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		base = s.snapshot()
	} else if err != nil {
		s.revert(err)
		return fmt.Errorf("reloading settings: %w", err)
	}

	merged, err := store.ApplyPatch(base, patch)
	if err != nil {
		s.revert(err)
		return err
	}
	if err := s.store.PutSettings(ctx, merged); err != nil {
		s.revert(err)
		return fmt.Errorf("persisting settings: %w", err)
	}

	s.mu.Lock()
	s.current = merged
	s.confirmed = merged.Clone()
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Set resolves a dotted path like "background.blurIntensity" against the
// current settings and delegates to Update.
func (s *SettingsState) Set(ctx context.Context, path string, value any) error {
	s.mu.RLock()
	if !s.loaded {
		s.mu.RUnlock()
		return ErrNotLoaded
	}
	current := s.current
	s.mu.RUnlock()

	patch, err := store.PatchAtPath(current, path, value)
	if err != nil {
		return err
	}
	return s.Update(ctx, patch)
}

func (s *SettingsState) snapshot() *store.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmed.Clone()
}

func (s *SettingsState) revert(cause error) {
	s.mu.Lock()
	s.current = s.confirmed.Clone()
	s.lastErr = cause
	s.mu.Unlock()
	s.logger.Warn("settings update reverted", "error", cause)
}
