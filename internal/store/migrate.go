// ABOUTME: Schema migrator bringing persisted records up to SchemaVersion
// ABOUTME: Five ordered steps inside one transaction, all-or-nothing

package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Migrator brings a previously persisted database up to the current schema
// and performs the periodic cleanup/dedup pass, as one atomic operation.
type Migrator struct {
	store  *SQLiteStore
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	done bool
}

// NewMigrator creates a migrator over the given store.
func NewMigrator(store *SQLiteStore) *Migrator {
	return &Migrator{
		store:  store,
		logger: slog.Default().With("component", "migrator"),
		now:    time.Now,
	}
}

// NeedsMigration reports whether the settings record is absent or its
// version sorts below SchemaVersion.
func (m *Migrator) NeedsMigration(ctx context.Context) (bool, error) {
	raw, err := m.store.rawSettings(ctx)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return CompareVersions(storedVersion(raw), SchemaVersion) < 0, nil
}

// EnsureMigrated runs the migration at most once per process lifetime,
// and only when NeedsMigration reports true.
func (m *Migrator) EnsureMigrated(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return nil
	}
	needs, err := m.NeedsMigration(ctx)
	if err != nil {
		return err
	}
	if needs {
		if err := m.Run(ctx); err != nil {
			return err
		}
	}
	m.done = true
	return nil
}

// Run executes the migration: settings merge, favorites normalization,
// task coercion, cache cleanup, dedup/trim. All five steps commit together
// or not at all; on error no partial state is visible on next load.
func (m *Migrator) Run(ctx context.Context) error {
	start := m.now()
	err := m.store.WithTx(ctx, func(tx *Tx) error {
		return m.runSteps(ctx, tx)
	})
	if err != nil {
		m.logger.Error("migration failed", "error", err)
		return err
	}
	m.logger.Info("migration complete",
		"version", SchemaVersion,
		"duration", m.now().Sub(start))
	return nil
}

func (m *Migrator) runSteps(ctx context.Context, tx *Tx) error {
	if err := m.migrateSettings(ctx, tx); err != nil {
		return &MigrationError{Step: "settings", Err: err}
	}
	if err := m.migrateFavorites(ctx, tx); err != nil {
		return &MigrationError{Step: "favorites", Err: err}
	}
	if err := m.migrateTasks(ctx, tx); err != nil {
		return &MigrationError{Step: "tasks", Err: err}
	}
	if err := m.cleanupCaches(ctx, tx); err != nil {
		return &MigrationError{Step: "cache-cleanup", Err: err}
	}
	if err := m.dedupAndTrim(ctx, tx); err != nil {
		return &MigrationError{Step: "dedup-trim", Err: err}
	}
	return nil
}

func (m *Migrator) migrateSettings(ctx context.Context, tx *Tx) error {
	raw, err := tx.rawSettings(ctx)
	if errors.Is(err, ErrNotFound) {
		m.logger.Info("no settings record, inserting defaults")
		return tx.PutSettings(ctx, DefaultSettings())
	}
	if err != nil {
		return err
	}

	prior := storedVersion(raw)
	merged, err := mergeWithDefaults(raw)
	if err != nil {
		// Corrupt document: favor availability, start over from defaults.
		m.logger.Warn("settings document unreadable, resetting to defaults", "error", err)
		return tx.PutSettings(ctx, DefaultSettings())
	}
	merged.Version = SchemaVersion

	if CompareVersions(prior, backgroundFixBelow) < 0 {
		applyLegacySettingsFixes(merged, raw, m.now())
	}

	m.logger.Info("migrated settings", "from", prior, "to", SchemaVersion)
	return tx.PutSettings(ctx, merged)
}

func (m *Migrator) migrateFavorites(ctx context.Context, tx *Tx) error {
	rows, err := tx.listFavoriteRows(ctx)
	if err != nil {
		return err
	}

	migrated := 0
	for _, r := range rows {
		fav, changed, err := decodeLegacyFavorite(r.doc, m.now())
		if err != nil {
			m.logger.Warn("dropping undecodable favorite", "id", r.key, "error", err)
			if err := tx.DeleteFavorite(ctx, r.key); err != nil {
				return err
			}
			continue
		}
		if !changed && fav.ID == r.key {
			continue
		}

		if fav.ID != r.key {
			// Derived id changed (book remap or key corruption). If the
			// canonical id already exists, keep the earlier record.
			exists, err := tx.favoriteExists(ctx, fav.ID)
			if err != nil {
				return err
			}
			if err := tx.DeleteFavorite(ctx, r.key); err != nil {
				return err
			}
			if exists {
				continue
			}
		}
		if err := tx.PutFavorite(ctx, fav); err != nil {
			return err
		}
		migrated++
	}
	if migrated > 0 {
		m.logger.Info("normalized favorites", "count", migrated)
	}
	return nil
}

func (m *Migrator) migrateTasks(ctx context.Context, tx *Tx) error {
	rows, err := tx.listTaskRows(ctx)
	if err != nil {
		return err
	}

	migrated := 0
	for _, r := range rows {
		task, changed := decodeLegacyTask(r.doc, r.key)
		if !changed && task.ID == r.key {
			continue
		}
		if task.ID != r.key {
			// The coerced id may belong to another row. Keep this record
			// under its own key rather than clobbering that row.
			exists, err := tx.taskExists(ctx, task.ID)
			if err != nil {
				return err
			}
			if exists {
				task.ID = r.key
			} else if err := tx.deleteTaskRow(ctx, r.key); err != nil {
				return err
			}
		}
		if err := tx.putTaskWithID(ctx, task); err != nil {
			return err
		}
		migrated++
	}
	if migrated > 0 {
		m.logger.Info("coerced tasks", "count", migrated)
	}
	return nil
}

func (m *Migrator) cleanupCaches(ctx context.Context, tx *Tx) error {
	now := m.now()
	content, err := tx.DeleteExpiredContent(ctx, now)
	if err != nil {
		return err
	}
	images, err := tx.DeleteExpiredImages(ctx, now)
	if err != nil {
		return err
	}
	if content > 0 || images > 0 {
		m.logger.Info("swept expired cache entries", "content", content, "images", images)
	}
	return nil
}

func (m *Migrator) dedupAndTrim(ctx context.Context, tx *Tx) error {
	// Favorites with duplicate document ids: keep the first occurrence in
	// add-time order. Rows are keyed by id so this only fires when a row
	// key and its document id disagree.
	rows, err := tx.listFavoriteRows(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		var probe struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(r.doc, &probe)
		docID := probe.ID
		if docID == "" {
			docID = r.key
		}
		if seen[docID] {
			if err := tx.DeleteFavorite(ctx, r.key); err != nil {
				return err
			}
			continue
		}
		seen[docID] = true
	}

	content, err := tx.TrimCachedContent(ctx, MaxCachedContent)
	if err != nil {
		return err
	}
	images, err := tx.TrimCachedImages(ctx, MaxCachedImages)
	if err != nil {
		return err
	}
	if content > 0 || images > 0 {
		m.logger.Info("trimmed caches", "content", content, "images", images)
	}
	return nil
}

func storedVersion(raw []byte) string {
	var probe struct {
		Version string `json:"version"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.Version
}
