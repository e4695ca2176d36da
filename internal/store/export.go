// ABOUTME: Export, import and reset operations over the migration transaction
// ABOUTME: Caches are ephemeral and excluded from the export format

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ExportFile is the portable backup format. Collections are arrays even
// though settings is a singleton today, leaving room for profiles later.
type ExportFile struct {
	Version    string      `json:"version"`
	ExportDate time.Time   `json:"exportDate"`
	Settings   []*Settings `json:"settings"`
	Favorites  []*Favorite `json:"favorites"`
	Tasks      []*Task     `json:"tasks"`
}

// Export serializes settings, favorites and tasks as one consistent
// snapshot. Caches are excluded.
func (m *Migrator) Export(ctx context.Context) (*ExportFile, error) {
	out := &ExportFile{
		Version:    SchemaVersion,
		ExportDate: m.now().UTC(),
	}
	err := m.store.WithTx(ctx, func(tx *Tx) error {
		settings, err := tx.GetSettings(ctx)
		if err == nil {
			out.Settings = []*Settings{settings}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if out.Favorites, err = tx.ListFavorites(ctx); err != nil {
			return err
		}
		if out.Tasks, err = tx.ListTasks(ctx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Settings == nil {
		out.Settings = []*Settings{}
	}
	if out.Favorites == nil {
		out.Favorites = []*Favorite{}
	}
	if out.Tasks == nil {
		out.Tasks = []*Task{}
	}
	return out, nil
}

// Import replaces settings, favorites and tasks with the contents of an
// export file, then runs every migration step in the same transaction so
// imported data is normalized regardless of its declared version. Unknown
// fields in the input are ignored.
func (m *Migrator) Import(ctx context.Context, data []byte) error {
	var in ExportFile
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parsing import file: %w", err)
	}

	err := m.store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.clearSettings(ctx); err != nil {
			return err
		}
		if err := tx.clearFavorites(ctx); err != nil {
			return err
		}
		if err := tx.clearTasks(ctx); err != nil {
			return err
		}

		if len(in.Settings) > 0 {
			if err := tx.PutSettings(ctx, in.Settings[0]); err != nil {
				return err
			}
		}
		for _, f := range in.Favorites {
			if err := tx.PutFavorite(ctx, f); err != nil {
				return err
			}
		}
		for _, t := range in.Tasks {
			// Keep ids from the export file so re-importing a backup does
			// not renumber tasks.
			if t.ID != 0 {
				if err := tx.putTaskWithID(ctx, t); err != nil {
					return err
				}
				continue
			}
			if err := tx.InsertTask(ctx, t); err != nil {
				return err
			}
		}

		return m.runSteps(ctx, tx)
	})
	if err != nil {
		m.logger.Error("import failed", "error", err)
		return err
	}
	m.logger.Info("import complete",
		"favorites", len(in.Favorites), "tasks", len(in.Tasks))
	return nil
}

// Reset clears all five collections and reinserts the default settings
// record.
func (m *Migrator) Reset(ctx context.Context) error {
	err := m.store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.clearSettings(ctx); err != nil {
			return err
		}
		if err := tx.clearFavorites(ctx); err != nil {
			return err
		}
		if err := tx.clearTasks(ctx); err != nil {
			return err
		}
		if err := tx.clearCachedContent(ctx); err != nil {
			return err
		}
		if err := tx.clearCachedImages(ctx); err != nil {
			return err
		}
		return tx.PutSettings(ctx, DefaultSettings())
	})
	if err != nil {
		return err
	}
	m.logger.Info("store reset to defaults")
	return nil
}
