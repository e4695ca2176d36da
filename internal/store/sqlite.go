// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: JSON documents per collection with indexed date_added/expires_at columns

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// queries implements the typed accessors against either the database handle
// or an open transaction. Date columns are stored as RFC3339 strings so
// range queries (expiry sweeps, newest-first trims) compare lexically.
type queries struct {
	q interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	}
	logger *slog.Logger
}

// SQLiteStore implements Store over a local SQLite database.
type SQLiteStore struct {
	queries
	db *sql.DB
}

// Tx exposes the same typed accessors inside an exclusive transaction.
type Tx struct {
	queries
	tx *sql.Tx
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*Tx)(nil)
)

// NewSQLiteStore opens (or creates) the store at the given path. The schema
// is created if it doesn't exist; parent directories are created as needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// Immediate transactions take the write lock up front, so a migration
	// racing another writer fails fast instead of deadlocking mid-step.
	db, err := sql.Open("sqlite", "file:"+path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		queries: queries{q: db, logger: logger},
		db:      db,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS settings (
			id         TEXT PRIMARY KEY,
			doc        TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS favorites (
			id         TEXT PRIMARY KEY,
			doc        TEXT NOT NULL,
			date_added TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_favorites_date_added
			ON favorites(date_added);

		CREATE TABLE IF NOT EXISTS tasks (
			id  INTEGER PRIMARY KEY AUTOINCREMENT,
			doc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS cached_content (
			id         TEXT PRIMARY KEY,
			doc        TEXT NOT NULL,
			date_added TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cached_content_date_added
			ON cached_content(date_added);
		CREATE INDEX IF NOT EXISTS idx_cached_content_expires_at
			ON cached_content(expires_at);

		CREATE TABLE IF NOT EXISTS cached_images (
			id         TEXT PRIMARY KEY,
			doc        TEXT NOT NULL,
			date_added TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cached_images_date_added
			ON cached_images(date_added);
		CREATE INDEX IF NOT EXISTS idx_cached_images_expires_at
			ON cached_images(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// WithTx runs fn inside a single transaction. All writes commit together;
// any error (or panic) rolls the whole transaction back.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	tx := &Tx{
		queries: queries{q: sqlTx, logger: s.logger},
		tx:      sqlTx,
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks for a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// --- Settings ---

// GetSettings retrieves the singleton settings record.
// Returns ErrNotFound if it hasn't been created yet.
func (q *queries) GetSettings(ctx context.Context) (*Settings, error) {
	raw, err := q.rawSettings(ctx)
	if err != nil {
		return nil, err
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return &s, nil
}

func (q *queries) rawSettings(ctx context.Context) ([]byte, error) {
	var doc string
	err := q.q.QueryRowContext(ctx,
		`SELECT doc FROM settings WHERE id = ?`, SettingsID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get settings", Err: err}
	}
	return []byte(doc), nil
}

// PutSettings upserts the singleton settings record.
func (q *queries) PutSettings(ctx context.Context, s *Settings) error {
	s.ID = SettingsID
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO settings (id, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, SettingsID, string(doc), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return &StorageError{Op: "put settings", Err: err}
	}
	q.logger.Debug("saved settings", "version", s.Version)
	return nil
}

func (q *queries) clearSettings(ctx context.Context) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return &StorageError{Op: "clear settings", Err: err}
	}
	return nil
}

// --- Favorites ---

type favoriteRow struct {
	key string
	doc []byte
}

// ListFavorites returns all favorites ordered by add time, oldest first.
func (q *queries) ListFavorites(ctx context.Context) ([]*Favorite, error) {
	rows, err := q.listFavoriteRows(ctx)
	if err != nil {
		return nil, err
	}
	favorites := make([]*Favorite, 0, len(rows))
	for _, r := range rows {
		var f Favorite
		if err := json.Unmarshal(r.doc, &f); err != nil {
			return nil, fmt.Errorf("decoding favorite %s: %w", r.key, err)
		}
		favorites = append(favorites, &f)
	}
	return favorites, nil
}

func (q *queries) listFavoriteRows(ctx context.Context) ([]favoriteRow, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, doc FROM favorites ORDER BY date_added ASC, id ASC`)
	if err != nil {
		return nil, &StorageError{Op: "list favorites", Err: err}
	}
	defer rows.Close()

	var out []favoriteRow
	for rows.Next() {
		var r favoriteRow
		var doc string
		if err := rows.Scan(&r.key, &doc); err != nil {
			return nil, fmt.Errorf("scanning favorite row: %w", err)
		}
		r.doc = []byte(doc)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetFavorite retrieves a favorite by id. Returns ErrNotFound if absent.
func (q *queries) GetFavorite(ctx context.Context, id string) (*Favorite, error) {
	var doc string
	err := q.q.QueryRowContext(ctx,
		`SELECT doc FROM favorites WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get favorite", Err: err}
	}
	var f Favorite
	if err := json.Unmarshal([]byte(doc), &f); err != nil {
		return nil, fmt.Errorf("decoding favorite %s: %w", id, err)
	}
	return &f, nil
}

// InsertFavorite inserts a new favorite. Returns ErrDuplicateFavorite if
// the id already exists; the stored record is left untouched.
func (q *queries) InsertFavorite(ctx context.Context, f *Favorite) error {
	doc, dateAdded, err := encodeFavorite(f)
	if err != nil {
		return err
	}
	_, err = q.q.ExecContext(ctx,
		`INSERT INTO favorites (id, doc, date_added) VALUES (?, ?, ?)`,
		f.ID, doc, dateAdded)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateFavorite
		}
		return &StorageError{Op: "insert favorite", Err: err}
	}
	q.logger.Debug("added favorite", "id", f.ID, "type", f.Kind)
	return nil
}

// PutFavorite upserts a favorite by id. Used by migration and note updates;
// the user-facing add path goes through InsertFavorite instead.
func (q *queries) PutFavorite(ctx context.Context, f *Favorite) error {
	doc, dateAdded, err := encodeFavorite(f)
	if err != nil {
		return err
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO favorites (id, doc, date_added) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, date_added = excluded.date_added
	`, f.ID, doc, dateAdded)
	if err != nil {
		return &StorageError{Op: "put favorite", Err: err}
	}
	return nil
}

func encodeFavorite(f *Favorite) (string, string, error) {
	if f.ID == "" {
		if f.ID = f.DerivedID(); f.ID == "" {
			return "", "", fmt.Errorf("favorite has no id and unknown type %q", f.Kind)
		}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", "", fmt.Errorf("encoding favorite: %w", err)
	}
	return string(b), f.DateAdded.UTC().Format(time.RFC3339), nil
}

// DeleteFavorite removes a favorite. Returns ErrNotFound if absent.
func (q *queries) DeleteFavorite(ctx context.Context, id string) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Op: "delete favorite", Err: err}
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	q.logger.Debug("deleted favorite", "id", id)
	return nil
}

func (q *queries) favoriteExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := q.q.QueryRowContext(ctx,
		`SELECT 1 FROM favorites WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "check favorite", Err: err}
	}
	return true, nil
}

func (q *queries) clearFavorites(ctx context.Context) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM favorites`); err != nil {
		return &StorageError{Op: "clear favorites", Err: err}
	}
	return nil
}

// --- Tasks ---

// ListTasks returns all tasks ordered by id.
func (q *queries) ListTasks(ctx context.Context) ([]*Task, error) {
	rows, err := q.listTaskRows(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]*Task, 0, len(rows))
	for _, r := range rows {
		var t Task
		if err := json.Unmarshal(r.doc, &t); err != nil {
			return nil, fmt.Errorf("decoding task %d: %w", r.key, err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

type taskRow struct {
	key int64
	doc []byte
}

func (q *queries) listTaskRows(ctx context.Context) ([]taskRow, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, doc FROM tasks ORDER BY id ASC`)
	if err != nil {
		return nil, &StorageError{Op: "list tasks", Err: err}
	}
	defer rows.Close()

	var out []taskRow
	for rows.Next() {
		var r taskRow
		var doc string
		if err := rows.Scan(&r.key, &doc); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		r.doc = []byte(doc)
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertTask inserts a task. A zero id is assigned by the store and written
// back into both the record and its document.
func (q *queries) InsertTask(ctx context.Context, t *Task) error {
	if t.ID != 0 {
		return q.putTaskWithID(ctx, t)
	}

	result, err := q.q.ExecContext(ctx, `INSERT INTO tasks (doc) VALUES ('{}')`)
	if err != nil {
		return &StorageError{Op: "insert task", Err: err}
	}
	id, err := result.LastInsertId()
	if err != nil {
		return &StorageError{Op: "insert task", Err: err}
	}
	t.ID = id

	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	if _, err := q.q.ExecContext(ctx,
		`UPDATE tasks SET doc = ? WHERE id = ?`, string(doc), id); err != nil {
		return &StorageError{Op: "insert task", Err: err}
	}
	q.logger.Debug("added task", "id", t.ID)
	return nil
}

// InsertTask on the bare store wraps the id-reservation and document write
// in a transaction so a failure can't leave a placeholder row behind.
func (s *SQLiteStore) InsertTask(ctx context.Context, t *Task) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertTask(ctx, t)
	})
}

func (q *queries) putTaskWithID(ctx context.Context, t *Task) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO tasks (id, doc) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc
	`, t.ID, string(doc))
	if err != nil {
		return &StorageError{Op: "put task", Err: err}
	}
	return nil
}

// PutTask updates an existing task. Returns ErrNotFound if absent.
func (q *queries) PutTask(ctx context.Context, t *Task) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	result, err := q.q.ExecContext(ctx,
		`UPDATE tasks SET doc = ? WHERE id = ?`, string(doc), t.ID)
	if err != nil {
		return &StorageError{Op: "put task", Err: err}
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTask removes a task. Returns ErrNotFound if absent.
func (q *queries) DeleteTask(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Op: "delete task", Err: err}
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	q.logger.Debug("deleted task", "id", id)
	return nil
}

func (q *queries) taskExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := q.q.QueryRowContext(ctx,
		`SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "check task", Err: err}
	}
	return true, nil
}

func (q *queries) deleteTaskRow(ctx context.Context, key int64) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, key); err != nil {
		return &StorageError{Op: "delete task", Err: err}
	}
	return nil
}

func (q *queries) clearTasks(ctx context.Context) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return &StorageError{Op: "clear tasks", Err: err}
	}
	return nil
}

// --- Content cache ---

// ListCachedContent returns cached content newest first.
func (q *queries) ListCachedContent(ctx context.Context) ([]*CachedContent, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT doc FROM cached_content ORDER BY date_added DESC, id ASC`)
	if err != nil {
		return nil, &StorageError{Op: "list cached content", Err: err}
	}
	defer rows.Close()

	var out []*CachedContent
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning cached content row: %w", err)
		}
		var c CachedContent
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, fmt.Errorf("decoding cached content: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// GetCachedContent retrieves a cache entry by id. Returns ErrNotFound if
// absent. Expiry is not checked here; callers compare ExpiresAt themselves.
func (q *queries) GetCachedContent(ctx context.Context, id string) (*CachedContent, error) {
	var doc string
	err := q.q.QueryRowContext(ctx,
		`SELECT doc FROM cached_content WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get cached content", Err: err}
	}
	var c CachedContent
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("decoding cached content %s: %w", id, err)
	}
	return &c, nil
}

// PutCachedContent upserts a cache entry by id.
func (q *queries) PutCachedContent(ctx context.Context, c *CachedContent) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cached content: %w", err)
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO cached_content (id, doc, date_added, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc = excluded.doc, date_added = excluded.date_added, expires_at = excluded.expires_at
	`, c.ID, string(doc),
		c.DateAdded.UTC().Format(time.RFC3339),
		c.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return &StorageError{Op: "put cached content", Err: err}
	}
	return nil
}

// DeleteCachedContent removes a cache entry. Deleting an absent id is a no-op.
func (q *queries) DeleteCachedContent(ctx context.Context, id string) error {
	if _, err := q.q.ExecContext(ctx,
		`DELETE FROM cached_content WHERE id = ?`, id); err != nil {
		return &StorageError{Op: "delete cached content", Err: err}
	}
	return nil
}

// DeleteExpiredContent removes every entry whose expiry is at or before now.
func (q *queries) DeleteExpiredContent(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.q.ExecContext(ctx,
		`DELETE FROM cached_content WHERE expires_at <= ?`,
		now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, &StorageError{Op: "sweep cached content", Err: err}
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// TrimCachedContent keeps the `keep` most recently added entries and
// deletes the remainder.
func (q *queries) TrimCachedContent(ctx context.Context, keep int) (int64, error) {
	result, err := q.q.ExecContext(ctx, `
		DELETE FROM cached_content WHERE id NOT IN (
			SELECT id FROM cached_content ORDER BY date_added DESC, id ASC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, &StorageError{Op: "trim cached content", Err: err}
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (q *queries) clearCachedContent(ctx context.Context) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM cached_content`); err != nil {
		return &StorageError{Op: "clear cached content", Err: err}
	}
	return nil
}

// --- Image cache ---

// ListCachedImages returns cached images newest first.
func (q *queries) ListCachedImages(ctx context.Context) ([]*CachedImage, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT doc FROM cached_images ORDER BY date_added DESC, id ASC`)
	if err != nil {
		return nil, &StorageError{Op: "list cached images", Err: err}
	}
	defer rows.Close()

	var out []*CachedImage
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning cached image row: %w", err)
		}
		var img CachedImage
		if err := json.Unmarshal([]byte(doc), &img); err != nil {
			return nil, fmt.Errorf("decoding cached image: %w", err)
		}
		out = append(out, &img)
	}
	return out, rows.Err()
}

// GetCachedImage retrieves a cached image by id. Returns ErrNotFound if absent.
func (q *queries) GetCachedImage(ctx context.Context, id string) (*CachedImage, error) {
	var doc string
	err := q.q.QueryRowContext(ctx,
		`SELECT doc FROM cached_images WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get cached image", Err: err}
	}
	var img CachedImage
	if err := json.Unmarshal([]byte(doc), &img); err != nil {
		return nil, fmt.Errorf("decoding cached image %s: %w", id, err)
	}
	return &img, nil
}

// PutCachedImage upserts a cached image by id.
func (q *queries) PutCachedImage(ctx context.Context, img *CachedImage) error {
	doc, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("encoding cached image: %w", err)
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO cached_images (id, doc, date_added, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc = excluded.doc, date_added = excluded.date_added, expires_at = excluded.expires_at
	`, img.ID, string(doc),
		img.DateAdded.UTC().Format(time.RFC3339),
		img.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return &StorageError{Op: "put cached image", Err: err}
	}
	return nil
}

// DeleteCachedImage removes a cached image. Deleting an absent id is a no-op.
func (q *queries) DeleteCachedImage(ctx context.Context, id string) error {
	if _, err := q.q.ExecContext(ctx,
		`DELETE FROM cached_images WHERE id = ?`, id); err != nil {
		return &StorageError{Op: "delete cached image", Err: err}
	}
	return nil
}

// DeleteExpiredImages removes every image whose expiry is at or before now.
func (q *queries) DeleteExpiredImages(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.q.ExecContext(ctx,
		`DELETE FROM cached_images WHERE expires_at <= ?`,
		now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, &StorageError{Op: "sweep cached images", Err: err}
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// TrimCachedImages keeps the `keep` most recently added images and deletes
// the remainder.
func (q *queries) TrimCachedImages(ctx context.Context, keep int) (int64, error) {
	result, err := q.q.ExecContext(ctx, `
		DELETE FROM cached_images WHERE id NOT IN (
			SELECT id FROM cached_images ORDER BY date_added DESC, id ASC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, &StorageError{Op: "trim cached images", Err: err}
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (q *queries) clearCachedImages(ctx context.Context) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM cached_images`); err != nil {
		return &StorageError{Op: "clear cached images", Err: err}
	}
	return nil
}
