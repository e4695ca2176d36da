// Package store provides the embedded, schema-versioned document store for
// nurtab: user settings, favorites, tasks and the content/image caches.
//
// # Architecture
//
// Five collections live in a local SQLite database, one table each, with
// records stored as JSON documents. Add-time and expiry are extracted into
// indexed columns at write time so range queries (expiry sweeps,
// newest-first trims) run in SQL.
//
//   - settings: the singleton versioned preferences record
//   - favorites: user-saved verses and hadith, keyed by content-derived ids
//   - tasks: todo items with store-generated numeric ids
//   - cached_content / cached_images: time-bounded caches with caps
//
// SQLiteStore and Tx both implement the Store interface; WithTx runs a
// function with transactional access so multi-collection operations commit
// together or not at all.
//
// # Migration
//
// Migrator compares the stored settings version to SchemaVersion and, when
// behind, runs five ordered steps in one transaction: settings deep-merge
// over defaults with version-gated structural fixes, favorites
// normalization (timestamps, tags, legacy book-name remapping), task field
// coercion, expired-cache sweeps, and dedup/trim. Any failure rolls the
// whole transaction back.
//
// Legacy data shapes are absorbed by the defensive decoders in legacy.go;
// malformed leaves are coerced to safe defaults rather than rejected.
//
// # Error Handling
//
//   - ErrNotFound: requested record does not exist
//   - ErrDuplicateFavorite: favorite id already stored (never overwritten)
//   - StorageError: the medium rejected a read/write (quota, corruption)
//   - MigrationError: a migration step failed; nothing was committed
//
// All methods accept context.Context.
package store
