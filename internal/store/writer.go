package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
	sqlite3 "modernc.org/sqlite/lib"
)

// Writer bulk-loads entries into a brand new store file.
// It is used by one goroutine at a time.
type Writer struct {
	db   *sql.DB
	path string
}

// Create creates path and its schema. path must not already hold a store.
func Create(path string) (*Writer, error) {
	if err := registerRegexp(); err != nil {
		return nil, fmt.Errorf("register regexp function: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", fileURI(path, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Bulk-load settings. The caller fsyncs the file before publishing it.
	pragmas := []string{
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -65536",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Writer{db: db, path: path}, nil
}

// Path returns the file being written.
func (w *Writer) Path() string {
	return w.path
}

// InsertBatch inserts entries in a single transaction.
// Either every entry is stored or none is.
func (w *Writer) InsertBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertEntrySQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		var size any
		if e.HasSize() {
			size = e.Size
		}
		if _, err := stmt.ExecContext(ctx,
			e.Path,
			e.Parent,
			e.Name,
			e.Type.Value(),
			size,
			e.Created.UnixNano(),
			e.Modified.UnixNano(),
		); err != nil {
			return asDiskFull(fmt.Errorf("insert %s: %w", e.Path, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return asDiskFull(fmt.Errorf("commit batch: %w", err))
	}
	return nil
}

// CreateIndexes builds the secondary indexes. Call once after the last batch.
func (w *Writer) CreateIndexes(ctx context.Context) error {
	for _, stmt := range indexSQL {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return asDiskFull(fmt.Errorf("create index: %w", err))
		}
	}
	return nil
}

// SetMeta upserts build metadata.
func (w *Writer) SetMeta(ctx context.Context, meta map[string]string) error {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin meta: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, meta[k]); err != nil {
			return fmt.Errorf("write meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// Close closes the database. The file is complete only after Close returns nil.
func (w *Writer) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

// asDiskFull tags SQLITE_FULL failures with syscall.ENOSPC.
func asDiskFull(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_FULL {
		return fmt.Errorf("%w: %w", syscall.ENOSPC, err)
	}
	return err
}
