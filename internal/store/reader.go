package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	serrors "github.com/searchfs/searchfs/internal/errors"
)

// ErrStop can be returned by a Select callback to end iteration early
// without an error.
var ErrStop = errors.New("stop iteration")

// Reader queries a published store through one read-only connection.
// The connection is opened once and held, so a Reader keeps seeing the file
// it opened even after a rebuild renames a new store over the same path.
type Reader struct {
	db   *sql.DB
	conn *sql.Conn
	path string
}

// Open opens the store at path read-only.
func Open(ctx context.Context, path string) (*Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, serrors.New(serrors.ErrCodeFileNotFound,
				fmt.Sprintf("index not found: %s", path), err).
				WithDetail("path", path).
				WithSuggestion("Run 'searchfs index <dir>' to build it")
		}
		return nil, serrors.New(serrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot access index: %s", path), err).
			WithDetail("path", path)
	}
	if info.IsDir() {
		return nil, corrupt(path, errors.New("is a directory"))
	}

	if err := registerRegexp(); err != nil {
		return nil, fmt.Errorf("register regexp function: %w", err)
	}

	db, err := sql.Open("sqlite", fileURI(path, "mode=ro"))
	if err != nil {
		return nil, corrupt(path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, corrupt(path, err)
	}

	r := &Reader{db: db, conn: conn, path: path}
	if err := r.validate(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}

// validate checks that the file is a SQLite database holding an entries table.
func (r *Reader) validate(ctx context.Context) error {
	var count int
	err := r.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('entries', 'meta')`).Scan(&count)
	if err != nil {
		return corrupt(r.path, err)
	}
	if count != 2 {
		return corrupt(r.path, errors.New("entries or meta table missing"))
	}
	return nil
}

// Path returns the file this Reader opened.
func (r *Reader) Path() string {
	return r.path
}

// Select streams entries matching where (a SQL boolean expression using ?
// placeholders bound to args) to fn, ordered by path. An empty where matches
// everything; limit <= 0 means no limit. Returning ErrStop from fn ends the
// scan with a nil error.
func (r *Reader) Select(ctx context.Context, where string, args []any, limit int, fn func(Entry) error) error {
	var q strings.Builder
	q.WriteString("SELECT " + selectEntryColumns + " FROM entries")
	if where != "" {
		q.WriteString(" WHERE ")
		q.WriteString(where)
	}
	q.WriteString(" ORDER BY path")
	if limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(append([]any(nil), args...), limit)
	}

	rows, err := r.conn.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}

	return rows.Err()
}

// Count returns the number of entries matching where.
func (r *Reader) Count(ctx context.Context, where string, args []any) (int64, error) {
	q := "SELECT COUNT(*) FROM entries"
	if where != "" {
		q += " WHERE " + where
	}

	var n int64
	if err := r.conn.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Meta returns every row of the meta table.
func (r *Reader) Meta(ctx context.Context) (map[string]string, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("read meta: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// IntegrityCheck runs PRAGMA integrity_check and returns the problems found.
// A healthy store returns nil.
func (r *Reader) IntegrityCheck(ctx context.Context) ([]string, error) {
	rows, err := r.conn.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return nil, corrupt(r.path, err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	return problems, rows.Err()
}

// Close releases the connection.
func (r *Reader) Close() error {
	var errs []error
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
		r.conn = nil
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e                 Entry
		typ               int64
		size              sql.NullInt64
		created, modified int64
	)
	if err := row.Scan(&e.Path, &e.Parent, &e.Name, &typ, &size, &created, &modified); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	t, err := EntryTypeFromValue(typ)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s: %w", e.Path, err)
	}
	e.Type = t
	if size.Valid {
		e.Size = size.Int64
	}
	e.Created = time.Unix(0, created)
	e.Modified = time.Unix(0, modified)

	return e, nil
}

func corrupt(path string, cause error) *serrors.Error {
	return serrors.New(serrors.ErrCodeCorruptIndex,
		fmt.Sprintf("not a valid searchfs index: %s", path), cause).
		WithDetail("path", path).
		WithSuggestion("Rebuild it with 'searchfs index'")
}

// fileURI builds a SQLite URI filename. The modernc driver only keeps query
// parameters such as mode=ro when the DSN starts with "file:".
func fileURI(path, query string) string {
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
	if query == "" {
		return "file:" + escaped
	}
	return "file:" + escaped + "?" + query
}
