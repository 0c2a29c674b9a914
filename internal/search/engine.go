// Package search answers filter queries against a published searchfs store.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/store"
)

// Searcher is the query surface used by the CLI.
type Searcher interface {
	Search(ctx context.Context, f Filters, fn func(store.Entry) error) error
	Count(ctx context.Context, f Filters) (int64, error)
	Close() error
}

var _ Searcher = (*Engine)(nil)

// Engine queries one store snapshot. It is not safe for concurrent use.
type Engine struct {
	reader *store.Reader
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for query events.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Open opens the store at path read-only. The Engine keeps seeing that store
// even if a rebuild publishes a new one at the same path.
func Open(ctx context.Context, path string, opts ...EngineOption) (*Engine, error) {
	r, err := store.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	e := &Engine{reader: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Path returns the store path.
func (e *Engine) Path() string {
	return e.reader.Path()
}

// Search streams the entries matching f to fn, ordered by path. Invalid
// filters fail before any row is read. An error returned by fn ends the
// search and is returned unchanged, except store.ErrStop which ends it
// with nil.
func (e *Engine) Search(ctx context.Context, f Filters, fn func(store.Entry) error) error {
	start := time.Now()

	p, err := BuildPredicate(f)
	if err != nil {
		return err
	}
	where, args := p.SQL()

	var (
		matched int
		cbErr   error
	)
	err = e.reader.Select(ctx, where, args, f.Limit, func(entry store.Entry) error {
		matched++
		if err := fn(entry); err != nil {
			if !errors.Is(err, store.ErrStop) {
				cbErr = err
			}
			return err
		}
		return nil
	})
	if err != nil {
		if cbErr != nil {
			return cbErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return serrors.New(serrors.ErrCodeSearchFailed, "search failed", err).
			WithDetail("path", e.reader.Path())
	}

	e.logger.Debug("search_complete",
		slog.String("where", where),
		slog.Int("clauses", len(p.Clauses)),
		slog.Int("matched", matched),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return nil
}

// Collect returns every match of f.
func (e *Engine) Collect(ctx context.Context, f Filters) ([]store.Entry, error) {
	var out []store.Entry
	err := e.Search(ctx, f, func(entry store.Entry) error {
		out = append(out, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of matches of f, ignoring f.Limit.
func (e *Engine) Count(ctx context.Context, f Filters) (int64, error) {
	p, err := BuildPredicate(f)
	if err != nil {
		return 0, err
	}
	where, args := p.SQL()

	n, err := e.reader.Count(ctx, where, args)
	if err != nil {
		return 0, serrors.New(serrors.ErrCodeSearchFailed, "count failed", err)
	}
	return n, nil
}

// Info describes a store.
type Info struct {
	Path          string            `json:"path"`
	SizeBytes     int64             `json:"size_bytes"`
	SchemaVersion string            `json:"schema_version"`
	BuildID       string            `json:"build_id"`
	BuiltAt       time.Time         `json:"built_at"`
	Version       string            `json:"version,omitempty"`
	Roots         []string          `json:"roots"`
	Entries       int64             `json:"entries"`
	Files         int64             `json:"files"`
	Directories   int64             `json:"directories"`
	Skipped       int64             `json:"skipped"`
	BuildDuration time.Duration     `json:"build_duration_ns"`
	Meta          map[string]string `json:"meta"`
}

// Info reads the store's meta rows and entry counts. Missing or malformed
// meta values are left zero.
func (e *Engine) Info(ctx context.Context) (*Info, error) {
	meta, err := e.reader.Meta(ctx)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeSearchFailed, "failed to read index metadata", err)
	}

	info := &Info{
		Path:          e.reader.Path(),
		SchemaVersion: meta[store.MetaSchemaVersion],
		BuildID:       meta[store.MetaBuildID],
		Version:       meta[store.MetaVersion],
		Meta:          meta,
	}
	if st, err := os.Stat(info.Path); err == nil {
		info.SizeBytes = st.Size()
	}
	if t, err := time.Parse(time.RFC3339, meta[store.MetaBuiltAt]); err == nil {
		info.BuiltAt = t
	}
	if v := meta[store.MetaRoots]; v != "" {
		if err := json.Unmarshal([]byte(v), &info.Roots); err != nil {
			e.logger.Warn("info_roots_unreadable", slog.String("value", v), slog.String("error", err.Error()))
		}
	}
	info.Skipped, _ = strconv.ParseInt(meta[store.MetaSkippedCount], 10, 64)
	if ms, err := strconv.ParseInt(meta[store.MetaDurationMS], 10, 64); err == nil {
		info.BuildDuration = time.Duration(ms) * time.Millisecond
	}

	if info.Entries, err = e.reader.Count(ctx, "", nil); err != nil {
		return nil, serrors.New(serrors.ErrCodeSearchFailed, "failed to count entries", err)
	}
	if info.Directories, err = e.reader.Count(ctx, "type = ?", []any{store.TypeDirectory.Value()}); err != nil {
		return nil, serrors.New(serrors.ErrCodeSearchFailed, "failed to count directories", err)
	}
	info.Files = info.Entries - info.Directories

	return info, nil
}

// Check runs an integrity check and returns the problems found, nil if none.
func (e *Engine) Check(ctx context.Context) ([]string, error) {
	return e.reader.IntegrityCheck(ctx)
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.reader.Close()
}
