// Package index builds a searchfs store from a directory walk and publishes
// it atomically over the previous one.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/scanner"
	"github.com/searchfs/searchfs/internal/store"
)

// TempSuffix is appended to the output path to name the file being built.
const TempSuffix = ".temp"

// DefaultBatchSize is the number of entries loaded per transaction.
const DefaultBatchSize = 10000

// Stage identifies the phase a build is in.
type Stage string

const (
	StageLoading    Stage = "loading"
	StageIndexing   Stage = "indexing"
	StagePublishing Stage = "publishing"
	StageComplete   Stage = "complete"
)

// Progress is reported after every loaded batch and at each stage change.
type Progress struct {
	Stage   Stage
	Entries int64
	Skipped int64
	Batches int
}

// Walker produces the entries to index. *scanner.Scanner implements it.
type Walker interface {
	Scan(ctx context.Context, opts *scanner.ScanOptions) (<-chan scanner.ScanResult, error)
}

// Options configures a Builder.
type Options struct {
	// BatchSize is the number of entries per insert transaction (0 = DefaultBatchSize).
	BatchSize int

	// BufferSize is passed to the walker as its channel capacity.
	BufferSize int

	// Version is recorded in the store's meta table.
	Version string

	// Walker defaults to scanner.New().
	Walker Walker

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnProgress, if set, is called from the loading goroutine.
	OnProgress func(Progress)

	// OnSkip, if set, is called from the walking goroutine for every entry
	// the walker skipped.
	OnSkip func(error)
}

// Result summarises a successful build.
type Result struct {
	Output   string
	Roots    []string
	Entries  int64
	Skipped  int64
	Batches  int
	BuildID  string
	Duration time.Duration
}

// Builder builds and publishes stores. A Builder may be reused for
// successive builds; concurrent builds of the same output are rejected by
// the build lock.
type Builder struct {
	opts   Options
	rename func(oldpath, newpath string) error
}

// NewBuilder creates a Builder, filling unset options with defaults.
func NewBuilder(opts Options) *Builder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Walker == nil {
		opts.Walker = scanner.New(scanner.WithLogger(opts.Logger))
	}
	return &Builder{opts: opts, rename: os.Rename}
}

// Build walks roots and replaces outputPath with a store holding exactly the
// entries found. On any failure before the final rename the existing store
// at outputPath is left untouched and the partial file is removed. If the
// rename itself fails the error has code ERR_210_PUBLISH_FAILED and the
// complete temp file is kept for inspection.
func (b *Builder) Build(ctx context.Context, outputPath string, roots []string) (*Result, error) {
	start := time.Now()
	log := b.opts.Logger

	if outputPath == "" {
		return nil, serrors.ValidationError("output path is empty", nil)
	}
	outputPath, err := filepath.Abs(outputPath)
	if err != nil {
		return nil, serrors.ValidationError("invalid output path", err)
	}

	roots, err = scanner.ValidateRoots(roots)
	if err != nil {
		return nil, err
	}

	lock := NewBuildLock(outputPath)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	log.Debug("index_lock_acquired", slog.String("lock", lock.Path()))
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("index_lock_release_failed",
				slog.String("lock", lock.Path()),
				slog.String("error", err.Error()))
		}
	}()

	tempPath := outputPath + TempSuffix
	if err := removeTemp(tempPath); err != nil {
		return nil, serrors.StoreWriteFailed("failed to remove stale temp file", err).
			WithDetail("path", tempPath)
	}

	w, err := store.Create(tempPath)
	if err != nil {
		return nil, serrors.StoreWriteFailed("failed to create store", err).
			WithDetail("path", tempPath)
	}

	keepTemp := false
	closed := false
	defer func() {
		if !closed {
			_ = w.Close()
		}
		if !keepTemp {
			if err := removeTemp(tempPath); err != nil {
				log.Warn("index_temp_cleanup_failed", slog.String("path", tempPath), slog.String("error", err.Error()))
			}
		}
	}()

	log.Info("index_build_started",
		slog.String("output", outputPath),
		slog.Any("roots", roots),
		slog.Int("batch_size", b.opts.BatchSize))

	entries, skipped, batches, err := b.load(ctx, w, roots)
	if err != nil {
		log.Error("index_build_failed", slog.String("output", outputPath), slog.String("error", err.Error()))
		return nil, err
	}

	b.report(Progress{Stage: StageIndexing, Entries: entries, Skipped: skipped, Batches: batches})
	if err := w.CreateIndexes(ctx); err != nil {
		return nil, serrors.StoreWriteFailed("failed to create indexes", err)
	}

	buildID := uuid.New().String()
	rootsJSON, err := json.Marshal(roots)
	if err != nil {
		return nil, serrors.InternalError("failed to encode roots", err)
	}
	meta := map[string]string{
		store.MetaSchemaVersion: store.SchemaVersion,
		store.MetaBuildID:       buildID,
		store.MetaBuiltAt:       time.Now().UTC().Format(time.RFC3339),
		store.MetaRoots:         string(rootsJSON),
		store.MetaEntryCount:    strconv.FormatInt(entries, 10),
		store.MetaSkippedCount:  strconv.FormatInt(skipped, 10),
		store.MetaDurationMS:    strconv.FormatInt(time.Since(start).Milliseconds(), 10),
		store.MetaVersion:       b.opts.Version,
	}
	if err := w.SetMeta(ctx, meta); err != nil {
		return nil, serrors.StoreWriteFailed("failed to write metadata", err)
	}

	closed = true
	if err := w.Close(); err != nil {
		return nil, serrors.StoreWriteFailed("failed to close store", err)
	}
	if err := syncFile(tempPath); err != nil {
		return nil, serrors.StoreWriteFailed("failed to sync store", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.report(Progress{Stage: StagePublishing, Entries: entries, Skipped: skipped, Batches: batches})
	if err := b.rename(tempPath, outputPath); err != nil {
		keepTemp = true
		return nil, serrors.PublishFailed(tempPath, outputPath, err)
	}
	if err := syncDir(filepath.Dir(outputPath)); err != nil {
		log.Warn("index_dir_sync_failed", slog.String("error", err.Error()))
	}

	result := &Result{
		Output:   outputPath,
		Roots:    roots,
		Entries:  entries,
		Skipped:  skipped,
		Batches:  batches,
		BuildID:  buildID,
		Duration: time.Since(start),
	}
	b.report(Progress{Stage: StageComplete, Entries: entries, Skipped: skipped, Batches: batches})

	log.Info("index_build_complete",
		slog.String("output", outputPath),
		slog.String("build_id", buildID),
		slog.Int64("entries", entries),
		slog.Int64("skipped", skipped),
		slog.Int("batches", batches),
		slog.Int64("duration_ms", result.Duration.Milliseconds()))

	return result, nil
}

// load runs the walk and the inserts as a two-stage pipeline. The walking
// side groups entries into batches; the loading side inserts them one
// transaction at a time.
func (b *Builder) load(ctx context.Context, w *store.Writer, roots []string) (int64, int64, int, error) {
	g, gctx := errgroup.WithContext(ctx)

	results, err := b.opts.Walker.Scan(gctx, &scanner.ScanOptions{Roots: roots, BufferSize: b.opts.BufferSize})
	if err != nil {
		return 0, 0, 0, err
	}

	size := b.opts.BatchSize
	pending := make(chan []store.Entry, 1)
	var skipped atomic.Int64

	g.Go(func() error {
		defer close(pending)

		send := func(batch []store.Entry) error {
			select {
			case pending <- batch:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		batch := make([]store.Entry, 0, size)
		for r := range results {
			switch {
			case r.Err != nil:
				return r.Err
			case r.Skipped != nil:
				skipped.Add(1)
				if b.opts.OnSkip != nil {
					b.opts.OnSkip(r.Skipped)
				}
				continue
			case r.Entry == nil:
				continue
			}

			batch = append(batch, *r.Entry)
			if len(batch) >= size {
				if err := send(batch); err != nil {
					return err
				}
				batch = make([]store.Entry, 0, size)
			}
		}

		// the walker closes its channel without an error on cancellation
		if err := gctx.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			return send(batch)
		}
		return nil
	})

	var entries int64
	var batches int
	g.Go(func() error {
		for batch := range pending {
			if err := w.InsertBatch(gctx, batch); err != nil {
				return serrors.StoreWriteFailed(fmt.Sprintf("failed to load batch %d", batches+1), err)
			}
			entries += int64(len(batch))
			batches++

			b.opts.Logger.Debug("index_batch_loaded",
				slog.Int("batch", batches),
				slog.Int("size", len(batch)),
				slog.Int64("entries", entries))
			b.report(Progress{Stage: StageLoading, Entries: entries, Skipped: skipped.Load(), Batches: batches})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, 0, 0, err
	}
	return entries, skipped.Load(), batches, nil
}

func (b *Builder) report(p Progress) {
	if b.opts.OnProgress != nil {
		b.opts.OnProgress(p)
	}
}

// removeTemp deletes a temp store and any rollback journal SQLite left next to it.
func removeTemp(path string) error {
	var errs []error
	for _, p := range []string{path, path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// syncDir makes a rename in dir durable. Not all platforms support it.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
