package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/searchfs/searchfs/internal/config"
	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/index"
	"github.com/searchfs/searchfs/internal/ui"
	"github.com/searchfs/searchfs/pkg/version"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	output    string
	fromFile  string
	batchSize int
	noTUI     bool
	wait      bool
}

func newIndexCmd(root *rootOptions) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [dir...]",
		Short: "Build the index from one or more directories",
		Long: `Walk the given directories and replace the index with a fresh one.

Directories come from the arguments, from --from-file (one per line, '-' for
stdin), or from index.roots in the config. The previous index stays usable
until the new one is complete.`,
		Example: `  searchfs index ~/Documents /srv/shared
  searchfs index --from-file roots.txt -o /tmp/files.db
  searchfs index --wait --no-tui`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Ctrl+C cancels the build and leaves the previous index in place
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runIndex(ctx, cmd, root, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Index file to write (overrides --db)")
	cmd.Flags().StringVar(&opts.fromFile, "from-file", "", "Read directories from a file, one per line ('-' for stdin)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Entries per insert transaction (default from config)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Print plain progress lines instead of the interactive view")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Wait for a concurrent build of the same index to finish")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, root *rootOptions, args []string, opts indexOptions) error {
	cfg, err := root.config()
	if err != nil {
		return err
	}

	output := config.ExpandPath(opts.output)
	if output == "" {
		if output, err = root.databasePath(); err != nil {
			return err
		}
	}

	roots, err := collectRoots(cmd.InOrStdin(), args, opts.fromFile, cfg.Index.Roots)
	if err != nil {
		return err
	}

	batchSize := cfg.Index.BatchSize
	if opts.batchSize != 0 {
		if opts.batchSize < 0 {
			return serrors.ValidationError(fmt.Sprintf("--batch-size must be positive, got %d", opts.batchSize), nil)
		}
		batchSize = opts.batchSize
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithTitle(strings.Join(roots, ", "))))
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("progress_renderer_failed", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	builder := index.NewBuilder(index.Options{
		BatchSize: batchSize,
		Version:   version.Short(),
		Logger:    slog.Default(),
		OnProgress: func(p index.Progress) {
			renderer.UpdateProgress(ui.ProgressEvent{
				Stage:   uiStage(p.Stage),
				Entries: p.Entries,
				Skipped: p.Skipped,
				Batches: p.Batches,
			})
		},
		OnSkip: func(err error) {
			renderer.AddError(ui.ErrorEvent{Err: err, IsWarn: true})
		},
	})

	var result *index.Result
	build := func() error {
		res, err := builder.Build(ctx, output, roots)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	if opts.wait {
		err = serrors.Retry(ctx, serrors.DefaultRetryConfig(), func() error {
			err := build()
			if serrors.HasCode(err, serrors.ErrCodeIndexLocked) {
				renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageWalking, Message: "waiting for another build of " + output})
			}
			return err
		})
	} else {
		err = build()
	}
	if err != nil {
		return err
	}

	renderer.Complete(ui.CompletionStats{
		Output:   result.Output,
		Entries:  result.Entries,
		Skipped:  result.Skipped,
		Batches:  result.Batches,
		Duration: result.Duration,
	})
	return nil
}

// collectRoots merges directories from the arguments and --from-file, falling
// back to the configured roots when both are empty.
func collectRoots(stdin io.Reader, args []string, fromFile string, configured []string) ([]string, error) {
	roots := append([]string(nil), args...)

	if fromFile != "" {
		listed, err := readRootsFile(stdin, fromFile)
		if err != nil {
			return nil, err
		}
		roots = append(roots, listed...)
	}

	if len(roots) == 0 {
		for _, r := range configured {
			roots = append(roots, config.ExpandPath(r))
		}
	}

	if len(roots) == 0 {
		return nil, serrors.New(serrors.ErrCodeInvalidRoot, "no directories to index", nil).
			WithSuggestion("Pass directories, use --from-file, or set index.roots in the config")
	}
	return roots, nil
}

// readRootsFile reads one directory per line. Blank lines and lines starting
// with # are ignored.
func readRootsFile(stdin io.Reader, path string) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, serrors.New(serrors.ErrCodeFileNotFound,
				fmt.Sprintf("cannot read directory list %s", path), err).
				WithDetail("path", path)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var roots []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		roots = append(roots, config.ExpandPath(line))
	}
	if err := sc.Err(); err != nil {
		return nil, serrors.ValidationError(fmt.Sprintf("cannot read directory list %s", path), err)
	}
	return roots, nil
}

// uiStage maps builder stages onto the progress view.
func uiStage(s index.Stage) ui.Stage {
	switch s {
	case index.StageLoading:
		return ui.StageLoading
	case index.StageIndexing:
		return ui.StageIndexing
	case index.StagePublishing:
		return ui.StagePublishing
	case index.StageComplete:
		return ui.StageComplete
	default:
		return ui.StageWalking
	}
}
