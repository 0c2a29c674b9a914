package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/output"
	"github.com/searchfs/searchfs/internal/search"
	"github.com/searchfs/searchfs/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	name         string
	regex        string
	entryType    string
	size         string
	strict       bool
	ignoreCase   bool
	null         bool
	newer        string
	older        string
	createdNewer string
	createdOlder string
	format       string
	human        bool
	limit        int
	count        bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [dir...]",
		Short: "Search the index",
		Long: `Search the index with any combination of filters. Filters are combined
with AND; directories given as arguments limit the search to entries below
any of them (or directly inside them with --strict).

At least one of --name, --regex, --type, --size or a time filter is required.

Size expressions: [+|-]<number>[K|M|G|T][B]. N or +N means at least N bytes,
-N means at most N bytes. Units are powers of 1024.

Time values are durations before now (90m, 36h, 7d) or dates
(2006-01-02, 2006-01-02T15:04:05, RFC3339).`,
		Example: `  searchfs search -n '*.pdf' ~/Documents
  searchfs search -r '^img_\d+$' -t f --size +1M
  searchfs search -t d -s /srv
  searchfs search -n '*.log' --newer 7d -0 | xargs -0 ls -l`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSearch(ctx, cmd, root, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Glob on the base name (* is the only wildcard)")
	cmd.Flags().StringVarP(&opts.regex, "regex", "r", "", "Regular expression searched in the base name")
	cmd.Flags().StringVarP(&opts.entryType, "type", "t", "", "Entry type: f (file) or d (directory)")
	cmd.Flags().StringVar(&opts.size, "size", "", "File size, e.g. +10M or -512K")
	cmd.Flags().BoolVarP(&opts.strict, "strict", "s", false, "Match only direct children of the given directories")
	cmd.Flags().BoolVarP(&opts.ignoreCase, "ignore-case", "i", false, "Case-insensitive --name")
	cmd.Flags().BoolVarP(&opts.null, "null", "0", false, "Separate results with NUL instead of newline")
	cmd.Flags().StringVar(&opts.newer, "newer", "", "Modified after a duration ago or a date")
	cmd.Flags().StringVar(&opts.older, "older", "", "Modified before a duration ago or a date")
	cmd.Flags().StringVar(&opts.createdNewer, "created-newer", "", "Created after a duration ago or a date")
	cmd.Flags().StringVar(&opts.createdOlder, "created-older", "", "Created before a duration ago or a date")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: path, long, json (default from config)")
	cmd.Flags().BoolVarP(&opts.human, "human", "H", false, "Human-readable sizes in long format")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum number of results (0 = all)")
	cmd.Flags().BoolVarP(&opts.count, "count", "c", false, "Print the number of matches only")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, root *rootOptions, dirs []string, opts searchOptions) error {
	cfg, err := root.config()
	if err != nil {
		return err
	}

	// config supplies defaults for flags left unset
	flags := cmd.Flags()
	if !flags.Changed("strict") {
		opts.strict = cfg.Search.StrictDirectory
	}
	if !flags.Changed("ignore-case") {
		opts.ignoreCase = cfg.Search.IgnoreCase
	}
	if !flags.Changed("null") {
		opts.null = cfg.Search.NullSeparator
	}
	if opts.format == "" {
		opts.format = cfg.Search.Format
	}

	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	filters, err := buildFilters(dirs, opts, time.Now())
	if err != nil {
		return err
	}
	if !filters.HasCriteria() {
		return serrors.New(serrors.ErrCodeFiltersEmpty, "no search criteria given", nil).
			WithSuggestion("Specify at least one of --name, --regex, --type, --size, --newer or --older")
	}

	dbPath, err := root.databasePath()
	if err != nil {
		return err
	}

	slog.Info("search_started",
		slog.String("db", dbPath),
		slog.String("name", filters.NamePattern),
		slog.String("regex", filters.NameRegex),
		slog.Any("dirs", filters.Directories))

	engine, err := search.Open(ctx, dbPath, search.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	if opts.count {
		n, err := engine.Count(ctx, filters)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
		return err
	}

	w := output.NewEntryWriter(cmd.OutOrStdout(), output.EntryOptions{
		Format:        format,
		NullSeparator: opts.null,
		Human:         opts.human,
	})
	searchErr := engine.Search(ctx, filters, w.Write)
	if err := w.Flush(); err != nil && searchErr == nil {
		searchErr = err
	}
	return searchErr
}

// buildFilters turns flags into search.Filters. Relative times are resolved
// against now.
func buildFilters(dirs []string, opts searchOptions, now time.Time) (search.Filters, error) {
	f := search.Filters{
		NamePattern:     opts.name,
		NameRegex:       opts.regex,
		Directories:     dirs,
		StrictDirectory: opts.strict,
		IgnoreCase:      opts.ignoreCase,
		Limit:           opts.limit,
	}

	if opts.limit < 0 {
		return f, serrors.ValidationError(fmt.Sprintf("--limit must not be negative, got %d", opts.limit), nil)
	}

	if opts.entryType != "" {
		t, err := store.ParseEntryType(opts.entryType)
		if err != nil {
			return f, serrors.ValidationError(err.Error(), nil).WithDetail("type", opts.entryType)
		}
		f.Type = &t
	}

	if opts.size != "" {
		r, err := search.ParseSize(opts.size)
		if err != nil {
			return f, err
		}
		f.Size = &r
	}

	bounds := []struct {
		flag  string
		value string
		dst   *time.Time
	}{
		{"--newer", opts.newer, &f.ModifiedAfter},
		{"--older", opts.older, &f.ModifiedBefore},
		{"--created-newer", opts.createdNewer, &f.CreatedAfter},
		{"--created-older", opts.createdOlder, &f.CreatedBefore},
	}
	for _, b := range bounds {
		if b.value == "" {
			continue
		}
		t, err := parseTimeBound(b.value, now)
		if err != nil {
			return f, serrors.ValidationError(fmt.Sprintf("invalid %s value %q", b.flag, b.value), err).
				WithSuggestion("Use a duration such as 36h or 7d, or a date such as 2006-01-02")
		}
		*b.dst = t
	}

	return f, nil
}

// dateLayouts are tried in order for absolute times, in the local zone.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimeBound accepts a duration before now (Go syntax or whole days
// such as 7d) or an absolute date.
func parseTimeBound(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)

	if days, ok := strings.CutSuffix(s, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative duration %s", s)
		}
		return now.Add(-d), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a duration or date: %q", s)
}
