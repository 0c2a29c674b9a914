package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/searchfs/searchfs/internal/search"
	"github.com/searchfs/searchfs/internal/ui"
)

func newInfoCmd(root *rootOptions) *cobra.Command {
	var (
		check      bool
		jsonOutput bool
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show what the index contains and when it was built",
		Example: `  searchfs info
  searchfs info --check
  searchfs info --db /tmp/files.db --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInfo(cmd.Context(), cmd, root, check, jsonOutput, noColor)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Run an integrity check of the index file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")

	return cmd
}

func runInfo(ctx context.Context, cmd *cobra.Command, root *rootOptions, check, jsonOutput, noColor bool) error {
	dbPath, err := root.databasePath()
	if err != nil {
		return err
	}

	engine, err := search.Open(ctx, dbPath, search.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	info, err := engine.Info(ctx)
	if err != nil {
		return err
	}

	status := ui.StatusInfo{
		Path:          info.Path,
		SizeBytes:     info.SizeBytes,
		SchemaVersion: info.SchemaVersion,
		BuildID:       info.BuildID,
		BuiltAt:       info.BuiltAt,
		BuildDuration: info.BuildDuration,
		Version:       info.Version,
		Roots:         info.Roots,
		Entries:       info.Entries,
		Files:         info.Files,
		Directories:   info.Directories,
		Skipped:       info.Skipped,
	}

	if check {
		problems, err := engine.Check(ctx)
		if err != nil {
			return err
		}
		status.Checked = true
		status.Problems = problems
		slog.Info("index_checked", slog.String("db", dbPath), slog.Int("problems", len(problems)))
	}

	r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)
	if jsonOutput {
		return r.RenderJSON(status)
	}
	return r.Render(status)
}
