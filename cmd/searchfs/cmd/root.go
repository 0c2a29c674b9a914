// Package cmd provides the CLI commands for searchfs.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/searchfs/searchfs/internal/config"
	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/logging"
	"github.com/searchfs/searchfs/pkg/version"
)

// Exit codes returned by Execute. ExitUsage covers invalid arguments and
// filters; ExitInterrupted means a signal cancelled the command.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// rootOptions holds the persistent flags and state shared by subcommands.
type rootOptions struct {
	debug      bool
	configPath string
	database   string

	cfg            *config.Config
	loggingCleanup func()
}

// NewRootCmd creates the root command for the searchfs CLI.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "searchfs",
		Short: "Index a directory tree once, then search it without walking the disk",
		Long: `searchfs records the name, type, size and timestamps of every file and
directory below the given roots in a single SQLite file, then answers name,
regex, size, type, time and directory queries against that file.

Rebuild the index with 'searchfs index'; searches keep working while a
rebuild runs and switch to the new index once it is complete.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.setupLogging(cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			opts.close()
			return nil
		},
	}

	cmd.SetVersionTemplate("searchfs version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.searchfs/logs/")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.config/searchfs/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.database, "db", "", "Index file (default from config, ~/.searchfs/searchfs.db)")

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd, opts
}

// config loads the effective configuration once.
func (o *rootOptions) config() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	o.cfg = cfg
	return cfg, nil
}

// databasePath returns --db if set, else the configured database.
func (o *rootOptions) databasePath() (string, error) {
	if o.database != "" {
		return config.ExpandPath(o.database), nil
	}
	cfg, err := o.config()
	if err != nil {
		return "", err
	}
	return cfg.Database, nil
}

// setupLogging sends JSON logs to the rotating log file. A broken config
// falls back to defaults here; the command reports it when it loads config.
func (o *rootOptions) setupLogging(stderr io.Writer) {
	cfg, err := o.config()
	if err != nil {
		cfg = config.NewConfig()
	}

	logCfg := logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  logging.DefaultLogPath(),
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	if o.debug {
		logCfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "warning: file logging disabled: %v\n", err)
		slog.SetDefault(logging.Nop())
		return
	}
	o.loggingCleanup = cleanup
	slog.SetDefault(logger)

	if o.debug {
		slog.Debug("debug_logging_enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Short()))
	}
}

func (o *rootOptions) close() {
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd, opts := newRootCmd()
	defer opts.close()

	err := cmd.Execute()
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		slog.Info("command_interrupted")
		_, _ = fmt.Fprintln(os.Stderr, "Interrupted.")
		return ExitInterrupted
	}
	slog.Error("command_failed", serrors.FormatForLog(err)...)
	if _, ok := serrors.As(err); !ok {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	if opts.debug {
		_, _ = fmt.Fprintln(os.Stderr, serrors.FormatForUser(err, true))
	} else {
		_, _ = fmt.Fprint(os.Stderr, serrors.FormatForCLI(err))
	}
	if serrors.GetCategory(err) == serrors.CategoryValidation {
		return ExitUsage
	}
	return ExitError
}
