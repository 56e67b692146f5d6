package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/patientreg/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath  string
	Channel string
	Format  string // "text" | "json" | "yaml" | "csv"
	Verbose bool

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml", "csv"}

// NewRootCommand creates the root command for the patientreg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "patientreg",
		Short: "Local-first patient registry",
		Long: `patientreg keeps a patient table in a local SQLite file and keeps every
open tab's view of it in sync over a named broadcast channel.

Configuration is read from PATREG_* environment variables. The --db and
--channel flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitFailure, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			if opts.DBPath != "" {
				cfg.DBPath = opts.DBPath
			}
			if opts.Channel != "" {
				cfg.ChannelName = opts.Channel
			}
			opts.cfg = cfg

			// One-shot commands keep stderr for notices unless asked otherwise.
			level := slog.LevelWarn
			if opts.Verbose || cmd.Name() == "serve" {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the SQLite store (default $PATREG_DB_PATH or patient-db.sqlite)")
	cmd.PersistentFlags().StringVar(&opts.Channel, "channel", "", "broadcast channel name (default $PATREG_CHANNEL or patient-sync)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml|csv)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewHealthcheckCommand(opts))

	return cmd
}
