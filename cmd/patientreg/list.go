package main

import (
	"context"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered patient",
		Long: `Refresh a one-shot tab from the store and print every patient in
registration order.

Examples:
  patientreg list
  patientreg list --format yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), rootOpts, cmd)
		},
	}

	return cmd
}

func runList(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(ctx, opts.cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open registry", err)
	}
	defer a.Close()

	patients, err := a.tabs.Open().Registry.Refresh(ctx)
	if err != nil {
		return err
	}

	return newFormatter(cmd, opts).Patients(patients)
}
