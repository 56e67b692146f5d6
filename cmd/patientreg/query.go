package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <statement>",
		Short: "Run a console statement",
		Long: `Run an ad-hoc SQL statement against the store from a one-shot tab.

Statements starting with drop, delete, update or truncate are blocked before
they reach the store. Arguments are joined with spaces.

Examples:
  patientreg query "SELECT * FROM patients WHERE age > 30"
  patientreg query --format csv "SELECT name, contact FROM patients" > contacts.csv`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), opts, cmd, strings.Join(args, " "))
		},
	}

	return cmd
}

func runQuery(ctx context.Context, opts *QueryOptions, cmd *cobra.Command, stmt string) error {
	a, err := openApp(ctx, opts.cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open registry", err)
	}
	defer a.Close()

	tab := a.tabs.Open()
	rs, err := tab.Registry.RunQuery(ctx, stmt)
	if err != nil {
		return err
	}

	out := newFormatter(cmd, opts.RootOptions)
	if len(rs.Columns) == 0 && rs.RowsAffected > 0 {
		out.Notice("%d row(s) affected", rs.RowsAffected)
	}
	return out.ResultSet(rs)
}
