package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/patientreg/internal/application"
	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Name    string
	Age     string
	Gender  string
	Contact string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Register a patient",
		Long: `Register a patient from a one-shot tab.

Examples:
  patientreg submit --name "Jane Doe" --age 34 --gender Female --contact 555-1234
  patientreg submit --name "John Roe" --age 51 --gender male --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "patient name")
	cmd.Flags().StringVar(&opts.Age, "age", "", "age in whole years")
	cmd.Flags().StringVar(&opts.Gender, "gender", "", "Male, Female or Other")
	cmd.Flags().StringVar(&opts.Contact, "contact", "", "contact details")

	return cmd
}

func runSubmit(ctx context.Context, opts *SubmitOptions, cmd *cobra.Command) error {
	age, err := application.ParseAge(opts.Age)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, opts.cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open registry", err)
	}
	defer a.Close()

	tab := a.tabs.Open()
	p, err := tab.Registry.SubmitRecord(ctx, model.PatientInput{
		Name:    opts.Name,
		Age:     age,
		Gender:  opts.Gender,
		Contact: opts.Contact,
	})
	if err != nil {
		return err
	}

	out := newFormatter(cmd, opts.RootOptions)
	out.Notice("Patient registered (id %d)", p.ID)
	return out.Patient(p)
}
