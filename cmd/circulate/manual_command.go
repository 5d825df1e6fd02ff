package main

import (
	"github.com/spf13/cobra"

	"librarydesk/internal/circulation"
)

func newManualCommand(ctx *commandContext) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "manual CODE",
		Short: "Process a typed code; with --title an unknown code is registered and lent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDesk(cmd.Context(), cmd.ErrOrStderr(), func(d *desk) error {
				o, err := d.circ.ProcessManual(cmd.Context(), ctx.user(), args[0], title)
				printResult(cmd.OutOrStdout(), circulation.Present(o, err))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title to register the book under when the code is unknown")
	return cmd
}
