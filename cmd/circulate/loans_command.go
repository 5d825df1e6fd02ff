package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const loanTimeLayout = "2006-01-02 15:04"

func newLoansCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "loans",
		Short: "List the operator's active loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDesk(cmd.Context(), cmd.ErrOrStderr(), func(d *desk) error {
				loans, err := d.circ.ActiveLoans(cmd.Context(), ctx.userID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(loans) == 0 {
					fmt.Fprintln(out, "No active loans.")
					return nil
				}
				rows := make([][]string, 0, len(loans))
				for _, l := range loans {
					overdue := ""
					if l.Overdue {
						overdue = "overdue"
					}
					rows = append(rows, []string{
						l.BookTitle,
						l.BookID,
						l.CheckedOutAt.In(time.Local).Format(loanTimeLayout),
						l.DueAt.In(time.Local).Format(loanTimeLayout),
						overdue,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Title", "Book", "Checked out", "Due", ""}, rows, nil))
				return nil
			})
		},
	}
}
