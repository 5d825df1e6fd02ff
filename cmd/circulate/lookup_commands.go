package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"librarydesk/internal/book"
	"librarydesk/internal/entity"
	"librarydesk/internal/identifier"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve CODE",
		Short: "Show the inventory record a code resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDesk(cmd.Context(), cmd.ErrOrStderr(), func(d *desk) error {
				b, err := d.books.Resolve(cmd.Context(), args[0])
				if errors.Is(err, book.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "No book matches %q.\n", args[0])
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, bookDetail(b), nil))
				return nil
			})
		},
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the inventory by title or author",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			return ctx.withDesk(cmd.Context(), cmd.ErrOrStderr(), func(d *desk) error {
				books, err := d.books.Search(cmd.Context(), q, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(books) == 0 {
					fmt.Fprintf(out, "No books match %q.\n", q)
					return nil
				}
				rows := make([][]string, 0, len(books))
				for _, b := range books {
					rows = append(rows, []string{
						b.ID, b.Title, b.Author, b.ISBN13,
						fmt.Sprintf("%d/%d", b.AvailableCopies, b.TotalCopies),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Author", "ISBN-13", "Available"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	return cmd
}

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata ISBN",
		Short: "Look up bibliographic metadata for an ISBN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			isbn, ok := identifier.Normalize(args[0])
			if !ok {
				return fmt.Errorf("%q is not an ISBN", args[0])
			}
			return ctx.withDesk(cmd.Context(), cmd.ErrOrStderr(), func(d *desk) error {
				svc, err := d.metadataService()
				if err != nil {
					return err
				}
				m := svc.Fetch(cmd.Context(), isbn)
				out := cmd.OutOrStdout()
				if m.Empty() {
					fmt.Fprintf(out, "No metadata found for %s.\n", isbn)
					return nil
				}
				rows := [][]string{
					{"ISBN-13", isbn},
					{"Title", m.Title},
					{"Authors", m.Authors},
					{"Publisher", m.Publisher},
					{"Published", m.Published},
					{"Source", m.Source},
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func bookDetail(b entity.Book) [][]string {
	rows := [][]string{
		{"ID", b.ID},
		{"Title", b.Title},
		{"Author", b.Author},
	}
	for _, f := range []struct{ label, value string }{
		{"ISBN-13", b.ISBN13},
		{"ISBN", b.LegacyISBN},
		{"Book ID", b.ExternalCode},
		{"Barcode", b.Barcode},
		{"Location", b.Location},
	} {
		if f.value != "" {
			rows = append(rows, []string{f.label, f.value})
		}
	}
	return append(rows, []string{"Available", strconv.Itoa(b.AvailableCopies) + "/" + strconv.Itoa(b.TotalCopies)})
}
