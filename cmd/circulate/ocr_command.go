package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"librarydesk/internal/circulation"
	"librarydesk/internal/identifier"
)

func newOCRCommand(ctx *commandContext) *cobra.Command {
	var pick int
	cmd := &cobra.Command{
		Use:   "ocr",
		Short: "Extract identifier candidates from OCR text on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			candidates := identifier.ExtractCandidates(string(raw))
			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "No identifier candidates found.")
				return nil
			}

			rows := make([][]string, 0, len(candidates))
			for i, c := range candidates {
				isbn, _ := identifier.Normalize(c.Value)
				rows = append(rows, []string{strconv.Itoa(i + 1), c.Value, c.Rule, isbn})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Candidate", "Rule", "ISBN-13"}, rows, []columnAlignment{alignRight}))

			if pick == 0 {
				return nil
			}
			if pick < 0 || pick > len(candidates) {
				return fmt.Errorf("--pick must be between 1 and %d", len(candidates))
			}
			chosen := candidates[pick-1].Value
			return ctx.withDesk(cmd.Context(), cmd.ErrOrStderr(), func(d *desk) error {
				o, err := d.circ.ProcessScan(cmd.Context(), ctx.user(), chosen)
				printResult(out, circulation.Present(o, err))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&pick, "pick", 0, "Process the Nth candidate (1-based)")
	return cmd
}
