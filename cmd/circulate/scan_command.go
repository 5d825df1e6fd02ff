package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"librarydesk/internal/circulation"
	"librarydesk/internal/identifier"
	"librarydesk/internal/scanner"
)

const skipTitle = "-"

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		debounce time.Duration
		register bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Process codes from a keyboard-wedge scanner or stdin, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("debounce") {
				d, err := ctx.scanDebounce()
				if err != nil {
					return err
				}
				debounce = d
			}
			in := cmd.InOrStdin()
			if !cmd.Flags().Changed("register") {
				register = isTerminal(in)
			}
			return ctx.withDesk(cmd.Context(), cmd.ErrOrStderr(), func(d *desk) error {
				return runScanSession(cmd, d, ctx, in, debounce, register)
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Ignore a repeated code within this window (default profile desk.scan_debounce, then $SCAN_DEBOUNCE)")
	cmd.Flags().BoolVar(&register, "register", false, "After an unknown code, read the next line as its title and register it (default: on for terminals)")
	return cmd
}

func runScanSession(cmd *cobra.Command, d *desk, ctx *commandContext, in io.Reader, debounce time.Duration, register bool) error {
	out := cmd.OutOrStdout()
	log, err := ctx.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	// Replies to the title prompt are not codes, so the session hands over
	// every line and only scanned codes pass through the debouncer.
	session := scanner.NewSession(scanner.NewLineSource(in), scanner.WithLogger(log))
	debouncer := scanner.NewDebouncer(debounce, nil)
	events, err := session.Start(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = session.Stop() }()

	user := ctx.user()
	pending := ""
	for ev := range events {
		if ev.Err != nil {
			return ev.Err
		}
		if pending != "" {
			code := pending
			pending = ""
			if ev.Code == skipTitle {
				fmt.Fprintln(out, "Skipped.")
				continue
			}
			o, err := d.circ.ProcessManual(cmd.Context(), user, code, ev.Code)
			printResult(out, circulation.Present(o, err))
			continue
		}

		if !debouncer.Allow(identifier.Key(ev.Code)) {
			log.Debug("duplicate scan suppressed", "code", ev.Code)
			continue
		}
		o, err := d.circ.ProcessScan(cmd.Context(), user, ev.Code)
		printResult(out, circulation.Present(o, err))
		if err == nil && o.Action == circulation.ActionUnregistered && register {
			pending = ev.Code
			fmt.Fprintf(out, "Title for %s (%q to skip): ", o.Code, skipTitle)
		}
	}
	return cmd.Context().Err()
}
