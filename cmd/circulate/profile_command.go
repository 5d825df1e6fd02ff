package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"librarydesk/internal/profile"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or create the operator profile",
	}
	cmd.AddCommand(newProfileShowCommand(ctx))
	cmd.AddCommand(newProfileInitCommand(ctx))
	return cmd
}

func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective operator settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, exists, err := profile.Load(ctx.profilePath)
			if err != nil {
				return err
			}
			source := path
			if !exists {
				source = path + " (not found, using defaults)"
			}
			debounce, err := ctx.scanDebounce()
			if err != nil {
				return err
			}
			store := "postgres"
			switch {
			case ctx.memory:
				store = "memory"
			case ctx.sqlitePath != "":
				store = "sqlite " + ctx.sqlitePath
			}
			rows := [][]string{
				{"Profile", source},
				{"User", ctx.userID},
				{"Name", ctx.userName},
				{"Role", ctx.role},
				{"Store", store},
				{"Offline", fmt.Sprint(ctx.offline)},
				{"Scan debounce", debounce.String()},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows, nil))
			return nil
		},
	}
}

func newProfileInitCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a profile from the current flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, exists, err := profile.Load(ctx.profilePath)
			if err != nil {
				return err
			}
			if exists && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			p := profile.Default()
			p.User = profile.User{ID: ctx.userID, Name: ctx.userName, Role: ctx.role}
			p.Desk.SQLitePath = ctx.sqlitePath
			p.Desk.Offline = ctx.offline
			if err := profile.Save(path, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing profile")
	return cmd
}
