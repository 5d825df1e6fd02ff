package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "circulate",
		Short:         "Library circulation desk",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.applyDefaults(cmd.Flags().Changed)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.profilePath, "profile", "", "Operator profile (default $XDG_CONFIG_HOME/librarydesk/profile.toml)")
	flags.StringVar(&ctx.userID, "user", "", "Operator user ID (default $CIRCULATE_USER, then profile, then $USER)")
	flags.StringVar(&ctx.userName, "name", "", "Operator display name")
	flags.StringVar(&ctx.role, "role", "staff", "Operator role")
	flags.BoolVar(&ctx.memory, "memory", false, "Use a seeded in-memory store")
	flags.StringVar(&ctx.sqlitePath, "sqlite", "", "Use a single-file desk database (default $SQLITE_PATH, then profile)")
	flags.IntVar(&ctx.seedCount, "seed-count", 50, "Books to seed into an empty --memory or --sqlite store")
	flags.BoolVar(&ctx.offline, "offline", false, "Skip bibliographic metadata lookups")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newManualCommand(ctx))
	rootCmd.AddCommand(newOCRCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newLoansCommand(ctx))
	rootCmd.AddCommand(newMetadataCommand(ctx))
	rootCmd.AddCommand(newEnrichCommand(ctx))
	rootCmd.AddCommand(newProfileCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}
