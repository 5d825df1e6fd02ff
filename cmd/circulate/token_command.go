package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"librarydesk/internal/platform/crypto"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the operator, for use against the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			token, _, err := crypto.GenerateToken(cfg.JWTSecret, ctx.user(), ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "Token lifetime")
	return cmd
}
