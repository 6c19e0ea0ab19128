package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rdmrecords/internal/platform/config"
	"rdmrecords/internal/platform/middleware"
)

func newTokenCommand() *cobra.Command {
	var (
		userID   string
		clientID string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with JWT_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			token, err := middleware.NewHS256Validator(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer).
				Issue(userID, clientID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed")
	cmd.Flags().StringVar(&clientID, "client", "cli", "client id to embed")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
