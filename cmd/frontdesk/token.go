package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuda/frontdesk/internal/auth"
	"github.com/gosuda/frontdesk/internal/config"
)

var ( //nolint:gochecknoglobals // cobra flags
	tokenUser  string
	tokenAdmin bool
	tokenTTL   time.Duration
)

func init() { //nolint:gochecknoinits // cobra registration
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "subject of the token (recorded as answered_by)")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "grant the supervisor (admin) role")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default FRONTDESK_JWT_TOKEN_TTL)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command
	Use:   "token",
	Short: "Mint a signed access token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ttl := tokenTTL
		if ttl == 0 {
			ttl = cfg.JWT.TokenTTL
		}

		tok, err := auth.IssueToken(cfg.JWT.Secret, tokenUser, tokenAdmin, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}
