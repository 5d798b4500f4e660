package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"intentio/backend/internal/config"
	"intentio/backend/internal/service"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token signed with the configured secret",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	token, err := issueToken(cfg, tokenSubject, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func issueToken(cfg *config.Config, subject string, ttl time.Duration) (string, error) {
	if cfg.Auth.Secret == "" {
		return "", fmt.Errorf("auth.secret is not configured")
	}
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}
	result, apiErr := service.NewAuthService(cfg.Auth.Secret, cfg.Auth.PassphraseHash, ttl).IssueToken(subject)
	if apiErr != nil {
		return "", apiErr
	}
	return result.Token, nil
}
