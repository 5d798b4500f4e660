package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"intentio/backend/internal/service"
)

var hashPassphraseCmd = &cobra.Command{
	Use:   "hash-passphrase [passphrase]",
	Short: "Print a bcrypt hash for auth.passphrase_hash",
	Long: `Print a bcrypt hash of the passphrase given as argument, or of the first
line of standard input when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassphrase,
}

func init() {
	rootCmd.AddCommand(hashPassphraseCmd)
}

func runHashPassphrase(cmd *cobra.Command, args []string) error {
	var passphrase string
	if len(args) == 1 {
		passphrase = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		passphrase = strings.TrimRight(line, "\r\n")
	}
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}

	hash, err := service.HashPassphrase(passphrase)
	if err != nil {
		return fmt.Errorf("failed to hash passphrase: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
