package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "intentio",
	Short: "intentio - focus timer backend",
	Long: `intentio runs the Pomodoro timer behind the intentio desktop app. It
drives focus and break phases, keeps the queue of upcoming intents, records
completed focus sessions in SQLite and streams timer events over HTTP.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
