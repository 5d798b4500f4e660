package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"intentio/backend/internal/config"
	"intentio/backend/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running server's timer session and queue",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, "http://"+cfg.Server.Address+"/api/timer/status", nil)
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	if cfg.Auth.Secret != "" {
		token, err := issueToken(cfg, "status", time.Minute)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable at %s: %w", cfg.Server.Address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status request failed with %d: %s", resp.StatusCode, body)
	}

	var status service.StatusView
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	printStatus(cmd.OutOrStdout(), status)
	return nil
}

func printStatus(out io.Writer, status service.StatusView) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	cyan.Fprintln(out, "Timer")
	if status.Session == nil {
		yellow.Fprintln(out, "  no session, set an intent to start")
	} else {
		session := status.Session
		state := yellow.Sprint("stopped")
		if session.IsPlaying {
			state = green.Sprint("playing")
		}
		elapsed := time.Duration(session.ElapsedSeconds) * time.Second
		total := time.Duration(session.DurationSeconds()) * time.Second
		fmt.Fprintf(out, "  %s  %s / %s  %s\n", session.Kind, elapsed, total, state)
		fmt.Fprintf(out, "  intent #%d %s\n", session.Intent.ID, session.Intent.Label)
	}
	fmt.Fprintf(out, "  completed focus phases: %d\n", status.Iteration)

	cyan.Fprintln(out, "Queue")
	if len(status.Queue) == 0 {
		fmt.Fprintln(out, "  empty")
		return
	}
	for i, entry := range status.Queue {
		fmt.Fprintf(out, "  %d. #%d %s  %dm x%d\n", i, entry.Intent.ID, entry.Intent.Label, entry.DurationMinutes, entry.Iterations)
	}
}
