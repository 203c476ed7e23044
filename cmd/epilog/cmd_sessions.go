package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"epilog/pkg/client"
	"epilog/pkg/trace"

	"github.com/spf13/cobra"
)

// formatSessionsTable formats a slice of sessions as a tabular string.
func formatSessionsTable(sessions []trace.Session) string {
	if len(sessions) == 0 {
		return "No sessions found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-30s %-10s %-8s %s\n", "ID", "NAME", "STATUS", "EVENTS", "STARTED")
	for _, s := range sessions {
		name := s.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "%-38s %-30s %-10s %-8d %s\n",
			s.ID, name, s.Status, s.EventCount, s.StartedAt.Local().Format(time.RFC3339))
	}
	return b.String()
}

// newSessionsCmd creates the "epilog sessions" subcommand.
func newSessionsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
		apiURL string
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded trace sessions",
		Long:  "Lists trace sessions from the API, newest first.\nOutputs a table with id, name, status, event count, and start time.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apiURL == "" {
				cfg, err := loadConfig(".")
				if err != nil {
					return err
				}
				apiURL = cfg.APIURL
			}

			sessions, err := client.New(apiURL).ListSessions(cmd.Context(), 0, limit)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}

			fmt.Fprint(cmd.OutOrStdout(), formatSessionsTable(sessions))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of sessions to return")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().StringVar(&apiURL, "api", "", "API base URL (default from config)")

	return cmd
}
