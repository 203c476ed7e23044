package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// newReplayCmd creates the "epilog replay" subcommand.
func newReplayCmd() *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Launch the interactive replay timeline",
		Long:  "Opens the epilog replay TUI: pick a session, scrub through its events,\nfollow live traces, and run diagnosis on failures.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("replay requires an interactive terminal")
			}

			cfg, err := loadConfig(".")
			if err != nil {
				return err
			}

			args := []string{"--api", cfg.APIURL}
			if fromFile != "" {
				args = append(args, "--from-file", fromFile)
			}

			replayCmd := exec.CommandContext(cmd.Context(), "epilog-replay", args...)
			replayCmd.Stdin = os.Stdin
			replayCmd.Stdout = os.Stdout
			replayCmd.Stderr = os.Stderr

			if err := replayCmd.Run(); err != nil {
				return fmt.Errorf("run epilog-replay: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&fromFile, "from-file", "", "replay a local JSONL trace dump instead of the API")

	return cmd
}
