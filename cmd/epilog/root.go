package main

import (
	"fmt"

	"epilog/internal/version"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root epilog command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "epilog",
		Short:         "Agent trace capture and replay",
		Long:          "epilog records AI agent execution traces and replays them.\nIt runs the trace API server and the interactive replay timeline.",
		Version:       fmt.Sprintf("epilog %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newReplayCmd(),
		newSessionsCmd(),
	)

	return cmd
}
