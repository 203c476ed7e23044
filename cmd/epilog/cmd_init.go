package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newInitCmd creates the "epilog init" subcommand.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold epilog configuration",
		Long:  "Creates .epilog/config.yaml in the current directory with default\nserver and replay settings.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, ".", force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config.yaml")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	target := filepath.Join(dir, configDir, "config.yaml")

	if _, err := os.Stat(target); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", target)
	}

	if err := os.MkdirAll(filepath.Join(dir, configDir), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", configDir, err)
	}

	cfg := defaultConfig()
	cfg.ProjectRoot = "."
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	header := []byte("# epilog configuration. Values here are defaults; flags and\n# EPILOG_* environment variables take precedence.\n")
	if err := os.WriteFile(target, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
	return nil
}
