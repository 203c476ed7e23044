package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"epilog/pkg/diagnosis"
	"epilog/pkg/patch"
	"epilog/pkg/server"

	"github.com/spf13/cobra"
)

// serveConfig holds flag overrides for the serve command.
type serveConfig struct {
	listen      string
	database    string
	projectRoot string
	debug       bool
}

// newServeCmd creates the "epilog serve" subcommand.
func newServeCmd() *cobra.Command {
	var flags serveConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the trace API server",
		Long:  "Starts the epilog trace API: session and event ingestion, per-session\nevent streaming, and the diagnose / apply-patch endpoints.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(".")
			if err != nil {
				return err
			}
			if flags.listen != "" {
				cfg.Listen = flags.listen
			}
			if flags.database != "" {
				cfg.Database = flags.database
			}
			if flags.projectRoot != "" {
				cfg.ProjectRoot = flags.projectRoot
			}

			if dir := filepath.Dir(cfg.Database); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create database directory: %w", err)
				}
			}

			store, err := server.OpenStore(cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			var diagnoser server.Diagnoser
			if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
				provider := diagnosis.NewOpenAIProvider(apiKey, cfg.OpenAIBase, cfg.Model)
				diagnoser = diagnosis.NewEngine(provider, store, cfg.ProjectRoot)
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "OPENAI_API_KEY not set; diagnosis endpoint disabled")
			}

			var patcher server.PatchApplier
			if cfg.ProjectRoot != "" {
				patcher = patch.NewApplier(cfg.ProjectRoot)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(store, diagnoser, patcher, flags.debug).Run(ctx, cfg.Listen)
		},
	}

	cmd.Flags().StringVar(&flags.listen, "listen", "", "listen address (default from config, :8000)")
	cmd.Flags().StringVar(&flags.database, "db", "", "sqlite database path (default .epilog/traces.db)")
	cmd.Flags().StringVar(&flags.projectRoot, "project-root", "", "root directory patches may modify")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "verbose request logging")

	return cmd
}
