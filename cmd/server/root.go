package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Nikhil-Joson/HomeCanvas/internal/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "homecanvas",
		Short: "Place product photos into room scenes with an image model",
		Long: `HomeCanvas composites a product image into a room scene at a chosen
position, then refines the result through chat edits with undo and redo.

Run "homecanvas serve" for the web studio, or use the offline commands to
compose, edit and check placement mapping from the shell.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newComposeCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newMapCmd())

	return cmd
}

// loadConfig reads the environment and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}
