package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timefold/internal/config"
	"timefold/internal/types"
)

var forceInit bool

// presetsCmd lists the built-in seed scenarios
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in preset scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for i, p := range types.Presets() {
			fmt.Fprintf(out, "%d. %s %s\n   %s\n", i+1, p.Icon, p.Label, p.Description)
		}
		fmt.Fprintln(out, "\nUse: timefold run --preset N")
		return nil
	},
}

// configCmd groups configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage TIMEFOLD configuration",
}

// configInitCmd writes the default configuration file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Writes .timefold/config.yaml with default settings.

The API key is normally supplied through GOOGLE_API_KEY or GEMINI_API_KEY
(either exported or in a .env file) rather than stored in the file.`,
	RunE: runConfigInit,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath(workspace)
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	logger.Info("config written", zap.String("path", path))
	fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
	return nil
}
