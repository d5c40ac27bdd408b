package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"timefold/internal/config"
	"timefold/internal/logging"
	"timefold/internal/store"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Resolved in PersistentPreRunE
	cfg *config.Config

	// Logger for non-interactive commands
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "timefold",
	Short: "TIMEFOLD - Advanced Strategic Foresight Engine",
	Long: `TIMEFOLD recruits a council of three synthetic experts, has them debate a
situation into three divergent future scenarios, and lets you walk a chosen
path deeper. The explored history can be exported as a Markdown report or a
Graphviz tree.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runInteractive,
}

func init() {
	// Assigned here to avoid an initialization cycle (isInteractive refers to rootCmd).
	rootCmd.PersistentPreRunE = rootPersistentPreRunE

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.timefold/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Model call timeout (overrides llm.timeout)")

	addInteractiveFlags(rootCmd)
	addInteractiveFlags(runCmd)

	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum sessions to list")
	reportCmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: ui.output_dir)")
	graphCmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: ui.output_dir)")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(runCmd, presetsCmd, sessionsCmd, reportCmd, graphCmd, configCmd)
}

// rootPersistentPreRunE resolves the workspace, config and logging for every command.
func rootPersistentPreRunE(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	workspace = ws

	if err := config.LoadDotEnv(ws); err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path = config.DefaultPath(ws)
	}
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	if timeout > 0 {
		cfg.LLM.Timeout = timeout.String()
	}

	if err := logging.Initialize(ws, cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("TIMEFOLD %s starting: command=%s workspace=%s", cfg.Version, cmd.Name(), ws)

	// The interactive interface owns the terminal
	if isInteractive(cmd) {
		logger = zap.NewNop()
		return nil
	}

	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func resolveWorkspace() (string, error) {
	if workspace != "" {
		return filepath.Abs(workspace)
	}
	return os.Getwd()
}

func isInteractive(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == runCmd
}

// outputDir resolves the export directory: --out, then ui.output_dir, relative to the workspace.
func outputDir() string {
	dir := outDir
	if dir == "" {
		dir = cfg.UI.OutputDir
	}
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workspace, dir)
	}
	return dir
}

// openArchive opens the configured session archive.
func openArchive() (*store.Archive, error) {
	path := cfg.Archive.DatabasePath
	if path == "" {
		path = filepath.Join(config.DefaultDir, "archive.db")
	}
	if path != ":memory:" && !filepath.IsAbs(path) {
		path = filepath.Join(workspace, path)
	}
	return store.Open(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
