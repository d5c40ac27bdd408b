package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"timefold/cmd/timefold/tui"
	"timefold/cmd/timefold/ui"
	"timefold/internal/config"
	"timefold/internal/logging"
	"timefold/internal/perception"
	"timefold/internal/session"
	"timefold/internal/store"
	"timefold/internal/types"
)

// securityAlert is printed when no API key is configured; the program stops before any interaction.
const securityAlert = "🚨 SECURITY ALERT: API Key not found. Set GOOGLE_API_KEY or GEMINI_API_KEY (environment or .env) or llm.api_key in the config file."

var (
	imagePath   string
	presetIndex int
)

// runCmd starts the interactive interface explicitly
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive foresight console",
	Long: `Starts the interactive interface.

Stages:
  1. Input       - describe a situation, pick a preset, or attach a chart/photo
  2. Recruiting  - review the recruited council, then confirm it
  3. Simulating  - read the scenarios, inject chaos, or explore a path deeper

Examples:
  timefold run --preset 3
  timefold run --image ./chart.png`,
	RunE: runInteractive,
}

func addInteractiveFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&imagePath, "image", "", "Attach a JPEG or PNG as visual context")
	cmd.Flags().IntVar(&presetIndex, "preset", 0, "Start immediately from preset N (1-3)")
}

func runInteractive(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Fprintln(cmd.ErrOrStderr(), securityAlert)
		}
		return err
	}
	if presetIndex < 0 || presetIndex > len(types.Presets()) {
		return fmt.Errorf("--preset must be between 1 and %d", len(types.Presets()))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var image *types.Image
	if imagePath != "" {
		img, err := perception.LoadImage(imagePath)
		if err != nil {
			return err
		}
		image = img
	}

	backend, err := perception.NewGeminiBackend(ctx, perception.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.ModelName(),
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.GetLLMTimeout(),
	})
	if err != nil {
		return err
	}

	opts := []session.Option{}
	if cfg.Archive.Enabled {
		archive, err := openArchive()
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("Archive disabled: %v", err)
		} else {
			defer archive.Close()
			opts = append(opts, session.WithObserver(store.NewRecorder(archive)))
		}
	}
	// calls past half the timeout are logged as slow
	gateway := perception.NewGateway(backend, perception.WithSlowCallThreshold(cfg.GetLLMTimeout()/2))
	sess := session.New(gateway, opts...)

	styles := ui.DefaultStyles()
	if cfg.UI.DarkMode {
		styles = ui.NewStyles(ui.DarkTheme())
	}

	model := tui.New(tui.Config{
		Session:       sess,
		Styles:        styles,
		OutputDir:     outputDir(),
		ShowReasoning: cfg.UI.ShowReasoning,
		Timeout:       cfg.GetLLMTimeout(),
		ModelName:     backend.Model(),
		Image:         image,
		Preset:        presetIndex - 1,
		Context:       ctx,
	})

	logging.UI("Starting interactive console: model=%s archive=%v", backend.Model(), cfg.Archive.Enabled)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("interactive console failed: %w", err)
	}
	return nil
}
