// Package tui implements the interactive TIMEFOLD terminal interface.
// The Model is a thin view over a session.Session: every state change goes
// through session methods, and model calls run as tea.Cmds off the UI loop.
package tui

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"timefold/cmd/timefold/ui"
	"timefold/internal/logging"
	"timefold/internal/perception"
	"timefold/internal/session"
	"timefold/internal/types"
)

// ViewMode determines which component is focused.
type ViewMode int

const (
	MainView ViewMode = iota
	FilePickerView
	ReportView
)

// Config holds what the interface needs from the command that starts it.
type Config struct {
	Session       *session.Session
	Styles        ui.Styles
	OutputDir     string
	ShowReasoning bool
	Timeout       time.Duration
	ModelName     string
	// Image preloads an attachment for the first Begin.
	Image *types.Image
	// Preset, when >= 0, starts the session from that preset immediately.
	Preset int
	// Context bounds every model call; defaults to context.Background().
	Context context.Context
}

// Model is the bubbletea model.
type Model struct {
	session *session.Session
	styles  ui.Styles
	keys    keyMap
	help    help.Model

	textarea   textarea.Model
	spinner    spinner.Model
	viewport   viewport.Model
	filepicker filepicker.Model
	renderer   *glamour.TermRenderer

	ctx     context.Context
	timeout time.Duration

	viewMode      ViewMode
	outputDir     string
	modelName     string
	showReasoning bool
	image         *types.Image // attachment staged for the next Begin
	startPreset   int

	busy      bool
	busyLabel string
	status    string
	err       error

	width  int
	height int
}

// New builds the model.
func New(cfg Config) Model {
	styles := cfg.Styles

	ta := textarea.New()
	ta.Placeholder = "Describe the event, trend, or decision to analyze..."
	ta.Focus()
	ta.CharLimit = 4096
	ta.SetWidth(80)
	ta.SetHeight(4)
	ta.ShowLineNumbers = false
	// enter submits; alt+enter inserts a newline
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)

	stylePath := "light"
	if styles.Theme.IsDark {
		stylePath = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(stylePath),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		logging.Get(logging.CategoryUI).Warn("Markdown renderer unavailable: %v", err)
	}

	fp := filepicker.New()
	fp.AllowedTypes = perception.ImageExtensions
	if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	}

	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	return Model{
		session:       cfg.Session,
		styles:        styles,
		keys:          defaultKeyMap(),
		help:          help.New(),
		textarea:      ta,
		spinner:       sp,
		viewport:      vp,
		filepicker:    fp,
		renderer:      renderer,
		ctx:           ctx,
		timeout:       cfg.Timeout,
		outputDir:     outputDir,
		modelName:     cfg.ModelName,
		showReasoning: cfg.ShowReasoning,
		image:         cfg.Image,
		startPreset:   cfg.Preset,
		width:         80,
		height:        24,
	}
}

// Init starts the cursor blink, or the preset run when one was requested.
func (m Model) Init() tea.Cmd {
	if m.startPreset >= 0 && m.session.Stage() == types.StageInput {
		idx := m.startPreset
		return func() tea.Msg { return presetMsg(idx) }
	}
	return textarea.Blink
}
