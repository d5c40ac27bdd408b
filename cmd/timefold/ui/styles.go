// Package ui provides the visual styling for the TIMEFOLD terminal interface.
// The dark palette follows the foresight-console look: near-black canvas,
// cyan accent, amber reasoning boxes.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"timefold/internal/types"
)

var (
	// Light Mode Colors
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#161B22")
	LightPrimary    = lipgloss.Color("#0077A8")
	LightAccent     = lipgloss.Color("#00C9FF")
	LightMuted      = lipgloss.Color("#6E7681")
	LightBorder     = lipgloss.Color("#D0D7DE")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#0E1117")
	DarkForeground = lipgloss.Color("#C9D1D9")
	DarkPrimary    = lipgloss.Color("#00C9FF")
	DarkAccent     = lipgloss.Color("#92FE9D")
	DarkMuted      = lipgloss.Color("#8B949E")
	DarkBorder     = lipgloss.Color("#30363D")
	DarkCard       = lipgloss.Color("#161B22")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#FF4B4B")
	Caution     = lipgloss.Color("#FFA500")
	Success     = lipgloss.Color("#3FB950")
	Reasoning   = lipgloss.Color("#1F1F1F")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// DetectTheme picks dark mode from TIMEFOLD_DARK_MODE=1 or a dark COLORFGBG
// background, light otherwise.
func DetectTheme() Theme {
	if os.Getenv("TIMEFOLD_DARK_MODE") == "1" {
		return DarkTheme()
	}

	// Format is usually "foreground;background"
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) >= 2 {
			if bgIdx, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
				// 0-6 and 8 (dark grey) are likely dark backgrounds
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}

	return LightTheme()
}

// RiskColor maps a risk level to its card color: critical red, high orange, else green.
func RiskColor(risk types.RiskLevel) lipgloss.Color {
	r := string(risk)
	switch {
	case strings.Contains(r, "Critical"):
		return Destructive
	case strings.Contains(r, "High"):
		return Caution
	}
	return Success
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style

	// Components
	Card          lipgloss.Style
	AgentName     lipgloss.Style
	ScenarioTitle lipgloss.Style
	ReasoningBox  lipgloss.Style
	Alert         lipgloss.Style
	Summary       lipgloss.Style
	Spinner       lipgloss.Style
	Divider       lipgloss.Style
	Badge         lipgloss.Style
	SpineNode     lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Caution).
			Bold(true),

		Card: lipgloss.NewStyle().
			Background(theme.Card).
			Foreground(theme.Foreground).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		AgentName: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Align(lipgloss.Center),

		ScenarioTitle: lipgloss.NewStyle().
			Bold(true),

		ReasoningBox: lipgloss.NewStyle().
			Background(Reasoning).
			Foreground(lipgloss.Color("#d0d0d0")).
			Padding(0, 1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(Caution),

		Alert: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(Destructive).
			Padding(0, 1).
			Bold(true),

		Summary: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Primary),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Primary),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1).
			Bold(true),

		SpineNode: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// Logo returns the TIMEFOLD banner.
func Logo(s Styles) string {
	return s.Title.Render("⏳ TIMEFOLD") + " " + s.Subtitle.Render("Advanced Strategic Foresight Engine")
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
