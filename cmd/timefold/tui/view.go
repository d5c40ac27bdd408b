package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"timefold/cmd/timefold/ui"
	"timefold/internal/session"
	"timefold/internal/types"
)

// chaosActiveText is shown in the summary when chaos was injected but the model raised no alert.
const chaosActiveText = "Chaos Injection Active"

// View renders the current screen.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.header())
	sb.WriteString("\n\n")

	switch m.viewMode {
	case FilePickerView:
		sb.WriteString(m.styles.Subtitle.Render("Pick a JPEG or PNG (esc to cancel)"))
		sb.WriteString("\n" + m.filepicker.View())
	case ReportView:
		sb.WriteString(m.viewport.View())
		sb.WriteString("\n" + m.styles.Footer.Render("esc back · ↑/↓ scroll · q quit"))
		return sb.String()
	default:
		snap := m.session.Snapshot()
		switch snap.Stage {
		case types.StageInput:
			sb.WriteString(m.inputView())
		case types.StageRecruiting:
			sb.WriteString(m.recruitingView(snap))
		case types.StageSimulating:
			sb.WriteString(m.simulatingView(snap))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys.forStage(m.session.Stage())))
	return sb.String()
}

func (m Model) header() string {
	meta := m.session.Stage().String()
	if m.modelName != "" {
		meta += " · " + m.modelName
	}
	return ui.Logo(m.styles) + "  " + m.styles.Badge.Render(meta)
}

func (m Model) statusLine() string {
	switch {
	case m.busy:
		return m.spinner.View() + " " + m.styles.Body.Render(m.busyLabel)
	case m.err != nil && m.status != "":
		return m.styles.Error.Render(m.status)
	case m.status != "":
		return m.styles.Muted.Render(m.status)
	}
	return ""
}

func (m Model) inputView() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Bold.Render("1. Initialize Timeline") + "\n\n")

	sb.WriteString(m.styles.Subtitle.Render("Presets") + "\n")
	for i, p := range types.Presets() {
		fmt.Fprintf(&sb, "  alt+%d  %s %s\n", i+1, p.Icon, p.Label)
	}
	sb.WriteString("\n")

	sb.WriteString(m.textarea.View() + "\n")
	if m.image != nil {
		sb.WriteString(m.styles.Success.Render("📎 "+m.image.Name) + "\n")
	}
	return sb.String()
}

func (m Model) recruitingView(snap session.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Bold.Render("2. Assemble Council") + "\n")
	sb.WriteString(m.styles.Subtitle.Render("Context: "+snap.Context()) + "\n\n")

	if snap.Council == nil {
		if !m.busy {
			sb.WriteString(m.styles.Muted.Render("No council. Press r to recruit.") + "\n")
		}
		return sb.String()
	}
	sb.WriteString(m.councilCards(*snap.Council) + "\n")
	return sb.String()
}

func (m Model) councilCards(c types.Council) string {
	width := (m.width - 8) / types.CouncilSize
	if width < 18 {
		width = 18
	}
	cards := make([]string, 0, len(c.Agents))
	for _, a := range c.Agents {
		body := lipgloss.JoinVertical(lipgloss.Center,
			a.Avatar,
			m.styles.AgentName.Render(a.Name),
			m.styles.Muted.Render(a.Role),
			m.styles.Divider.Render(strings.Repeat("─", width-6)),
			m.styles.Body.Render(a.Stance),
		)
		cards = append(cards, m.styles.Card.Width(width).Align(lipgloss.Center).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m Model) simulatingView(snap session.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Bold.Render("3. Timeline Simulation") + "\n\n")
	sb.WriteString(m.treeView(snap) + "\n")

	if snap.Simulation == nil {
		if !m.busy {
			sb.WriteString(m.styles.Muted.Render("No scenarios. Press r to simulate or x to inject chaos.") + "\n")
		}
		return sb.String()
	}

	sb.WriteString(m.summaryView(snap) + "\n\n")
	for i, sc := range snap.Simulation.Scenarios {
		sb.WriteString(m.scenarioCard(i+1, sc) + "\n")
	}
	return sb.String()
}

func (m Model) summaryView(snap session.Snapshot) string {
	lines := []string{m.styles.Bold.Render("Executive Summary"), snap.Simulation.Synthesis}
	switch {
	case snap.Simulation.HasAlert():
		lines = append(lines, m.styles.Alert.Render("⚠ BLACK SWAN: "+snap.Simulation.BlackSwanAlert))
	case snap.LastChaos:
		lines = append(lines, m.styles.Alert.Render("⚠ "+chaosActiveText))
	}
	return m.styles.Summary.Render(strings.Join(lines, "\n"))
}

func (m Model) scenarioCard(n int, sc types.Scenario) string {
	color := ui.RiskColor(sc.RiskLevel)
	title := m.styles.ScenarioTitle.Foreground(color).Render(fmt.Sprintf("[%d] %s", n, sc.Title))
	metrics := fmt.Sprintf("Risk: %s · Prob: %d%% · Impact: %d/10 · %s",
		sc.RiskLevel, sc.Probability, sc.ImpactScore, sc.TimeHorizon)

	parts := []string{title, m.styles.Muted.Render(metrics), m.styles.Body.Render(sc.Description)}
	if m.showReasoning {
		trace := fmt.Sprintf("Logic: %s\nData Confidence: %d%% · Assumption Stability: %d%%",
			sc.ReasoningTrace, sc.DataConfidence, sc.AssumptionStability)
		parts = append(parts, m.styles.ReasoningBox.Render(trace))
	}
	width := m.width - 4
	if width < 30 {
		width = 30
	}
	return m.styles.Card.Width(width).BorderForeground(color).Render(strings.Join(parts, "\n"))
}
