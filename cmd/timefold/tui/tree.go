package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"timefold/internal/render"
	"timefold/internal/session"
)

// treeView draws the history tree: spine left to right, leaves below the last node.
func (m Model) treeView(snap session.Snapshot) string {
	tree := render.BuildTree(snap.History, snap.Simulation)
	if len(tree.Nodes) == 0 {
		return ""
	}

	edgeLabels := make(map[string]string, len(tree.Edges))
	for _, e := range tree.Edges {
		edgeLabels[e.To] = e.Label
	}

	arrow := lipgloss.NewStyle().Foreground(lipgloss.Color(render.EdgeColor)).Render(" → ")
	var spine, leaves []string
	for _, n := range tree.Nodes {
		style := m.styles.SpineNode.Background(lipgloss.Color(n.Fill))
		switch n.Kind {
		case render.KindSpine:
			spine = append(spine, style.Render(n.Label()))
		case render.KindLeaf:
			leaf := style.Render(strings.Join(n.Lines, " · "))
			if lbl := edgeLabels[n.ID]; lbl != "" {
				leaf = m.styles.Muted.Render(lbl+" ") + leaf
			}
			leaves = append(leaves, leaf)
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(spine, arrow))
	for i, l := range leaves {
		branch := "├─ "
		if i == len(leaves)-1 {
			branch = "└─ "
		}
		sb.WriteString("\n  " + m.styles.Divider.Render(branch) + l)
	}
	return sb.String()
}
