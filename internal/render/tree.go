// Package render builds the history tree: a spine of explored steps with the
// current scenarios branching off its last node.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/emicklei/dot"

	"timefold/internal/logging"
	"timefold/internal/types"
)

// GraphFileName is the default file name for DOT exports.
const GraphFileName = "timefold_tree.dot"

// Colors used by the tree, shared with the terminal view.
const (
	Background   = "#0E1117"
	SpineFill    = "#21262D"
	EdgeColor    = "#555555"
	EdgeFont     = "#AAAAAA"
	FillCritical = "#8B0000"
	FillHigh     = "#B22222"
	FillLow      = "#006400"
	FillDefault  = "#003366"
)

// NodeKind distinguishes spine nodes from scenario leaves.
type NodeKind int

const (
	KindSpine NodeKind = iota
	KindLeaf
)

// Node is a tree node. Lines holds the label, one entry per rendered line.
type Node struct {
	ID    string
	Kind  NodeKind
	Lines []string
	Fill  string
}

// Label joins the label lines with newlines.
func (n Node) Label() string {
	return strings.Join(n.Lines, "\n")
}

// Edge connects two nodes by id.
type Edge struct {
	From  string
	To    string
	Label string
}

// Tree is a renderer-neutral description of the history graph.
type Tree struct {
	Nodes []Node
	Edges []Edge
}

// SpineID returns the node id of history entry i.
func SpineID(i int) string {
	return fmt.Sprintf("H_%d", i)
}

// LeafID returns the node id of a scenario.
func LeafID(scenarioID string) string {
	return "OPT_" + scenarioID
}

// RiskFill picks a leaf fill color by substring match on the lowercased risk label.
func RiskFill(risk types.RiskLevel) string {
	r := strings.ToLower(string(risk))
	switch {
	case strings.Contains(r, "critical"):
		return FillCritical
	case strings.Contains(r, "high"):
		return FillHigh
	case strings.Contains(r, "low"):
		return FillLow
	}
	return FillDefault
}

// BuildTree lays out history as a chain and attaches the scenarios of sim
// to its last node. Leaves are only attached when the spine is non-empty.
// The result depends only on the inputs.
func BuildTree(history []types.HistoryEntry, sim *types.SimulationBatch) Tree {
	var t Tree
	for i, step := range history {
		t.Nodes = append(t.Nodes, Node{
			ID:    SpineID(i),
			Kind:  KindSpine,
			Lines: []string{step.Title},
			Fill:  SpineFill,
		})
		if i > 0 {
			t.Edges = append(t.Edges, Edge{From: SpineID(i - 1), To: SpineID(i)})
		}
	}

	if len(history) == 0 || sim == nil {
		return t
	}

	last := SpineID(len(history) - 1)
	for _, sc := range sim.Scenarios {
		t.Nodes = append(t.Nodes, Node{
			ID:    LeafID(sc.ID),
			Kind:  KindLeaf,
			Lines: []string{sc.Title, string(sc.TimeHorizon), fmt.Sprintf("Prob: %d%%", sc.Probability)},
			Fill:  RiskFill(sc.RiskLevel),
		})
		t.Edges = append(t.Edges, Edge{From: last, To: LeafID(sc.ID), Label: fmt.Sprintf("Risk: %s", sc.RiskLevel)})
	}
	return t
}

// DOT serializes the tree as a Graphviz digraph.
func (t Tree) DOT() string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("bgcolor", Background)
	g.Attr("rankdir", "LR")

	nodes := make(map[string]dot.Node, len(t.Nodes))
	for _, n := range t.Nodes {
		dn := g.Node(n.ID).
			Attr("fontname", "Helvetica").
			Attr("fontcolor", "white").
			Attr("style", "filled").
			Attr("fillcolor", n.Fill)
		switch n.Kind {
		case KindSpine:
			dn = dn.Attr("label", n.Label()).
				Attr("shape", "box").
				Attr("penwidth", "2.0").
				Attr("color", "white")
		case KindLeaf:
			dn = dn.Attr("label", leafHTML(n.Lines)).
				Attr("shape", "note")
		}
		nodes[n.ID] = dn
	}

	for _, e := range t.Edges {
		from, ok1 := nodes[e.From]
		to, ok2 := nodes[e.To]
		if !ok1 || !ok2 {
			continue
		}
		de := g.Edge(from, to).
			Attr("color", EdgeColor).
			Attr("arrowsize", "0.7").
			Attr("fontcolor", EdgeFont)
		if e.Label != "" {
			de.Attr("label", e.Label)
		}
	}

	out := g.String()
	logging.RenderDebug("Rendered tree: nodes=%d edges=%d bytes=%d", len(t.Nodes), len(t.Edges), len(out))
	return out
}

// leafHTML renders a leaf label as an HTML-like table: bold title, then smaller lines.
func leafHTML(lines []string) dot.HTML {
	var sb strings.Builder
	sb.WriteString(`<TABLE BORDER="0" CELLBORDER="0" CELLSPACING="0">`)
	for i, l := range lines {
		text := html.EscapeString(l)
		if i == 0 {
			fmt.Fprintf(&sb, "<TR><TD><B>%s</B></TD></TR>", text)
			continue
		}
		fmt.Fprintf(&sb, `<TR><TD><FONT POINT-SIZE="10">%s</FONT></TD></TR>`, text)
	}
	sb.WriteString("</TABLE>")
	return dot.HTML(sb.String())
}
