// Package report serializes a session history into a Markdown document.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timefold/internal/logging"
	"timefold/internal/types"
)

const (
	// FileName is the name reports are saved under.
	FileName = "timefold_report.md"
	// MIMEType is the report content type.
	MIMEType = "text/markdown"
	// Title is the document heading.
	Title = "# TIMEFOLD STRATEGIC REPORT"
	// DateLayout formats the report timestamp.
	DateLayout = "2006-01-02 15:04:05"
)

// Export renders history as Markdown. The output depends only on history
// and now; now is written on the date line.
func Export(history []types.HistoryEntry, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(Title + "\n")
	fmt.Fprintf(&sb, "**Date:** %s\n\n", now.Format(DateLayout))

	for i, step := range history {
		fmt.Fprintf(&sb, "## Step %d: %s\n", i+1, step.Title)
		fmt.Fprintf(&sb, "_%s_\n\n", step.Description)
		if sc := step.Scenario; sc != nil {
			fmt.Fprintf(&sb, "> **Reasoning:** %s\n\n", sc.ReasoningTrace)
			fmt.Fprintf(&sb, "**Metrics:** Risk: %s | Prob: %d%%\n", sc.RiskLevel, sc.Probability)
		}
		sb.WriteString("---\n")
	}
	return sb.String()
}

// Write exports history to dir/FileName and returns the written path.
func Write(dir string, history []types.HistoryEntry, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(Export(history, now)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	logging.Report("Report written: %s (%d steps)", path, len(history))
	return path, nil
}
