// Package main implements archive CLI commands for TIMEFOLD.
// This file handles session listing and re-exporting archived sessions.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timefold/internal/render"
	"timefold/internal/report"
)

var (
	sessionsLimit int
	outDir        string
)

// =============================================================================
// ARCHIVE COMMANDS
// =============================================================================

// sessionsCmd lists archived sessions
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List archived sessions",
	RunE:  runSessionsList,
}

// reportCmd re-exports an archived session as Markdown
var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Export an archived session as timefold_report.md",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

// graphCmd writes the history spine of an archived session as DOT
var graphCmd = &cobra.Command{
	Use:   "graph <session-id>",
	Short: "Export an archived session tree as timefold_tree.dot",
	Long: `Writes the explored path as a Graphviz digraph. Render it with:

  dot -Tpng timefold_tree.dot -o timefold_tree.png`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	sessions, err := archive.ListSessions(sessionsLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	logger.Debug("listed sessions", zap.Int("count", len(sessions)), zap.String("db", archive.Path()))

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No archived sessions found.")
		return nil
	}

	fmt.Fprintln(out, "📁 Archived Sessions")
	fmt.Fprintln(out, strings.Repeat("─", 60))
	for _, s := range sessions {
		fmt.Fprintf(out, "  %s  %s  steps=%d\n", s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Steps)
		fmt.Fprintf(out, "      %s\n", truncate(s.Seed, 70))
	}
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "Total: %d sessions\n", len(sessions))
	fmt.Fprintln(out, "\nUse: timefold report <session-id>")
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	history, err := archive.LoadHistory(args[0])
	if err != nil {
		return err
	}

	path, err := report.Write(outputDir(), history, time.Now())
	if err != nil {
		return err
	}
	logger.Info("report exported", zap.String("session", args[0]), zap.String("path", path), zap.Int("steps", len(history)))
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	return nil
}

func runGraph(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	history, err := archive.LoadHistory(args[0])
	if err != nil {
		return err
	}

	dir := outputDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, render.GraphFileName)
	if err := os.WriteFile(path, []byte(render.BuildTree(history, nil).DOT()), 0644); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	logger.Info("graph exported", zap.String("session", args[0]), zap.String("path", path))
	fmt.Fprintf(cmd.OutOrStdout(), "Graph written to %s\n", path)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
