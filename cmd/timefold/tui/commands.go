package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"timefold/internal/render"
	"timefold/internal/report"
	"timefold/internal/session"
	"timefold/internal/types"
)

// presetMsg starts a session from the preset at the given index.
type presetMsg int

// recruitDoneMsg carries the result of a recruitment call.
type recruitDoneMsg struct {
	council types.Council
	err     error
}

// simulateDoneMsg carries the result of a simulation call.
type simulateDoneMsg struct {
	batch *types.SimulationBatch
	err   error
}

// savedMsg reports a file written by the report or graph export.
type savedMsg struct {
	what string
	path string
	err  error
}

// imageLoadedMsg carries an attachment picked in the file picker.
type imageLoadedMsg struct {
	image *types.Image
	err   error
}

func (m Model) callContext() (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(m.ctx, m.timeout)
	}
	return context.WithCancel(m.ctx)
}

func recruitCmd(m Model) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()
		council, err := s.Recruit(ctx)
		return recruitDoneMsg{council: council, err: err}
	}
}

func simulateCmd(m Model) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()
		batch, err := s.Simulate(ctx)
		return simulateDoneMsg{batch: batch, err: err}
	}
}

func saveReportCmd(dir string, history []types.HistoryEntry) tea.Cmd {
	return func() tea.Msg {
		path, err := report.Write(dir, history, time.Now())
		return savedMsg{what: "report", path: path, err: err}
	}
}

func saveGraphCmd(dir string, history []types.HistoryEntry, sim *types.SimulationBatch) tea.Cmd {
	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return savedMsg{what: "graph", err: err}
		}
		path := filepath.Join(dir, render.GraphFileName)
		err := os.WriteFile(path, []byte(render.BuildTree(history, sim).DOT()), 0644)
		return savedMsg{what: "graph", path: path, err: err}
	}
}

func loadImageCmd(loader func(string) (*types.Image, error), path string) tea.Cmd {
	return func() tea.Msg {
		img, err := loader(path)
		return imageLoadedMsg{image: img, err: err}
	}
}

// superseded reports whether err only means the session moved on during the call.
func superseded(err error) bool {
	return err != nil && errors.Is(err, session.ErrSuperseded)
}
