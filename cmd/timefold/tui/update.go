package tui

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"timefold/internal/logging"
	"timefold/internal/perception"
	"timefold/internal/report"
	"timefold/internal/session"
	"timefold/internal/types"
)

const (
	headerHeight = 3
	footerHeight = 2
)

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case presetMsg:
		image := m.image
		return m.begin(func() error { return m.session.BeginPreset(int(msg), image) })

	case recruitDoneMsg:
		if superseded(msg.err) {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Council assembled: %d experts. Press enter to confirm.", len(msg.council.Agents))
		return m, nil

	case simulateDoneMsg:
		if superseded(msg.err) {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.err = nil
		m.status = "Simulation complete."
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Failed to save %s: %v", msg.what, msg.err)
			return m, nil
		}
		logging.UI("Saved %s to %s", msg.what, msg.path)
		m.status = fmt.Sprintf("Saved %s to %s", msg.what, msg.path)
		return m, nil

	case imageLoadedMsg:
		m.viewMode = MainView
		if msg.err != nil {
			m.err = msg.err
			m.status = msg.err.Error()
			return m, nil
		}
		m.image = msg.image
		m.status = fmt.Sprintf("Attached %s (%s)", msg.image.Name, msg.image.MIMEType)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Route everything else to the focused component.
	var cmd tea.Cmd
	switch m.viewMode {
	case FilePickerView:
		m.filepicker, cmd = m.filepicker.Update(msg)
	case ReportView:
		m.viewport, cmd = m.viewport.Update(msg)
	default:
		if m.session.Stage() == types.StageInput {
			m.textarea, cmd = m.textarea.Update(msg)
		}
	}
	return m, cmd
}

func (m Model) resize(width, height int) Model {
	if width <= 0 || height <= 0 {
		return m
	}
	m.width = width
	m.height = height
	m.help.Width = width

	inner := width - 4
	if inner < 20 {
		inner = 20
	}
	m.textarea.SetWidth(inner)

	vpHeight := height - headerHeight - footerHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = inner
	m.viewport.Height = vpHeight
	m.filepicker.Height = vpHeight

	stylePath := "light"
	if m.styles.Theme.IsDark {
		stylePath = "dark"
	}
	if r, err := glamour.NewTermRenderer(glamour.WithStylePath(stylePath), glamour.WithWordWrap(inner-4)); err == nil {
		m.renderer = r
	}
	return m
}

func (m *Model) fail(err error) {
	m.err = err
	m.status = perception.UserMessage(err)
	logging.UIWarn("%s", m.status)
}

func (m Model) startBusy(label string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	m.busyLabel = label
	m.err = nil
	m.status = ""
	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m Model) begin(start func() error) (tea.Model, tea.Cmd) {
	if err := start(); err != nil {
		m.err = err
		m.status = err.Error()
		if errors.Is(err, session.ErrEmptyInput) {
			m.status = "Enter a context description or attach an image first."
		}
		return m, nil
	}
	m.textarea.Reset()
	m.textarea.Blur()
	m.image = nil
	return m.startBusy("Recruiting council...", recruitCmd(m))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.viewMode {
	case FilePickerView:
		if key.Matches(msg, m.keys.Back) {
			m.viewMode = MainView
			return m, nil
		}
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)
		if ok, path := m.filepicker.DidSelectFile(msg); ok {
			return m, tea.Batch(cmd, loadImageCmd(perception.LoadImage, path))
		}
		if ok, path := m.filepicker.DidSelectDisabledFile(msg); ok {
			m.status = fmt.Sprintf("%s is not a JPEG or PNG image", path)
		}
		return m, cmd

	case ReportView:
		switch {
		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Preview):
			m.viewMode = MainView
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	stage := m.session.Stage()
	if stage == types.StageInput {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Reset):
		return m.reset()
	}
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Download):
		return m, saveReportCmd(m.outputDir, m.session.Snapshot().History)
	case key.Matches(msg, m.keys.Graph):
		snap := m.session.Snapshot()
		return m, saveGraphCmd(m.outputDir, snap.History, snap.Simulation)
	case key.Matches(msg, m.keys.Preview):
		return m.openReport(), nil
	case key.Matches(msg, m.keys.Reason):
		m.showReasoning = !m.showReasoning
		return m, nil
	}

	switch stage {
	case types.StageRecruiting:
		return m.handleRecruitingKey(msg)
	case types.StageSimulating:
		return m.handleSimulatingKey(msg)
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		text := m.textarea.Value()
		image := m.image
		return m.begin(func() error { return m.session.Begin(text, image) })

	case key.Matches(msg, m.keys.Presets):
		s := msg.String()
		idx, _ := strconv.Atoi(s[len(s)-1:])
		image := m.image
		return m.begin(func() error { return m.session.BeginPreset(idx-1, image) })

	case key.Matches(msg, m.keys.Attach):
		m.viewMode = FilePickerView
		return m, m.filepicker.Init()

	case key.Matches(msg, m.keys.Detach):
		m.image = nil
		m.status = "Image removed."
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleRecruitingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		if err := m.session.Confirm(); err != nil {
			m.err = err
			m.status = "No council yet. Press r to recruit."
			return m, nil
		}
		return m.startBusy("Simulating timelines...", simulateCmd(m))

	case key.Matches(msg, m.keys.Retry):
		if m.session.Snapshot().Council != nil {
			return m, nil
		}
		return m.startBusy("Recruiting council...", recruitCmd(m))
	}
	return m, nil
}

func (m Model) handleSimulatingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Explore):
		snap := m.session.Snapshot()
		if snap.Simulation == nil {
			m.status = "No scenarios to explore yet."
			return m, nil
		}
		idx, _ := strconv.Atoi(msg.String())
		if idx < 1 || idx > len(snap.Simulation.Scenarios) {
			return m, nil
		}
		sc := snap.Simulation.Scenarios[idx-1]
		if err := m.session.Explore(sc.ID); err != nil {
			m.err = err
			m.status = err.Error()
			return m, nil
		}
		logging.UIDebug("Exploring %s (%s)", sc.ID, sc.Title)
		return m.startBusy("Recruiting council for "+sc.Title+"...", recruitCmd(m))

	case key.Matches(msg, m.keys.Chaos):
		if err := m.session.InjectChaos(); err != nil {
			m.err = err
			return m, nil
		}
		return m.startBusy("Injecting black swan...", simulateCmd(m))

	case key.Matches(msg, m.keys.Retry):
		if m.session.Snapshot().Simulation != nil {
			return m, nil
		}
		return m.startBusy("Simulating timelines...", simulateCmd(m))
	}
	return m, nil
}

func (m Model) reset() (tea.Model, tea.Cmd) {
	m.session.Reset()
	m.busy = false
	m.err = nil
	m.image = nil
	m.status = "Session reset."
	m.textarea.Reset()
	return m, m.textarea.Focus()
}

func (m Model) openReport() Model {
	md := report.Export(m.session.Snapshot().History, time.Now())
	content := md
	if m.renderer != nil {
		if out, err := m.renderer.Render(md); err == nil {
			content = out
		}
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
	m.viewMode = ReportView
	return m
}
