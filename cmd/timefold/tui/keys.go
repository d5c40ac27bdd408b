package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"timefold/internal/types"
)

type keyMap struct {
	Submit   key.Binding
	Presets  key.Binding
	Attach   key.Binding
	Detach   key.Binding
	Confirm  key.Binding
	Retry    key.Binding
	Explore  key.Binding
	Chaos    key.Binding
	Reason   key.Binding
	Download key.Binding
	Graph    key.Binding
	Preview  key.Binding
	Reset    key.Binding
	Back     key.Binding
	Quit     key.Binding

	stage types.Stage
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "initialize")),
		Presets:  key.NewBinding(key.WithKeys("alt+1", "alt+2", "alt+3"), key.WithHelp("alt+1-3", "preset")),
		Attach:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "attach image")),
		Detach:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "drop image")),
		Confirm:  key.NewBinding(key.WithKeys("enter", "c"), key.WithHelp("enter", "confirm council")),
		Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Explore:  key.NewBinding(key.WithKeys("1", "2", "3"), key.WithHelp("1-3", "explore path")),
		Chaos:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "inject chaos")),
		Reason:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle reasoning")),
		Download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "save report")),
		Graph:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "save graph")),
		Preview:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview report")),
		Reset:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new simulation")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

// forStage returns a copy whose help reflects the stage.
func (k keyMap) forStage(s types.Stage) keyMap {
	k.stage = s
	return k
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	switch k.stage {
	case types.StageInput:
		return []key.Binding{k.Submit, k.Presets, k.Attach, k.Detach, k.Quit}
	case types.StageRecruiting:
		return []key.Binding{k.Confirm, k.Retry, k.Reset, k.Quit}
	case types.StageSimulating:
		return []key.Binding{k.Explore, k.Chaos, k.Reason, k.Download, k.Graph, k.Preview, k.Reset, k.Quit}
	}
	return []key.Binding{k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
