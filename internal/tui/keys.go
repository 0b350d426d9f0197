package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Top     key.Binding
	Bottom  key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Detail  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:  key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Detail:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextTab, k.Detail, k.Refresh, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.NextTab, k.PrevTab, k.Detail},
		{k.Refresh, k.Quit},
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()

	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(1)

	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(-1)

	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
		return m, nil
	}

	ts := m.activeTab()
	if ts == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if ts.cursor > 0 {
			ts.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if ts.cursor < len(ts.messages)-1 {
			ts.cursor++
		}
	case key.Matches(msg, m.keys.Top):
		ts.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		if n := len(ts.messages); n > 0 {
			ts.cursor = n - 1
		}
	default:
		return m, nil
	}

	m.clampScroll()
	return m, m.maybeLoadMore()
}

// switchTab moves the tab selection by delta, wrapping around, and resets
// the cursor of the newly selected tab.
func (m Model) switchTab(delta int) (tea.Model, tea.Cmd) {
	n := len(m.tabs)
	if n == 0 {
		return m, nil
	}
	m.active = ((m.active+delta)%n + n) % n
	m.tabs[m.active].cursor = 0
	m.tabs[m.active].scrollOffset = 0
	m.showDetail = false
	return m, m.maybeLoadMore()
}
