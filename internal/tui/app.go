package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/overlaycat/internal/app"
)

// model is the root bubbletea model for the TUI.
type model struct {
	client Client

	// Tab navigation
	activeTab Tab

	// Sub-models
	monitorsTab MonitorsTab
	windowsTab  WindowsTab
	memoryTab   MemoryTab

	// Daemon state
	connected bool
	status    *app.Status
	lastErr   string

	// Result of the last action
	flash    string
	flashErr bool

	// Terminal dimensions
	width  int
	height int
}

func newModel(client Client) model {
	return model{
		client:      client,
		activeTab:   TabMonitors,
		monitorsTab: NewMonitorsTab(client),
		windowsTab:  NewWindowsTab(client),
		memoryTab:   NewMemoryTab(client),
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(fetchSnapshot(m.client), tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(fetchSnapshot(m.client), tick())

	case snapshotMsg:
		m.applySnapshot(msg)
		return m, nil

	case actionMsg:
		m.flashErr = msg.err != nil
		if msg.err != nil {
			m.flash = msg.err.Error()
		} else {
			m.flash = msg.text
		}
		return m, fetchSnapshot(m.client)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		sub := tea.WindowSizeMsg{Width: m.width, Height: m.contentHeight()}
		m.monitorsTab, _ = m.monitorsTab.Update(sub)
		m.windowsTab, _ = m.windowsTab.Update(sub)
		m.memoryTab, _ = m.memoryTab.Update(sub)
		return m, nil
	}

	// The create form captures input; only ctrl+c escapes to quit.
	if m.activeTab == TabMonitors && m.monitorsTab.creating {
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.monitorsTab, cmd = m.monitorsTab.Update(msg)
		return m, cmd
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
			return m, nil
		case "1":
			m.activeTab = TabMonitors
			return m, nil
		case "2":
			m.activeTab = TabWindows
			return m, nil
		case "3":
			m.activeTab = TabMemory
			return m, nil
		case "r":
			return m, fetchSnapshot(m.client)
		case "R":
			return m, runAction(func() (string, error) {
				return "overlay windows reset", m.client.ResetPositions()
			})
		case "a":
			return m, runAction(func() (string, error) {
				ids, err := m.client.ShowAll()
				return "opened " + strings.Join(ids, ", "), err
			})
		}
	}

	// Delegate to active tab's sub-model
	var cmd tea.Cmd
	switch m.activeTab {
	case TabMonitors:
		m.monitorsTab, cmd = m.monitorsTab.Update(msg)
	case TabWindows:
		m.windowsTab, cmd = m.windowsTab.Update(msg)
	case TabMemory:
		m.memoryTab, cmd = m.memoryTab.Update(msg)
	}
	return m, cmd
}

func (m *model) applySnapshot(s snapshotMsg) {
	if s.status == nil {
		m.connected = false
		m.status = nil
		if s.err != nil {
			m.lastErr = s.err.Error()
		}
		return
	}
	m.connected = true
	m.status = s.status
	m.lastErr = ""
	if s.err != nil {
		m.lastErr = s.err.Error()
	}
	m.monitorsTab.SetData(s.monitors, s.instances)
	m.windowsTab.SetData(s.instances)
	if s.memory != nil {
		m.memoryTab.SetStatus(*s.memory)
	}
}

// contentHeight returns the height available for tab content.
func (m model) contentHeight() int {
	// status bar (1) + tab bar (2 with margin) + flash (1) + help bar (1)
	h := m.height - 5
	if h < 1 {
		h = 1
	}
	return h
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.connected, m.status, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	flash := renderFlash(m.flash, m.flashErr, m.lastErr, m.width)
	helpBar := renderHelpBar(m.activeTab, m.width)

	var content string
	switch m.activeTab {
	case TabMonitors:
		content = m.monitorsTab.View()
	case TabWindows:
		content = m.windowsTab.View()
	case TabMemory:
		content = m.memoryTab.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		flash,
		helpBar,
	)
}
