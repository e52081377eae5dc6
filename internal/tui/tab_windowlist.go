package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/overlaycat/internal/display"
)

// windowItem is a list item for one registered overlay window.
type windowItem struct {
	instance display.WindowInstance
}

func (i windowItem) Title() string {
	if i.instance.IsPrimary {
		return okStyle.Render("★") + " " + i.instance.ID
	}
	return dimStyle.Render("·") + " " + i.instance.ID
}

func (i windowItem) Description() string {
	return fmt.Sprintf("slot %d (%s) at %d,%d", i.instance.MonitorIndex, i.instance.MonitorName, i.instance.X, i.instance.Y)
}

func (i windowItem) FilterValue() string { return i.instance.ID }

// WindowsTab lists registered overlay windows.
type WindowsTab struct {
	client Client
	list   list.Model
	width  int
	height int
}

// NewWindowsTab creates an empty windows tab.
func NewWindowsTab(client Client) WindowsTab {
	return WindowsTab{client: client, list: newList("Overlay windows")}
}

// SetData replaces the window list.
func (t *WindowsTab) SetData(instances []display.WindowInstance) {
	items := make([]list.Item, 0, len(instances))
	for _, inst := range instances {
		items = append(items, windowItem{instance: inst})
	}
	t.list.SetItems(items)
}

// Update implements tea.Model.
func (t WindowsTab) Update(msg tea.Msg) (WindowsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		t.list.SetSize(msg.Width, msg.Height)
		return t, nil
	case tea.KeyMsg:
		if msg.String() == "x" {
			item, ok := t.list.SelectedItem().(windowItem)
			if !ok {
				return t, nil
			}
			id := item.instance.ID
			return t, runAction(func() (string, error) {
				return "closed " + id, t.client.CloseWindow(id)
			})
		}
	}

	var cmd tea.Cmd
	t.list, cmd = t.list.Update(msg)
	return t, cmd
}

// View implements tea.Model.
func (t WindowsTab) View() string {
	if len(t.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(t.width).
			Height(t.height).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render("no overlay windows (press 1 then c to create one)")
	}
	return t.list.View()
}
