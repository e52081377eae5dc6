package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/overlaycat/internal/display"
)

// monitorItem is a list item for one monitor slot.
type monitorItem struct {
	monitor display.Monitor
	windows []string
}

func (i monitorItem) Title() string {
	return fmt.Sprintf("%d: %s", i.monitor.Index, i.monitor.Name)
}

func (i monitorItem) Description() string {
	desc := fmt.Sprintf("%dx%d at %d,%d", i.monitor.Width, i.monitor.Height, i.monitor.X, i.monitor.Y)
	if len(i.windows) == 0 {
		return desc + "  (no overlay)"
	}
	return desc + "  " + strings.Join(i.windows, ", ")
}

func (i monitorItem) FilterValue() string { return i.monitor.Name }

// MonitorsTab lists monitors and creates or closes overlays on them.
type MonitorsTab struct {
	client Client
	list   list.Model
	width  int
	height int

	// Create form
	creating   bool
	form       *huh.Form
	createSlot int
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("62"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("62"))

	l := list.New(nil, delegate, 0, 0)
	l.Title = title
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

// NewMonitorsTab creates an empty monitors tab.
func NewMonitorsTab(client Client) MonitorsTab {
	return MonitorsTab{client: client, list: newList("Monitors")}
}

// SetData replaces the monitor list, annotating each slot with its overlays.
func (t *MonitorsTab) SetData(monitors []display.Monitor, instances []display.WindowInstance) {
	t.list.SetItems(buildMonitorItems(monitors, instances))
}

func buildMonitorItems(monitors []display.Monitor, instances []display.WindowInstance) []list.Item {
	bySlot := make(map[int][]string)
	for _, inst := range instances {
		bySlot[inst.MonitorIndex] = append(bySlot[inst.MonitorIndex], inst.ID)
	}
	items := make([]list.Item, 0, len(monitors))
	for _, m := range monitors {
		items = append(items, monitorItem{monitor: m, windows: bySlot[m.Index]})
	}
	return items
}

func (t MonitorsTab) selected() (monitorItem, bool) {
	item, ok := t.list.SelectedItem().(monitorItem)
	return item, ok
}

// Update implements tea.Model.
func (t MonitorsTab) Update(msg tea.Msg) (MonitorsTab, tea.Cmd) {
	if t.creating {
		return t.updateCreating(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		t.list.SetSize(msg.Width, msg.Height)
		return t, nil

	case tea.KeyMsg:
		item, ok := t.selected()
		switch msg.String() {
		case "c":
			if !ok {
				return t, nil
			}
			t.startCreating(item.monitor.Index)
			return t, t.form.Init()
		case "x":
			if !ok {
				return t, nil
			}
			slot := item.monitor.Index
			return t, runAction(func() (string, error) {
				return fmt.Sprintf("closed overlay on slot %d", slot), t.client.CloseMonitorWindow(slot)
			})
		case "m":
			if !ok {
				return t, nil
			}
			slot := item.monitor.Index
			return t, runAction(func() (string, error) {
				return "main window focused", t.client.MoveMainWindow(slot)
			})
		}
	}

	var cmd tea.Cmd
	t.list, cmd = t.list.Update(msg)
	return t, cmd
}

func (t *MonitorsTab) startCreating(slot int) {
	t.creating = true
	t.createSlot = slot

	w := t.width - 4
	if w < 40 {
		w = 40
	}
	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("role").
				Title(fmt.Sprintf("Create overlay on slot %d", slot)).
				Options(
					huh.NewOption("secondary (secondary_monitor_N)", "secondary"),
					huh.NewOption("primary (main_monitor_N)", "primary"),
				),
		),
	).WithWidth(w).WithShowHelp(false)
}

func (t MonitorsTab) updateCreating(msg tea.Msg) (MonitorsTab, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		t.creating = false
		t.form = nil
		return t, nil
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	switch t.form.State {
	case huh.StateCompleted:
		primary := t.form.GetString("role") == "primary"
		slot := t.createSlot
		t.creating = false
		t.form = nil
		return t, runAction(func() (string, error) {
			id, err := t.client.CreateWindow(slot, primary)
			return "created " + id, err
		})
	case huh.StateAborted:
		t.creating = false
		t.form = nil
		return t, nil
	}
	return t, cmd
}

// View implements tea.Model.
func (t MonitorsTab) View() string {
	if t.creating && t.form != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(t.form.View())
	}
	if len(t.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(t.width).
			Height(t.height).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render("no monitors")
	}
	return t.list.View()
}
