package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/overlaycat/internal/app"
)

// Tab identifies a TUI tab.
type Tab int

const (
	TabMonitors Tab = iota
	TabWindows
	TabMemory
	tabCount // sentinel for iteration
)

func (t Tab) String() string {
	switch t {
	case TabMonitors:
		return "Monitors"
	case TabWindows:
		return "Windows"
	case TabMemory:
		return "Memory"
	default:
		return "?"
	}
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	tabBarStyle = lipgloss.NewStyle().
			MarginBottom(1)

	tabGap = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		SetString(" ")

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// renderTabBar renders the tab bar with the given active tab and width.
func renderTabBar(active Tab, width int) string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		label := fmt.Sprintf("%d:%s", int(i)+1, i)
		if i == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, intersperse(tabs, tabGap.Render())...)
	return tabBarStyle.Width(width).Render(row)
}

// intersperse inserts sep between each element of items.
func intersperse(items []string, sep string) []string {
	if len(items) <= 1 {
		return items
	}
	result := make([]string, 0, len(items)*2-1)
	for i, item := range items {
		if i > 0 {
			result = append(result, sep)
		}
		result = append(result, item)
	}
	return result
}

// renderStatusBar renders the daemon connection status bar.
func renderStatusBar(connected bool, status *app.Status, width int) string {
	var text string
	if connected && status != nil {
		parts := []string{okStyle.Render("●") + " daemon connected"}
		parts = append(parts,
			fmt.Sprintf("up %s", time.Duration(status.UptimeSeconds)*time.Second),
			fmt.Sprintf("monitors:%d", status.Monitors),
			fmt.Sprintf("windows:%d", status.Instances),
		)
		if status.WatchdogRunning {
			parts = append(parts, "watchdog:on")
		} else {
			parts = append(parts, "watchdog:off")
		}
		text = strings.Join(parts, "  ")
	} else {
		text = dimStyle.Render("●") + " daemon not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(text)
}

// renderFlash shows the last action result, or the last refresh error.
func renderFlash(flash string, isErr bool, refreshErr string, width int) string {
	style := lipgloss.NewStyle().Width(width).Padding(0, 1)
	switch {
	case flash != "" && isErr:
		return style.Render(warnStyle.Render(flash))
	case flash != "":
		return style.Render(okStyle.Render(flash))
	case refreshErr != "":
		return style.Render(dimStyle.Render(refreshErr))
	}
	return style.Render("")
}

// renderHelpBar renders the bottom help/keybinding bar.
func renderHelpBar(active Tab, width int) string {
	help := "tab: switch  r: refresh  R: reset  a: show all  q: quit"
	switch active {
	case TabMonitors:
		help = "c: create  x: close  m: focus main  " + help
	case TabWindows:
		help = "x: close  " + help
	case TabMemory:
		help = "g: cleanup  " + help
	}
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}
