package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/overlaycat/internal/memwatch"
)

const usageBarWidth = 40

// MemoryTab shows the daemon's memory usage against its limit.
type MemoryTab struct {
	client Client
	status *memwatch.Status
	width  int
	height int
}

// NewMemoryTab creates an empty memory tab.
func NewMemoryTab(client Client) MemoryTab {
	return MemoryTab{client: client}
}

// SetStatus records the latest sample.
func (t *MemoryTab) SetStatus(s memwatch.Status) {
	t.status = &s
}

// Update implements tea.Model.
func (t MemoryTab) Update(msg tea.Msg) (MemoryTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "g" {
			return t, runAction(t.client.TriggerMemoryCleanup)
		}
	}
	return t, nil
}

// usageBar renders percentage as a fixed-width bar. Values above 100 fill it.
func usageBar(percentage float64, width int) string {
	filled := int(percentage / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// View implements tea.Model.
func (t MemoryTab) View() string {
	if t.status == nil {
		return lipgloss.NewStyle().
			Width(t.width).
			Height(t.height).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render("no memory sample yet")
	}

	s := t.status
	style := okStyle
	state := "within limit"
	if s.IsOverLimit {
		style = warnStyle
		state = "OVER LIMIT"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Resident memory  %d MB / %d MB\n\n", s.CurrentMB, s.LimitMB)
	fmt.Fprintf(&sb, "%s  %.1f%%\n\n", style.Render(usageBar(s.UsagePercentage, usageBarWidth)), s.UsagePercentage)
	sb.WriteString(style.Render(state))
	return lipgloss.NewStyle().Padding(1, 2).Width(t.width).Height(t.height).Render(sb.String())
}
