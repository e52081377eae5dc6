// Package tui is an interactive terminal dashboard for a running overlay
// daemon: monitors, overlay windows and memory, refreshed over IPC.
package tui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/overlaycat/internal/app"
	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/ipc"
	"github.com/1broseidon/overlaycat/internal/memwatch"
)

const refreshInterval = 2 * time.Second

// Client is the daemon surface the dashboard uses. *ipc.Client implements it.
type Client interface {
	ListMonitors() ([]display.Monitor, error)
	ListInstances() ([]display.WindowInstance, error)
	GetMemoryStatus() (*memwatch.Status, error)
	GetStatus() (*app.Status, error)
	CreateWindow(slot int, isPrimary bool) (string, error)
	CloseWindow(id string) error
	CloseMonitorWindow(slot int) error
	MoveMainWindow(slot int) error
	ResetPositions() error
	ShowAll() ([]string, error)
	TriggerMemoryCleanup() (string, error)
}

var _ Client = (*ipc.Client)(nil)

// Run starts the dashboard and blocks until the user quits.
func Run(client Client) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	_, err := tea.NewProgram(newModel(client), tea.WithAltScreen()).Run()
	return err
}

// snapshotMsg carries one refresh of daemon state.
type snapshotMsg struct {
	monitors  []display.Monitor
	instances []display.WindowInstance
	memory    *memwatch.Status
	status    *app.Status
	err       error
}

type tickMsg time.Time

// actionMsg reports the outcome of a user-triggered command.
type actionMsg struct {
	text string
	err  error
}

func fetchSnapshot(client Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		if err != nil {
			return snapshotMsg{err: err}
		}
		snap := snapshotMsg{status: status}
		if snap.monitors, err = client.ListMonitors(); err != nil {
			snap.err = err
			return snap
		}
		if snap.instances, err = client.ListInstances(); err != nil {
			snap.err = err
			return snap
		}
		snap.memory, snap.err = client.GetMemoryStatus()
		return snap
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func runAction(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		text, err := fn()
		return actionMsg{text: text, err: err}
	}
}
