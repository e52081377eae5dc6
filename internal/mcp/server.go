// Package mcp exposes the overlay command surface as Model Context Protocol
// tools. Every tool forwards to the running daemon.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/overlaycat/internal/app"
	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/ipc"
	"github.com/1broseidon/overlaycat/internal/memwatch"
)

const (
	ServerName    = "overlaycat"
	ServerVersion = "0.1.0"
)

// Commands is the daemon command surface the tools call. *ipc.Client
// implements it.
type Commands interface {
	ListMonitors() ([]display.Monitor, error)
	CreateWindow(slot int, isPrimary bool) (string, error)
	CloseWindow(id string) error
	CloseMonitorWindow(slot int) error
	MoveMainWindow(slot int) error
	ResetPositions() error
	ListInstances() ([]display.WindowInstance, error)
	ShowAll() ([]string, error)
	GetMemoryStatus() (*memwatch.Status, error)
	TriggerMemoryCleanup() (string, error)
	GetStatus() (*app.Status, error)
}

var _ Commands = (*ipc.Client)(nil)

// Server is the MCP server for overlay window control.
type Server struct {
	mcpServer *mcpsdk.Server
	commands  Commands
	logger    *slog.Logger
}

// NewServer builds a server whose tools call commands. A nil logger discards.
func NewServer(commands Commands, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		commands: commands,
		logger:   logger,
		mcpServer: mcpsdk.NewServer(
			&mcpsdk.Implementation{
				Name:    ServerName,
				Version: ServerVersion,
			},
			nil,
		),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List connected monitors in slot order with their name, size and position in virtual-screen coordinates.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "create_window",
		Description: "Create an overlay window centered on a monitor slot. Idempotent: returns the existing identifier when the slot already has a live window.",
	}, s.handleCreateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Close an overlay window by identifier. Unknown identifiers are ignored.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_monitor_window",
		Description: "Close the overlay window registered for a monitor slot, if any.",
	}, s.handleCloseMonitorWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_main_window",
		Description: "Validate a monitor slot and bring the main window to the front. The main window is not repositioned.",
	}, s.handleMoveMainWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reset_positions",
		Description: "Close every overlay window, forget remembered positions, and focus the main window.",
	}, s.handleResetPositions)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_instances",
		Description: "List registered overlay windows with their monitor slot and position.",
	}, s.handleListInstances)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_all",
		Description: "Create an overlay on every connected monitor. Slot 0 gets the primary role. Monitors that fail are reported without closing the others.",
	}, s.handleShowAll)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_memory_status",
		Description: "Sample the daemon's resident memory and compare it to the configured limit.",
	}, s.handleGetMemoryStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "trigger_memory_cleanup",
		Description: "Force a garbage collection in the daemon, return freed memory to the OS, and report current usage.",
	}, s.handleTriggerMemoryCleanup)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report daemon uptime, registered instance count, monitor count and watchdog state.",
	}, s.handleGetStatus)
}
