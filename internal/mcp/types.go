package mcp

import (
	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/memwatch"
)

// NoInput is the input for tools that take no arguments.
type NoInput struct{}

// SlotInput addresses a monitor slot.
type SlotInput struct {
	Slot int `json:"slot" jsonschema:"Monitor slot index (0 is the first enumerated monitor)"`
}

// CreateWindowInput is the input for the create_window tool.
type CreateWindowInput struct {
	Slot      int  `json:"slot" jsonschema:"Monitor slot index to place the overlay on"`
	IsPrimary bool `json:"is_primary,omitempty" jsonschema:"Use the primary role (main_monitor_N) instead of secondary (secondary_monitor_N)"`
}

// CreateWindowOutput is the output for the create_window tool.
type CreateWindowOutput struct {
	ID string `json:"id"`
}

// CloseWindowInput is the input for the close_window tool.
type CloseWindowInput struct {
	ID string `json:"id" jsonschema:"Window identifier, e.g. secondary_monitor_1"`
}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Monitors []display.Monitor `json:"monitors"`
}

// ListInstancesOutput is the output for the list_instances tool.
type ListInstancesOutput struct {
	Instances []display.WindowInstance `json:"instances"`
}

// ShowAllOutput is the output for the show_all tool.
type ShowAllOutput struct {
	IDs    []string `json:"ids"`
	Errors string   `json:"errors,omitempty"`
}

// MemoryOutput is the output for the memory tools.
type MemoryOutput struct {
	CurrentMB       uint64  `json:"currentMb"`
	LimitMB         uint64  `json:"limitMb"`
	UsagePercentage float64 `json:"usagePercentage"`
	IsOverLimit     bool    `json:"isOverLimit"`
	Message         string  `json:"message,omitempty"`
}

func memoryOutput(s memwatch.Status) MemoryOutput {
	return MemoryOutput{
		CurrentMB:       s.CurrentMB,
		LimitMB:         s.LimitMB,
		UsagePercentage: s.UsagePercentage,
		IsOverLimit:     s.IsOverLimit,
	}
}

// StatusOutput is the output for the get_status tool.
type StatusOutput struct {
	DaemonRunning   bool             `json:"daemon_running"`
	UptimeSeconds   int64            `json:"uptime_seconds"`
	Instances       int              `json:"instances"`
	Monitors        int              `json:"monitors"`
	WatchdogRunning bool             `json:"watchdog_running"`
	LastMemory      *memwatch.Status `json:"last_memory,omitempty"`
}
