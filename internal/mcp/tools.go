package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func textResult(format string, args ...any) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	monitors, err := s.commands.ListMonitors()
	if err != nil {
		return nil, ListMonitorsOutput{}, fmt.Errorf("failed to list monitors: %w", err)
	}
	return nil, ListMonitorsOutput{Monitors: monitors}, nil
}

func (s *Server) handleCreateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CreateWindowInput) (*mcpsdk.CallToolResult, CreateWindowOutput, error) {
	if args.Slot < 0 {
		return nil, CreateWindowOutput{}, fmt.Errorf("slot must be non-negative, got %d", args.Slot)
	}
	id, err := s.commands.CreateWindow(args.Slot, args.IsPrimary)
	if err != nil {
		return nil, CreateWindowOutput{}, fmt.Errorf("failed to create window on slot %d: %w", args.Slot, err)
	}
	s.logger.Info("mcp: window created", "slot", args.Slot, "id", id)
	return nil, CreateWindowOutput{ID: id}, nil
}

func (s *Server) handleCloseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CloseWindowInput) (*mcpsdk.CallToolResult, any, error) {
	if args.ID == "" {
		return nil, nil, fmt.Errorf("id is required")
	}
	if err := s.commands.CloseWindow(args.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to close %s: %w", args.ID, err)
	}
	return textResult("Closed %s", args.ID), nil, nil
}

func (s *Server) handleCloseMonitorWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args SlotInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.commands.CloseMonitorWindow(args.Slot); err != nil {
		return nil, nil, fmt.Errorf("failed to close window on slot %d: %w", args.Slot, err)
	}
	return textResult("Closed window on slot %d", args.Slot), nil, nil
}

func (s *Server) handleMoveMainWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args SlotInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.commands.MoveMainWindow(args.Slot); err != nil {
		return nil, nil, fmt.Errorf("failed to focus main window for slot %d: %w", args.Slot, err)
	}
	return textResult("Main window focused (slot %d)", args.Slot), nil, nil
}

func (s *Server) handleResetPositions(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.commands.ResetPositions(); err != nil {
		return nil, nil, fmt.Errorf("failed to reset windows: %w", err)
	}
	return textResult("Overlay windows reset"), nil, nil
}

func (s *Server) handleListInstances(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, ListInstancesOutput, error) {
	instances, err := s.commands.ListInstances()
	if err != nil {
		return nil, ListInstancesOutput{}, fmt.Errorf("failed to list instances: %w", err)
	}
	return nil, ListInstancesOutput{Instances: instances}, nil
}

// handleShowAll reports partial failures in the output rather than failing
// the call, so the opened identifiers are not lost.
func (s *Server) handleShowAll(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, ShowAllOutput, error) {
	ids, err := s.commands.ShowAll()
	out := ShowAllOutput{IDs: ids}
	if err != nil {
		if len(ids) == 0 {
			return nil, ShowAllOutput{}, fmt.Errorf("failed to show on all monitors: %w", err)
		}
		out.Errors = err.Error()
		s.logger.Warn("mcp: show_all partially failed", "opened", len(ids), "error", err)
	}
	return nil, out, nil
}

func (s *Server) handleGetMemoryStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, MemoryOutput, error) {
	status, err := s.commands.GetMemoryStatus()
	if err != nil {
		return nil, MemoryOutput{}, fmt.Errorf("failed to get memory status: %w", err)
	}
	return nil, memoryOutput(*status), nil
}

func (s *Server) handleTriggerMemoryCleanup(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, MemoryOutput, error) {
	msg, err := s.commands.TriggerMemoryCleanup()
	if err != nil {
		return nil, MemoryOutput{}, fmt.Errorf("memory cleanup failed: %w", err)
	}
	out := MemoryOutput{Message: msg}
	if status, err := s.commands.GetMemoryStatus(); err == nil {
		out = memoryOutput(*status)
		out.Message = msg
	}
	return nil, out, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.commands.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("failed to get status: %w", err)
	}
	return nil, StatusOutput{
		DaemonRunning:   st.DaemonRunning,
		UptimeSeconds:   st.UptimeSeconds,
		Instances:       st.Instances,
		Monitors:        st.Monitors,
		WatchdogRunning: st.WatchdogRunning,
		LastMemory:      st.LastMemory,
	}, nil
}
