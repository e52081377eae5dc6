package mcp

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/overlaycat/internal/app"
	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/memwatch"
)

type fakeCommands struct {
	created  []int
	closed   []string
	resets   int
	showIDs  []string
	showErr  error
	createFn func(slot int, primary bool) (string, error)
}

func (f *fakeCommands) ListMonitors() ([]display.Monitor, error) {
	return []display.Monitor{{Index: 0, Name: "DP-1", Width: 1920, Height: 1080}}, nil
}

func (f *fakeCommands) CreateWindow(slot int, isPrimary bool) (string, error) {
	f.created = append(f.created, slot)
	if f.createFn != nil {
		return f.createFn(slot, isPrimary)
	}
	return display.Identifier(slot, display.RoleFor(isPrimary)), nil
}

func (f *fakeCommands) CloseWindow(id string) error {
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeCommands) CloseMonitorWindow(slot int) error { return nil }
func (f *fakeCommands) MoveMainWindow(slot int) error      { return nil }

func (f *fakeCommands) ResetPositions() error {
	f.resets++
	return nil
}

func (f *fakeCommands) ListInstances() ([]display.WindowInstance, error) {
	return []display.WindowInstance{{ID: "main_monitor_0", X: 760, Y: 340, IsPrimary: true}}, nil
}

func (f *fakeCommands) ShowAll() ([]string, error) { return f.showIDs, f.showErr }

func (f *fakeCommands) GetMemoryStatus() (*memwatch.Status, error) {
	s := memwatch.NewStatus(350, 300)
	return &s, nil
}

func (f *fakeCommands) TriggerMemoryCleanup() (string, error) {
	return "memory cleanup complete, current usage: 350MB", nil
}

func (f *fakeCommands) GetStatus() (*app.Status, error) {
	return &app.Status{DaemonRunning: true, Instances: 1, Monitors: 1}, nil
}

func TestHandleCreateWindow(t *testing.T) {
	cmds := &fakeCommands{}
	s := NewServer(cmds, nil)

	_, out, err := s.handleCreateWindow(context.Background(), nil, CreateWindowInput{Slot: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.ID != "secondary_monitor_1" {
		t.Fatalf("id = %q", out.ID)
	}

	if _, _, err := s.handleCreateWindow(context.Background(), nil, CreateWindowInput{Slot: -1}); err == nil {
		t.Fatalf("expected negative slot to be rejected")
	}
	if len(cmds.created) != 1 {
		t.Fatalf("negative slot reached the daemon: %v", cmds.created)
	}
}

func TestHandleCreateWindow_PropagatesError(t *testing.T) {
	cmds := &fakeCommands{createFn: func(int, bool) (string, error) {
		return "", errors.New("monitor index 5 out of range")
	}}
	s := NewServer(cmds, nil)

	_, _, err := s.handleCreateWindow(context.Background(), nil, CreateWindowInput{Slot: 5})
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected wrapped daemon error, got %v", err)
	}
}

func TestHandleCloseWindow_RequiresID(t *testing.T) {
	cmds := &fakeCommands{}
	s := NewServer(cmds, nil)

	if _, _, err := s.handleCloseWindow(context.Background(), nil, CloseWindowInput{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
	res, _, err := s.handleCloseWindow(context.Background(), nil, CloseWindowInput{ID: "monitor_2"})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(cmds.closed) != 1 || cmds.closed[0] != "monitor_2" {
		t.Fatalf("unexpected closes %v", cmds.closed)
	}
	text := res.Content[0].(*mcpsdk.TextContent).Text
	if !strings.Contains(text, "monitor_2") {
		t.Fatalf("unexpected result text %q", text)
	}
}

func TestHandleShowAll(t *testing.T) {
	tests := []struct {
		name       string
		ids        []string
		err        error
		wantErr    bool
		wantErrors bool
	}{
		{"all opened", []string{"main_monitor_0", "secondary_monitor_1"}, nil, false, false},
		{"partial failure", []string{"main_monitor_0"}, errors.New("slot 1: boom"), false, true},
		{"total failure", nil, errors.New("no monitors"), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeCommands{showIDs: tt.ids, showErr: tt.err}, nil)
			_, out, err := s.handleShowAll(context.Background(), nil, NoInput{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(out.IDs) != len(tt.ids) {
				t.Fatalf("ids = %v", out.IDs)
			}
			if (out.Errors != "") != tt.wantErrors {
				t.Fatalf("errors = %q", out.Errors)
			}
		})
	}
}

func TestHandleMemoryTools(t *testing.T) {
	s := NewServer(&fakeCommands{}, nil)

	_, status, err := s.handleGetMemoryStatus(context.Background(), nil, NoInput{})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.IsOverLimit || status.CurrentMB != 350 || status.LimitMB != 300 {
		t.Fatalf("unexpected status %+v", status)
	}

	_, cleanup, err := s.handleTriggerMemoryCleanup(context.Background(), nil, NoInput{})
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if !strings.HasPrefix(cleanup.Message, "memory cleanup complete") || cleanup.CurrentMB != 350 {
		t.Fatalf("unexpected cleanup %+v", cleanup)
	}
}

func TestServer_ToolsOverSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := &fakeCommands{}
	s := NewServer(cmds, nil)

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{
		"close_monitor_window", "close_window", "create_window", "get_memory_status",
		"get_status", "list_instances", "list_monitors", "move_main_window",
		"reset_positions", "show_all", "trigger_memory_cleanup",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("tools = %v", names)
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "reset_positions",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	if cmds.resets != 1 {
		t.Fatalf("reset not forwarded, resets = %d", cmds.resets)
	}
}
