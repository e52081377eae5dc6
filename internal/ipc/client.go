package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/overlaycat/internal/app"
	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/memwatch"
	"github.com/1broseidon/overlaycat/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the standard socket path.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; call surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	return conn, nil
}

func writeRequest(conn net.Conn, command CommandType, payload any) error {
	req := Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}

	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func readResponse(reader *bufio.Reader) (*Response, error) {
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// call sends one request and decodes the data of an OK response into out.
func (c *Client) call(command CommandType, payload any, out any) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := writeRequest(conn, command, payload); err != nil {
		return err
	}
	resp, err := readResponse(bufio.NewReader(conn))
	if err != nil {
		return err
	}

	// SHOW_ALL reports partial results alongside an error.
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to parse %s data: %w", command, err)
		}
	}
	if resp.Status == "ERROR" {
		return &RemoteError{Code: resp.Code, Message: resp.Error}
	}
	return nil
}

func (c *Client) ListMonitors() ([]display.Monitor, error) {
	var data MonitorsData
	if err := c.call(CommandListMonitors, nil, &data); err != nil {
		return nil, err
	}
	return data.Monitors, nil
}

func (c *Client) CreateWindow(slot int, isPrimary bool) (string, error) {
	var data CreateWindowData
	if err := c.call(CommandCreateWindow, CreateWindowPayload{Slot: &slot, IsPrimary: isPrimary}, &data); err != nil {
		return "", err
	}
	return data.ID, nil
}

func (c *Client) CloseWindow(id string) error {
	return c.call(CommandCloseWindow, CloseWindowPayload{ID: id}, nil)
}

func (c *Client) CloseMonitorWindow(slot int) error {
	return c.call(CommandCloseMonitorWindow, SlotPayload{Slot: &slot}, nil)
}

func (c *Client) MoveMainWindow(slot int) error {
	return c.call(CommandMoveMainWindow, SlotPayload{Slot: &slot}, nil)
}

func (c *Client) ResetPositions() error {
	return c.call(CommandResetPositions, nil, nil)
}

func (c *Client) ListInstances() ([]display.WindowInstance, error) {
	var data InstancesData
	if err := c.call(CommandListInstances, nil, &data); err != nil {
		return nil, err
	}
	return data.Instances, nil
}

// ShowAll returns the opened identifiers even when some monitors failed.
func (c *Client) ShowAll() ([]string, error) {
	var data ShowAllData
	err := c.call(CommandShowAll, nil, &data)
	return data.IDs, err
}

func (c *Client) GetMemoryStatus() (*memwatch.Status, error) {
	var status memwatch.Status
	if err := c.call(CommandGetMemoryStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) TriggerMemoryCleanup() (string, error) {
	var data CleanupData
	if err := c.call(CommandTriggerMemoryCleanup, nil, &data); err != nil {
		return "", err
	}
	return data.Message, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*app.Status, error) {
	var status app.Status
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// Subscribe streams events to fn until ctx is cancelled or the daemon goes
// away. Empty names subscribes to everything.
func (c *Client) Subscribe(ctx context.Context, names []string, fn func(StreamEvent)) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if err := writeRequest(conn, CommandSubscribe, SubscribePayload{Events: names}); err != nil {
		return err
	}
	reader := bufio.NewReader(conn)
	resp, err := readResponse(reader)
	if err != nil {
		return err
	}
	if resp.Status == "ERROR" {
		return &RemoteError{Code: resp.Code, Message: resp.Error}
	}
	conn.SetDeadline(time.Time{})

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream ended: %w", err)
		}
		var ev StreamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("failed to parse event: %w", err)
		}
		fn(ev)
	}
}
