package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/memwatch"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandListMonitors         CommandType = "LIST_MONITORS"
	CommandCreateWindow         CommandType = "CREATE_WINDOW"
	CommandCloseWindow          CommandType = "CLOSE_WINDOW"
	CommandCloseMonitorWindow   CommandType = "CLOSE_MONITOR_WINDOW"
	CommandMoveMainWindow       CommandType = "MOVE_MAIN_WINDOW"
	CommandResetPositions       CommandType = "RESET_POSITIONS"
	CommandListInstances        CommandType = "LIST_INSTANCES"
	CommandShowAll              CommandType = "SHOW_ALL"
	CommandGetMemoryStatus      CommandType = "GET_MEMORY_STATUS"
	CommandTriggerMemoryCleanup CommandType = "TRIGGER_MEMORY_CLEANUP"
	CommandGetStatus            CommandType = "GET_STATUS"
	CommandReload               CommandType = "RELOAD"
	CommandSubscribe            CommandType = "SUBSCRIBE"
)

// Error codes carried in Response.Code besides the display error kinds.
const (
	CodeInvalidRequest = "InvalidRequest"
	CodeUnknownCommand = "UnknownCommand"
	CodeInternal       = "Internal"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

type CreateWindowPayload struct {
	Slot      *int `json:"slot"`
	IsPrimary bool `json:"is_primary,omitempty"`
}

type CloseWindowPayload struct {
	ID string `json:"id"`
}

// SlotPayload is used by CLOSE_MONITOR_WINDOW and MOVE_MAIN_WINDOW.
type SlotPayload struct {
	Slot *int `json:"slot"`
}

type SubscribePayload struct {
	Events []string `json:"events,omitempty"`
}

type MonitorsData struct {
	Monitors []display.Monitor `json:"monitors"`
}

type CreateWindowData struct {
	ID string `json:"id"`
}

type InstancesData struct {
	Instances []display.WindowInstance `json:"instances"`
}

type ShowAllData struct {
	IDs []string `json:"ids"`
}

type CleanupData struct {
	Message string `json:"message"`
}

// MemoryData is the GET_MEMORY_STATUS payload.
type MemoryData = memwatch.Status

// StreamEvent is one line of a SUBSCRIBE stream.
type StreamEvent struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Time    time.Time       `json:"time"`
}

// RemoteError is an ERROR response surfaced by the client.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("daemon error [%s]: %s", e.Code, e.Message)
	}
	return "daemon error: " + e.Message
}

// CodeOf returns the remote error code carried by err, if any.
func CodeOf(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message and code
func NewErrorResponse(code, errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
		Code:   code,
	}
}

// errorResponse classifies err into a response code.
func errorResponse(err error) *Response {
	code := CodeInternal
	if kind := display.KindOf(err); kind != display.KindUnknown {
		code = kind.String()
	}
	return NewErrorResponse(code, err.Error())
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
