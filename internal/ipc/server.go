package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/overlaycat/internal/app"
	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/events"
	"github.com/1broseidon/overlaycat/internal/memwatch"
	"github.com/1broseidon/overlaycat/internal/runtimepath"
)

const (
	subscriberBuffer   = 64
	requestReadTimeout = 10 * time.Second
)

// Commands is the command surface the server exposes. *app.App implements it.
type Commands interface {
	ListMonitors(ctx context.Context) ([]display.Monitor, error)
	CreateWindowOnMonitor(ctx context.Context, slot int, isPrimary bool) (string, error)
	CloseWindowInstance(ctx context.Context, id string) error
	CloseWindowOnMonitor(ctx context.Context, slot int) error
	MoveMainWindowToMonitor(ctx context.Context, slot int) error
	ResetWindowPositions(ctx context.Context) error
	ListWindowInstances(ctx context.Context) []display.WindowInstance
	ShowOnAllMonitors(ctx context.Context) ([]string, error)
	GetMemoryStatus(ctx context.Context) (memwatch.Status, error)
	TriggerMemoryCleanup(ctx context.Context) (string, error)
	Status(ctx context.Context) app.Status
	Reload(ctx context.Context) error
	Subscribe(names []string, handler events.Handler) func()
}

var _ Commands = (*app.App)(nil)

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	commands   Commands
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a server on the standard socket path.
func NewServer(commands Commands, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, commands, logger), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, commands Commands, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		commands:   commands,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) isShuttingDown() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// handleConnection serves one request, or one event stream for SUBSCRIBE.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(CodeInvalidRequest, fmt.Sprintf("invalid request: %v", err)))
		return
	}

	if req.Command == CommandSubscribe {
		s.handleSubscribe(conn, reader, req.Payload)
		return
	}

	s.writeResponse(conn, s.handleCommand(s.ctx, req))
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) {
	data, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)

	switch req.Command {
	case CommandListMonitors:
		monitors, err := s.commands.ListMonitors(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return okResponse(MonitorsData{Monitors: monitors})

	case CommandCreateWindow:
		var p CreateWindowPayload
		if resp := decodePayload(req.Payload, &p); resp != nil {
			return resp
		}
		if p.Slot == nil {
			return NewErrorResponse(CodeInvalidRequest, "slot is required")
		}
		id, err := s.commands.CreateWindowOnMonitor(ctx, *p.Slot, p.IsPrimary)
		if err != nil {
			return errorResponse(err)
		}
		return okResponse(CreateWindowData{ID: id})

	case CommandCloseWindow:
		var p CloseWindowPayload
		if resp := decodePayload(req.Payload, &p); resp != nil {
			return resp
		}
		if p.ID == "" {
			return NewErrorResponse(CodeInvalidRequest, "id is required")
		}
		return emptyResponse(s.commands.CloseWindowInstance(ctx, p.ID))

	case CommandCloseMonitorWindow:
		slot, resp := decodeSlot(req.Payload)
		if resp != nil {
			return resp
		}
		return emptyResponse(s.commands.CloseWindowOnMonitor(ctx, slot))

	case CommandMoveMainWindow:
		slot, resp := decodeSlot(req.Payload)
		if resp != nil {
			return resp
		}
		return emptyResponse(s.commands.MoveMainWindowToMonitor(ctx, slot))

	case CommandResetPositions:
		return emptyResponse(s.commands.ResetWindowPositions(ctx))

	case CommandListInstances:
		return okResponse(InstancesData{Instances: s.commands.ListWindowInstances(ctx)})

	case CommandShowAll:
		ids, err := s.commands.ShowOnAllMonitors(ctx)
		resp := okResponse(ShowAllData{IDs: ids})
		if err != nil {
			// Partial success: report the failures but keep the opened IDs.
			eresp := errorResponse(err)
			eresp.Data = resp.Data
			return eresp
		}
		return resp

	case CommandGetMemoryStatus:
		status, err := s.commands.GetMemoryStatus(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return okResponse(status)

	case CommandTriggerMemoryCleanup:
		msg, err := s.commands.TriggerMemoryCleanup(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return okResponse(CleanupData{Message: msg})

	case CommandGetStatus:
		return okResponse(s.commands.Status(ctx))

	case CommandReload:
		s.logger.Info("IPC: received RELOAD command")
		if err := s.commands.Reload(ctx); err != nil {
			return NewErrorResponse(CodeInternal, fmt.Sprintf("failed to reload config: %v", err))
		}
		return okResponse(nil)

	default:
		return NewErrorResponse(CodeUnknownCommand, fmt.Sprintf("unknown command: %s", req.Command))
	}
}

// handleSubscribe acknowledges the subscription and streams events until the
// client disconnects or the server stops. Events are dropped for a client
// that cannot keep up.
func (s *Server) handleSubscribe(conn net.Conn, reader *bufio.Reader, payload json.RawMessage) {
	var p SubscribePayload
	if len(payload) > 0 {
		if resp := decodePayload(payload, &p); resp != nil {
			s.writeResponse(conn, resp)
			return
		}
	}

	queue := make(chan events.Event, subscriberBuffer)
	unsubscribe := s.commands.Subscribe(p.Events, func(ev events.Event) {
		select {
		case queue <- ev:
		default:
		}
	})
	defer unsubscribe()

	s.writeResponse(conn, okResponse(nil))

	// The client never sends again; a read returning means it hung up.
	conn.SetReadDeadline(time.Time{})
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		io.Copy(io.Discard, reader)
	}()

	enc := json.NewEncoder(conn)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-gone:
			return
		case ev := <-queue:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := enc.Encode(ev); err != nil {
				s.logger.Debug("subscriber write failed", "error", err)
				return
			}
		}
	}
}

// Stop closes the listener, ends streams and waits for handlers to return.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

func okResponse(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(CodeInternal, err.Error())
	}
	return resp
}

func emptyResponse(err error) *Response {
	if err != nil {
		return errorResponse(err)
	}
	return okResponse(nil)
}

func decodePayload(payload json.RawMessage, out any) *Response {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return NewErrorResponse(CodeInvalidRequest, fmt.Sprintf("invalid payload: %v", err))
	}
	return nil
}

func decodeSlot(payload json.RawMessage) (int, *Response) {
	var p SlotPayload
	if resp := decodePayload(payload, &p); resp != nil {
		return 0, resp
	}
	if p.Slot == nil {
		return 0, NewErrorResponse(CodeInvalidRequest, "slot is required")
	}
	return *p.Slot, nil
}
