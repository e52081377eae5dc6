//go:build linux

package platform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/overlaycat/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend implements Backend on top of an X11 connection.
type LinuxBackend struct {
	conn *x11.Connection

	mu     sync.Mutex
	owned  map[string]xproto.Window // label -> window created on this connection
	onMove MoveHandler

	// Configure events arrive in bursts while a window is dragged; labels are
	// coalesced here and reported by moveLoop off the event loop.
	pendingMoves map[string]struct{}
	moveSignal   chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
}

var (
	_ Backend      = (*LinuxBackend)(nil)
	_ MoveNotifier = (*LinuxBackend)(nil)
)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	b := &LinuxBackend{
		conn:         conn,
		owned:        make(map[string]xproto.Window),
		pendingMoves: make(map[string]struct{}),
		moveSignal:   make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	go b.moveLoop()
	return b
}

// OpenNative connects to the X11 display (empty = $DISPLAY) and returns a backend.
func OpenNative(display string) (Backend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// Disconnect destroys owned windows and closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b == nil || b.conn == nil {
		return
	}
	b.closeOnce.Do(func() { close(b.done) })
	b.mu.Lock()
	for label, wid := range b.owned {
		b.conn.DestroyWindow(wid)
		delete(b.owned, label)
	}
	b.mu.Unlock()
	b.conn.Close()
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Displays returns all active displays in RandR CRTC order.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}

	sort.SliceStable(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

// Windows lists owned windows plus any other window carrying the overlay class.
func (b *LinuxBackend) Windows() ([]Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	byLabel := make(map[string]Window)
	for label, wid := range b.liveOwned() {
		byLabel[label] = b.describe(wid, label, "")
	}

	// Without an EWMH window manager there is no client list; only owned
	// windows are visible then.
	if clients, err := conn.OverlayClients(x11.OverlayClass); err == nil {
		for _, cw := range clients {
			if cw.Label == "" {
				continue
			}
			if _, ok := byLabel[cw.Label]; ok {
				continue
			}
			byLabel[cw.Label] = b.describe(cw.ID, cw.Label, cw.Title)
		}
	}

	out := make([]Window, 0, len(byLabel))
	for _, w := range byLabel {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// LookupWindow finds a live window by label.
func (b *LinuxBackend) LookupWindow(label string) (Window, bool, error) {
	if _, err := b.connection(); err != nil {
		return Window{}, false, err
	}
	if wid, ok := b.ownedWindow(label); ok {
		return b.describe(wid, label, ""), true, nil
	}

	windows, err := b.Windows()
	if err != nil {
		return Window{}, false, err
	}
	for _, w := range windows {
		if w.Label == label {
			return w, true, nil
		}
	}
	return Window{}, false, nil
}

// OpenWindow creates an unmapped overlay window.
func (b *LinuxBackend) OpenWindow(opts WindowOptions) (Window, error) {
	conn, err := b.connection()
	if err != nil {
		return Window{}, err
	}

	wid, err := conn.CreateOverlayWindow(overlayOptions(opts, func(xproto.Window) {
		b.queueMove(opts.Label)
	}))
	if err != nil {
		return Window{}, err
	}

	b.mu.Lock()
	b.owned[opts.Label] = wid
	b.mu.Unlock()

	return Window{
		ID:     WindowID(wid),
		Label:  opts.Label,
		Title:  opts.Title,
		Bounds: opts.Bounds,
	}, nil
}

// CloseWindow destroys an owned window, or asks a foreign one to close.
func (b *LinuxBackend) CloseWindow(label string) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	b.mu.Lock()
	wid, owned := b.owned[label]
	delete(b.owned, label)
	b.mu.Unlock()

	if owned {
		if !conn.WindowAlive(wid) {
			return nil
		}
		return conn.DestroyWindow(wid)
	}

	w, ok, err := b.LookupWindow(label)
	if err != nil || !ok {
		return err
	}
	return conn.RequestClose(xproto.Window(w.ID))
}

// ShowWindow maps the window.
func (b *LinuxBackend) ShowWindow(label string) error {
	wid, err := b.resolve(label)
	if err != nil {
		return err
	}
	return b.conn.MapWindow(wid)
}

// FocusWindow activates and raises the window.
func (b *LinuxBackend) FocusWindow(label string) error {
	wid, err := b.resolve(label)
	if err != nil {
		return err
	}
	return b.conn.FocusWindow(wid)
}

// MoveWindow moves and resizes the window.
func (b *LinuxBackend) MoveWindow(label string, bounds Rect) error {
	wid, err := b.resolve(label)
	if err != nil {
		return err
	}
	return b.conn.MoveResizeWindow(wid, bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

// SetMoveHandler registers the callback that receives the geometry of owned
// windows after they were moved or resized.
func (b *LinuxBackend) SetMoveHandler(fn MoveHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onMove = fn
}

func (b *LinuxBackend) queueMove(label string) {
	b.mu.Lock()
	b.pendingMoves[label] = struct{}{}
	b.mu.Unlock()

	select {
	case b.moveSignal <- struct{}{}:
	default:
	}
}

func (b *LinuxBackend) moveLoop() {
	for {
		select {
		case <-b.done:
			return
		case <-b.moveSignal:
			b.flushMoves()
		}
	}
}

func (b *LinuxBackend) flushMoves() {
	b.mu.Lock()
	pending := b.pendingMoves
	b.pendingMoves = make(map[string]struct{})
	handler := b.onMove
	b.mu.Unlock()

	if handler == nil {
		return
	}
	for label := range pending {
		wid, ok := b.ownedWindow(label)
		if !ok {
			continue
		}
		x, y, width, height, err := b.conn.WindowRect(wid)
		if err != nil {
			continue
		}
		handler(label, Rect{X: x, Y: y, Width: width, Height: height})
	}
}

func (b *LinuxBackend) resolve(label string) (xproto.Window, error) {
	w, ok, err := b.LookupWindow(label)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("window %q not found", label)
	}
	return xproto.Window(w.ID), nil
}

func (b *LinuxBackend) ownedWindow(label string) (xproto.Window, bool) {
	b.mu.Lock()
	wid, ok := b.owned[label]
	b.mu.Unlock()
	if !ok {
		return 0, false
	}
	if !b.conn.WindowAlive(wid) {
		b.mu.Lock()
		if b.owned[label] == wid {
			delete(b.owned, label)
		}
		b.mu.Unlock()
		return 0, false
	}
	return wid, true
}

func (b *LinuxBackend) liveOwned() map[string]xproto.Window {
	b.mu.Lock()
	labels := make([]string, 0, len(b.owned))
	for label := range b.owned {
		labels = append(labels, label)
	}
	b.mu.Unlock()

	live := make(map[string]xproto.Window, len(labels))
	for _, label := range labels {
		if wid, ok := b.ownedWindow(label); ok {
			live[label] = wid
		}
	}
	return live
}

func (b *LinuxBackend) describe(wid xproto.Window, label, title string) Window {
	w := Window{ID: WindowID(wid), Label: label, Title: title}
	if x, y, width, height, err := b.conn.WindowRect(wid); err == nil {
		w.Bounds = Rect{X: x, Y: y, Width: width, Height: height}
	}
	return w
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func overlayOptions(opts WindowOptions, onConfigure func(xproto.Window)) x11.OverlayOptions {
	return x11.OverlayOptions{
		Label:            opts.Label,
		Title:            opts.Title,
		X:                opts.Bounds.X,
		Y:                opts.Bounds.Y,
		Width:            opts.Bounds.Width,
		Height:           opts.Bounds.Height,
		MinWidth:         opts.MinWidth,
		MinHeight:        opts.MinHeight,
		MaxWidth:         opts.MaxWidth,
		MaxHeight:        opts.MaxHeight,
		Resizable:        opts.Resizable,
		AlwaysOnTop:      opts.AlwaysOnTop,
		Transparent:      opts.Transparent,
		Decorations:      opts.Decorations,
		Shadow:           opts.Shadow,
		SkipTaskbar:      opts.SkipTaskbar,
		AcceptFirstMouse: opts.AcceptFirstMouse,
		OnConfigure:      onConfigure,
	}
}

func displayFromMonitor(m x11.Monitor) Display {
	bounds := Rect{
		X:      m.X,
		Y:      m.Y,
		Width:  m.Width,
		Height: m.Height,
	}
	return Display{
		ID:     m.ID,
		Name:   m.Name,
		Bounds: bounds,
		Usable: bounds,
	}
}
