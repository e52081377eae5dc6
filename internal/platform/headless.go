package platform

import (
	"fmt"
	"sort"
	"sync"
)

// Headless is an in-memory Backend. The daemon uses it when no display server
// is available, and tests use it to drive the window lifecycle deterministically.
type Headless struct {
	mu       sync.Mutex
	displays []Display
	windows  map[string]Window
	visible  map[string]bool
	focused  string
	nextID   WindowID
	opened   []WindowOptions
	onMove   MoveHandler

	// Optional failure hooks. A non-nil error aborts the operation.
	DisplaysHook func() error
	OpenHook     func(opts WindowOptions) error
	CloseHook    func(label string) error
	// KeepOnClose leaves windows alive after a successful CloseWindow call,
	// simulating a window that ignores close requests.
	KeepOnClose bool
}

var (
	_ Backend      = (*Headless)(nil)
	_ MoveNotifier = (*Headless)(nil)
)

// NewHeadless creates an in-memory backend with the given displays.
func NewHeadless(displays ...Display) *Headless {
	return &Headless{
		displays: append([]Display(nil), displays...),
		windows:  make(map[string]Window),
		visible:  make(map[string]bool),
		nextID:   1,
	}
}

// SetDisplays replaces the connected display set.
func (h *Headless) SetDisplays(displays ...Display) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.displays = append([]Display(nil), displays...)
}

// Displays returns the configured displays in enumeration order.
func (h *Headless) Displays() ([]Display, error) {
	if h.DisplaysHook != nil {
		if err := h.DisplaysHook(); err != nil {
			return nil, err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Display(nil), h.displays...), nil
}

// Windows returns all live windows sorted by label.
func (h *Headless) Windows() ([]Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Window, 0, len(h.windows))
	for _, w := range h.windows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// LookupWindow reports whether a window with label is alive.
func (h *Headless) LookupWindow(label string) (Window, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[label]
	return w, ok, nil
}

// OpenWindow creates a hidden window.
func (h *Headless) OpenWindow(opts WindowOptions) (Window, error) {
	if h.OpenHook != nil {
		if err := h.OpenHook(opts); err != nil {
			return Window{}, err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.windows[opts.Label]; exists {
		return Window{}, fmt.Errorf("a window labelled %q already exists", opts.Label)
	}
	w := Window{
		ID:     h.nextID,
		Label:  opts.Label,
		Title:  opts.Title,
		Bounds: opts.Bounds,
	}
	h.nextID++
	h.windows[opts.Label] = w
	h.opened = append(h.opened, opts)
	return w, nil
}

// CloseWindow removes the window. Closing an unknown label is a no-op.
func (h *Headless) CloseWindow(label string) error {
	if h.CloseHook != nil {
		if err := h.CloseHook(label); err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.KeepOnClose {
		return nil
	}
	delete(h.windows, label)
	delete(h.visible, label)
	if h.focused == label {
		h.focused = ""
	}
	return nil
}

// ShowWindow marks the window visible.
func (h *Headless) ShowWindow(label string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[label]; !ok {
		return fmt.Errorf("window %q not found", label)
	}
	h.visible[label] = true
	return nil
}

// FocusWindow marks the window focused.
func (h *Headless) FocusWindow(label string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[label]; !ok {
		return fmt.Errorf("window %q not found", label)
	}
	h.focused = label
	return nil
}

// MoveWindow updates the window bounds and reports the move like a window
// manager would.
func (h *Headless) MoveWindow(label string, bounds Rect) error {
	h.mu.Lock()
	w, ok := h.windows[label]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("window %q not found", label)
	}
	w.Bounds = bounds
	h.windows[label] = w
	onMove := h.onMove
	h.mu.Unlock()

	if onMove != nil {
		onMove(label, bounds)
	}
	return nil
}

// SetMoveHandler registers the callback MoveWindow reports to.
func (h *Headless) SetMoveHandler(fn MoveHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMove = fn
}

// AddWindow injects a window as if another session had left it behind.
func (h *Headless) AddWindow(label string, bounds Rect) Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	w := Window{ID: h.nextID, Label: label, Bounds: bounds}
	h.nextID++
	h.windows[label] = w
	return w
}

// DropWindow removes a window without going through CloseWindow, simulating
// the OS destroying it behind the application's back.
func (h *Headless) DropWindow(label string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.windows, label)
	delete(h.visible, label)
}

// Opened returns the options of every successful OpenWindow call, in order.
func (h *Headless) Opened() []WindowOptions {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]WindowOptions(nil), h.opened...)
}

// Visible reports whether the window has been shown.
func (h *Headless) Visible(label string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible[label]
}

// Focused returns the label of the focused window.
func (h *Headless) Focused() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focused
}
