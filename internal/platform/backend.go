package platform

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether inner lies entirely within r.
func (r Rect) Contains(inner Rect) bool {
	if inner.Width <= 0 || inner.Height <= 0 {
		return false
	}
	return inner.X >= r.X &&
		inner.Y >= r.Y &&
		inner.X+inner.Width <= r.X+r.Width &&
		inner.Y+inner.Height <= r.Y+r.Height
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// Window is a top-level window owned by (or left behind by) this application.
// Label is the application-level identifier the window was opened with.
type Window struct {
	ID     WindowID
	Label  string
	Title  string
	Bounds Rect
}

// WindowOptions describes a window to open. Windows are created hidden; callers
// show and focus them explicitly.
type WindowOptions struct {
	Label  string
	Title  string
	Bounds Rect

	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int

	Resizable        bool
	AlwaysOnTop      bool
	Transparent      bool
	Decorations      bool
	Shadow           bool
	SkipTaskbar      bool
	AcceptFirstMouse bool
}

// Backend abstracts window-system operations across platforms.
type Backend interface {
	Displays() ([]Display, error)
	// Windows lists every live window carrying an application label.
	Windows() ([]Window, error)
	// LookupWindow reports whether a live window with the given label exists.
	LookupWindow(label string) (Window, bool, error)
	OpenWindow(opts WindowOptions) (Window, error)
	// CloseWindow requests the window be closed. Completion is observed by
	// polling LookupWindow.
	CloseWindow(label string) error
	ShowWindow(label string) error
	FocusWindow(label string) error
	MoveWindow(label string, bounds Rect) error
}

// MoveHandler receives the new root-relative bounds of a window after the user
// or the window manager moved or resized it.
type MoveHandler func(label string, bounds Rect)

// MoveNotifier is implemented by backends that report window moves. Only one
// handler is kept; a later call replaces it.
type MoveNotifier interface {
	SetMoveHandler(fn MoveHandler)
}
