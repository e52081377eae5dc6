package x11

import (
	"fmt"
	"math"
	"os"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
)

// OverlayClass is the WM_CLASS class shared by every window this application
// opens. The WM_CLASS instance carries the window label.
const OverlayClass = "overlaycat"

// OverlayOptions describes an overlay window. Sizes are in pixels.
type OverlayOptions struct {
	Label  string
	Title  string
	X      int
	Y      int
	Width  int
	Height int

	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
	Resizable bool

	AlwaysOnTop      bool
	Transparent      bool
	Decorations      bool
	Shadow           bool
	SkipTaskbar      bool
	AcceptFirstMouse bool

	// OnConfigure, when set, runs on the event loop each time the window is
	// moved or resized. It must not block.
	OnConfigure func(wid xproto.Window)
}

// validateGeometry rejects positions and sizes the X11 wire format cannot
// carry (INT16 coordinates, CARD16 sizes).
func validateGeometry(opts OverlayOptions) error {
	if opts.X < math.MinInt16 || opts.X > math.MaxInt16 || opts.Y < math.MinInt16 || opts.Y > math.MaxInt16 {
		return fmt.Errorf("window position %d,%d outside the X11 coordinate range", opts.X, opts.Y)
	}
	if opts.Width <= 0 || opts.Width > math.MaxUint16 || opts.Height <= 0 || opts.Height > math.MaxUint16 {
		return fmt.Errorf("window size %dx%d outside the X11 size range", opts.Width, opts.Height)
	}
	return nil
}

// CreateOverlayWindow creates an unmapped top-level window with the requested
// hints. The caller maps it with MapWindow once it is registered.
func (c *Connection) CreateOverlayWindow(opts OverlayOptions) (xproto.Window, error) {
	if err := validateGeometry(opts); err != nil {
		return 0, err
	}

	xu := c.XUtil
	conn := xu.Conn()
	screen := xu.Screen()

	depth := screen.RootDepth
	visual := screen.RootVisual
	colormap := screen.DefaultColormap
	ownColormap := false

	if opts.Transparent {
		if argb, ok := findARGBVisual(screen); ok {
			cmap, err := xproto.NewColormapId(conn)
			if err != nil {
				return 0, fmt.Errorf("failed to allocate colormap id: %w", err)
			}
			if err := xproto.CreateColormapChecked(conn, xproto.ColormapAllocNone, cmap, c.Root, argb).Check(); err != nil {
				return 0, fmt.Errorf("failed to create argb colormap: %w", err)
			}
			depth = 32
			visual = argb
			colormap = cmap
			ownColormap = true
		}
	}
	releaseOwn := func() {
		if ownColormap {
			c.freeColormap(colormap)
		}
	}

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		releaseOwn()
		return 0, err
	}

	// Value list order follows the bit positions of the mask (low -> high):
	// BackPixel, BorderPixel, EventMask, Colormap.
	err = xproto.CreateWindowChecked(
		conn,
		depth,
		wid,
		c.Root,
		int16(opts.X), int16(opts.Y),
		uint16(opts.Width), uint16(opts.Height),
		0,
		xproto.WindowClassInputOutput,
		visual,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwEventMask|xproto.CwColormap,
		[]uint32{
			0, // fully transparent on an ARGB visual, black otherwise
			0,
			xproto.EventMaskStructureNotify | xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease | xproto.EventMaskPointerMotion,
			uint32(colormap),
		},
	).Check()
	if err != nil {
		releaseOwn()
		return 0, fmt.Errorf("failed to create window: %w", err)
	}
	if ownColormap {
		c.trackColormap(wid, colormap)
	}

	if err := c.applyOverlayHints(wid, opts); err != nil {
		c.DestroyWindow(wid)
		return 0, err
	}

	c.handleDeleteRequests(wid)
	if opts.OnConfigure != nil {
		c.handleConfigureNotify(wid, opts.OnConfigure)
	}
	return wid, nil
}

func (c *Connection) applyOverlayHints(wid xproto.Window, opts OverlayOptions) error {
	xu := c.XUtil

	if err := icccm.WmClassSet(xu, wid, &icccm.WmClass{Instance: opts.Label, Class: OverlayClass}); err != nil {
		return fmt.Errorf("failed to set WM_CLASS: %w", err)
	}
	if err := ewmh.WmNameSet(xu, wid, opts.Title); err != nil {
		return fmt.Errorf("failed to set _NET_WM_NAME: %w", err)
	}
	icccm.WmNameSet(xu, wid, opts.Title)

	minW, minH, maxW, maxH := opts.MinWidth, opts.MinHeight, opts.MaxWidth, opts.MaxHeight
	if !opts.Resizable {
		minW, maxW = opts.Width, opts.Width
		minH, maxH = opts.Height, opts.Height
	}
	hints := &icccm.NormalHints{
		Flags: icccm.SizeHintUSPosition | icccm.SizeHintPPosition | icccm.SizeHintPSize |
			icccm.SizeHintPMinSize | icccm.SizeHintPMaxSize,
		X:         opts.X,
		Y:         opts.Y,
		Width:     uint(opts.Width),
		Height:    uint(opts.Height),
		MinWidth:  uint(minW),
		MinHeight: uint(minH),
		MaxWidth:  uint(maxW),
		MaxHeight: uint(maxH),
	}
	if err := icccm.WmNormalHintsSet(xu, wid, hints); err != nil {
		return fmt.Errorf("failed to set WM_NORMAL_HINTS: %w", err)
	}

	if opts.AcceptFirstMouse {
		// Input hint: the first click is delivered to the window rather than
		// being swallowed as a focus click.
		icccm.WmHintsSet(xu, wid, &icccm.Hints{Flags: icccm.HintInput, Input: 1})
	}
	icccm.WmProtocolsSet(xu, wid, []string{"WM_DELETE_WINDOW"})
	ewmh.WmPidSet(xu, wid, uint(os.Getpid()))
	ewmh.WmWindowTypeSet(xu, wid, []string{"_NET_WM_WINDOW_TYPE_UTILITY"})

	var states []string
	if opts.AlwaysOnTop {
		states = append(states, "_NET_WM_STATE_ABOVE")
	}
	if opts.SkipTaskbar {
		states = append(states, "_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER")
	}
	if len(states) > 0 {
		if err := ewmh.WmStateSet(xu, wid, states); err != nil {
			return fmt.Errorf("failed to set _NET_WM_STATE: %w", err)
		}
	}

	if !opts.Decorations {
		if err := motif.WmHintsSet(xu, wid, &motif.Hints{
			Flags:      motif.HintDecorations,
			Decoration: motif.DecorationNone,
		}); err != nil {
			return fmt.Errorf("failed to set _MOTIF_WM_HINTS: %w", err)
		}
	}

	if !opts.Shadow {
		// Honoured by picom/compton; ignored elsewhere.
		xprop.ChangeProp32(xu, wid, "_COMPTON_SHADOW", "CARDINAL", 0)
	}

	return nil
}

// handleDeleteRequests destroys the window when the window manager asks it to
// close, so the window disappears from the client list like any other.
func (c *Connection) handleDeleteRequests(wid xproto.Window) {
	xevent.ClientMessageFun(func(xu *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
		if ev.Format != 32 {
			return
		}
		name, err := xprop.AtomName(xu, xproto.Atom(ev.Data.Data32[0]))
		if err != nil || name != "WM_DELETE_WINDOW" {
			return
		}
		c.DestroyWindow(wid)
	}).Connect(c.XUtil, wid)
}

// handleConfigureNotify reports moves and resizes of wid. Reparenting window
// managers move the frame and send a synthetic event, so the callback reads
// the root-relative geometry itself instead of trusting the event fields.
func (c *Connection) handleConfigureNotify(wid xproto.Window, fn func(xproto.Window)) {
	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		if ev.Window != wid {
			return
		}
		fn(wid)
	}).Connect(c.XUtil, wid)
}

func findARGBVisual(screen *xproto.ScreenInfo) (xproto.Visualid, bool) {
	for _, d := range screen.AllowedDepths {
		if d.Depth != 32 {
			continue
		}
		for _, v := range d.Visuals {
			if v.Class == xproto.VisualClassTrueColor {
				return v.VisualId, true
			}
		}
	}
	return 0, false
}
