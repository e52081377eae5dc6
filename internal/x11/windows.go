package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
)

// ClientWindow is a managed window carrying the overlay WM_CLASS.
type ClientWindow struct {
	ID    xproto.Window
	Label string
	Title string
}

// OverlayClients lists managed windows whose WM_CLASS class matches class.
func (c *Connection) OverlayClients(class string) ([]ClientWindow, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}

	var out []ClientWindow
	for _, win := range clients {
		wmClass, err := icccm.WmClassGet(c.XUtil, win)
		if err != nil || wmClass.Class != class {
			continue
		}
		out = append(out, ClientWindow{
			ID:    win,
			Label: strings.TrimSpace(wmClass.Instance),
			Title: c.windowTitle(win),
		})
	}
	return out, nil
}

// WindowAlive reports whether the X server still knows the window.
func (c *Connection) WindowAlive(windowID xproto.Window) bool {
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	return err == nil
}

// WindowRect returns the window geometry in root coordinates.
func (c *Connection) WindowRect(windowID xproto.Window) (x, y, width, height int, err error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), nil
}

// MapWindow shows a window.
func (c *Connection) MapWindow(windowID xproto.Window) error {
	return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Use EWMH MoveResize for better WM compatibility
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		// Fallback to direct window manipulation
		return xproto.ConfigureWindowChecked(
			c.XUtil.Conn(),
			windowID,
			xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(x), uint32(y), uint32(width), uint32(height)},
		).Check()
	}
	return nil
}

// DestroyWindow destroys a window created on this connection.
func (c *Connection) DestroyWindow(windowID xproto.Window) error {
	xevent.Detach(c.XUtil, windowID)
	err := xproto.DestroyWindowChecked(c.XUtil.Conn(), windowID).Check()
	c.releaseColormap(windowID)
	return err
}

func (c *Connection) trackColormap(windowID xproto.Window, cmap xproto.Colormap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colormaps == nil {
		c.colormaps = make(map[xproto.Window]xproto.Colormap)
	}
	c.colormaps[windowID] = cmap
}

func (c *Connection) releaseColormap(windowID xproto.Window) {
	c.mu.Lock()
	cmap, ok := c.colormaps[windowID]
	delete(c.colormaps, windowID)
	c.mu.Unlock()
	if ok {
		c.freeColormap(cmap)
	}
}

func (c *Connection) freeColormap(cmap xproto.Colormap) {
	if c.freeCmap != nil {
		c.freeCmap(cmap)
		return
	}
	xproto.FreeColormap(c.XUtil.Conn(), cmap)
}

// RequestClose asks a window owned by another client to close via WM_DELETE_WINDOW.
func (c *Connection) RequestClose(windowID xproto.Window) error {
	conn := c.XUtil.Conn()

	deleteReply, err := xproto.InternAtom(conn, false, uint16(len("WM_DELETE_WINDOW")), "WM_DELETE_WINDOW").Reply()
	if err != nil {
		return err
	}
	protocolsReply, err := xproto.InternAtom(conn, false, uint16(len("WM_PROTOCOLS")), "WM_PROTOCOLS").Reply()
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   protocolsReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteReply.Atom), 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		conn,
		false,
		windowID,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}

func (c *Connection) windowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}
