package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
)

// Monitor is one active RandR CRTC and the name of its first output.
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// GetMonitors lists active monitors in CRTC order. Disabled CRTCs and CRTCs
// whose info cannot be read are skipped.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	conn := c.XUtil.Conn()
	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	monitors := make([]Monitor, 0, len(resources.Crtcs))
	for i, crtc := range resources.Crtcs {
		if m, ok := c.crtcMonitor(resources, crtc); ok {
			m.ID = i
			monitors = append(monitors, m)
		}
	}
	return monitors, nil
}

func (c *Connection) crtcMonitor(resources *randr.GetScreenResourcesReply, crtc randr.Crtc) (Monitor, bool) {
	conn := c.XUtil.Conn()
	info, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
	if err != nil || info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
		return Monitor{}, false
	}

	// Output names ("DP-1") survive CRTC reordering; empty when unreadable.
	var name string
	if out, err := randr.GetOutputInfo(conn, info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
		name = string(out.Name)
	}

	return Monitor{
		Name:   name,
		X:      int(info.X),
		Y:      int(info.Y),
		Width:  int(info.Width),
		Height: int(info.Height),
	}, true
}
