package display

import (
	"fmt"

	"github.com/1broseidon/overlaycat/internal/platform"
)

// Monitor is a read-only snapshot of one display. Index is the ordinal
// position in the enumeration it came from and is not a durable key: it may
// change when displays are reconnected or reordered. Name, when the platform
// provides one, is the more stable identity.
type Monitor struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// Bounds returns the monitor rectangle in virtual-screen coordinates.
func (m Monitor) Bounds() platform.Rect {
	return platform.Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}
}

// Center returns the top-left corner that centers a width x height window.
func (m Monitor) Center(width, height int) (int, int) {
	return m.X + (m.Width-width)/2, m.Y + (m.Height-height)/2
}

// Enumerator lists monitors through the windowing backend. It holds no state.
type Enumerator struct {
	backend platform.Backend
}

// NewEnumerator creates an enumerator over backend.
func NewEnumerator(backend platform.Backend) *Enumerator {
	return &Enumerator{backend: backend}
}

// ListMonitors returns monitors in platform enumeration order.
func (e *Enumerator) ListMonitors() ([]Monitor, error) {
	displays, err := e.backend.Displays()
	if err != nil {
		return nil, platformQueryError("query monitors", err)
	}

	monitors := make([]Monitor, 0, len(displays))
	for i, d := range displays {
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("Monitor %d", i+1)
		}
		monitors = append(monitors, Monitor{
			Index:  i,
			Name:   name,
			Width:  d.Bounds.Width,
			Height: d.Bounds.Height,
			X:      d.Bounds.X,
			Y:      d.Bounds.Y,
		})
	}
	return monitors, nil
}
