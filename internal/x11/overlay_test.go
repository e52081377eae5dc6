package x11

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestValidateGeometry(t *testing.T) {
	tests := []struct {
		name    string
		opts    OverlayOptions
		wantErr bool
	}{
		{"centered on second monitor", OverlayOptions{X: 2260, Y: 760, Width: 400, Height: 400}, false},
		{"negative position left of primary", OverlayOptions{X: -1500, Y: -200, Width: 400, Height: 400}, false},
		{"int16 limits", OverlayOptions{X: 32767, Y: -32768, Width: 65535, Height: 1}, false},
		{"x beyond int16", OverlayOptions{X: 32768, Y: 0, Width: 400, Height: 400}, true},
		{"y below int16", OverlayOptions{X: 0, Y: -32769, Width: 400, Height: 400}, true},
		{"width beyond uint16", OverlayOptions{X: 0, Y: 0, Width: 65536, Height: 400}, true},
		{"zero height", OverlayOptions{X: 0, Y: 0, Width: 400, Height: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateGeometry(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateGeometry(%+v) error = %v, wantErr %v", tt.opts, err, tt.wantErr)
			}
		})
	}
}

func TestColormapReleasedOnce(t *testing.T) {
	var freed []xproto.Colormap
	c := &Connection{freeCmap: func(cmap xproto.Colormap) { freed = append(freed, cmap) }}

	c.releaseColormap(7) // default colormap, nothing tracked
	if len(freed) != 0 {
		t.Fatalf("freed untracked colormap: %v", freed)
	}

	c.trackColormap(7, 99)
	c.trackColormap(8, 100)
	c.releaseColormap(7)
	c.releaseColormap(7)
	if len(freed) != 1 || freed[0] != 99 {
		t.Fatalf("freed = %v, want [99]", freed)
	}
	if _, ok := c.colormaps[8]; !ok {
		t.Fatal("colormap of another window released")
	}
}
