//go:build linux

package platform

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestOverlayOptionsPassesWindowFlags(t *testing.T) {
	for _, acceptFirstMouse := range []bool{true, false} {
		var configured xproto.Window
		got := overlayOptions(WindowOptions{
			Label:            "secondary_monitor_1",
			Bounds:           Rect{X: 2260, Y: 760, Width: 400, Height: 400},
			MinWidth:         200,
			MaxWidth:         800,
			AlwaysOnTop:      true,
			Transparent:      true,
			SkipTaskbar:      true,
			AcceptFirstMouse: acceptFirstMouse,
		}, func(wid xproto.Window) { configured = wid })

		if got.AcceptFirstMouse != acceptFirstMouse {
			t.Fatalf("AcceptFirstMouse = %v, want %v", got.AcceptFirstMouse, acceptFirstMouse)
		}
		if got.X != 2260 || got.Y != 760 || got.Width != 400 || got.MinWidth != 200 || got.MaxWidth != 800 {
			t.Fatalf("unexpected geometry %+v", got)
		}
		if !got.AlwaysOnTop || !got.Transparent || !got.SkipTaskbar || got.Decorations {
			t.Fatalf("unexpected window flags %+v", got)
		}
		if got.OnConfigure == nil {
			t.Fatal("expected configure callback")
		}
		got.OnConfigure(42)
		if configured != 42 {
			t.Fatalf("configure callback got %d", configured)
		}
	}
}

func TestQueueMoveCoalesces(t *testing.T) {
	b := &LinuxBackend{
		owned:        make(map[string]xproto.Window),
		pendingMoves: make(map[string]struct{}),
		moveSignal:   make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	for i := 0; i < 50; i++ {
		b.queueMove("secondary_monitor_0")
	}
	b.queueMove("main_monitor_1")

	if len(b.pendingMoves) != 2 {
		t.Fatalf("pending moves = %d, want 2", len(b.pendingMoves))
	}
	if len(b.moveSignal) != 1 {
		t.Fatalf("expected a single pending signal, got %d", len(b.moveSignal))
	}
}
