package platform

import (
	"errors"
	"testing"
)

func TestRectContains(t *testing.T) {
	bounds := Rect{X: 1920, Y: 0, Width: 1080, Height: 1920}
	tests := []struct {
		name  string
		inner Rect
		want  bool
	}{
		{"centered", Rect{X: 2260, Y: 760, Width: 400, Height: 400}, true},
		{"touching edges", Rect{X: 1920, Y: 0, Width: 1080, Height: 1920}, true},
		{"left of monitor", Rect{X: 1800, Y: 100, Width: 400, Height: 400}, false},
		{"overflows right", Rect{X: 2700, Y: 100, Width: 400, Height: 400}, false},
		{"overflows bottom", Rect{X: 2000, Y: 1600, Width: 400, Height: 400}, false},
		{"empty", Rect{X: 2000, Y: 100}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bounds.Contains(tt.inner); got != tt.want {
				t.Fatalf("Contains(%+v) = %v, want %v", tt.inner, got, tt.want)
			}
		})
	}
}

func TestHeadlessOpenCloseLifecycle(t *testing.T) {
	h := NewHeadless(Display{ID: 0, Name: "DP-1", Bounds: Rect{Width: 1920, Height: 1080}})

	w, err := h.OpenWindow(WindowOptions{Label: "secondary_monitor_0", Bounds: Rect{X: 760, Y: 340, Width: 400, Height: 400}})
	if err != nil {
		t.Fatalf("OpenWindow: %v", err)
	}
	if w.ID == 0 {
		t.Fatal("expected non-zero window id")
	}
	if h.Visible(w.Label) {
		t.Fatal("windows must start hidden")
	}
	if _, err := h.OpenWindow(WindowOptions{Label: "secondary_monitor_0"}); err == nil {
		t.Fatal("expected duplicate label to fail")
	}

	if err := h.ShowWindow(w.Label); err != nil {
		t.Fatalf("ShowWindow: %v", err)
	}
	if err := h.FocusWindow(w.Label); err != nil {
		t.Fatalf("FocusWindow: %v", err)
	}
	if h.Focused() != w.Label {
		t.Fatalf("Focused() = %q, want %q", h.Focused(), w.Label)
	}

	if err := h.CloseWindow(w.Label); err != nil {
		t.Fatalf("CloseWindow: %v", err)
	}
	if _, ok, _ := h.LookupWindow(w.Label); ok {
		t.Fatal("window still alive after close")
	}
	if h.Focused() != "" {
		t.Fatal("focus should be cleared when the focused window closes")
	}
}

func TestHeadlessHooks(t *testing.T) {
	h := NewHeadless()
	boom := errors.New("boom")

	h.DisplaysHook = func() error { return boom }
	if _, err := h.Displays(); !errors.Is(err, boom) {
		t.Fatalf("Displays error = %v, want %v", err, boom)
	}

	h.OpenHook = func(WindowOptions) error { return boom }
	if _, err := h.OpenWindow(WindowOptions{Label: "x"}); !errors.Is(err, boom) {
		t.Fatalf("OpenWindow error = %v, want %v", err, boom)
	}
	if len(h.Opened()) != 0 {
		t.Fatal("failed open must not be recorded")
	}

	h.AddWindow("monitor_0", Rect{})
	h.CloseHook = func(string) error { return boom }
	if err := h.CloseWindow("monitor_0"); !errors.Is(err, boom) {
		t.Fatalf("CloseWindow error = %v, want %v", err, boom)
	}
	if _, ok, _ := h.LookupWindow("monitor_0"); !ok {
		t.Fatal("window should survive a failed close")
	}
}

func TestHeadlessMoveWindowReportsMove(t *testing.T) {
	h := NewHeadless(Display{ID: 0, Name: "DP-1", Bounds: Rect{Width: 1920, Height: 1080}})
	if err := h.MoveWindow("missing", Rect{}); err == nil {
		t.Fatal("expected moving an unknown window to fail")
	}

	h.AddWindow("main_monitor_0", Rect{X: 760, Y: 340, Width: 400, Height: 400})

	var gotLabel string
	var gotBounds Rect
	h.SetMoveHandler(func(label string, bounds Rect) {
		gotLabel, gotBounds = label, bounds
	})

	to := Rect{X: 100, Y: 120, Width: 400, Height: 400}
	if err := h.MoveWindow("main_monitor_0", to); err != nil {
		t.Fatalf("MoveWindow: %v", err)
	}
	if gotLabel != "main_monitor_0" || gotBounds != to {
		t.Fatalf("move handler got (%q, %+v)", gotLabel, gotBounds)
	}
	if w, _, _ := h.LookupWindow("main_monitor_0"); w.Bounds != to {
		t.Fatalf("bounds = %+v, want %+v", w.Bounds, to)
	}
}
