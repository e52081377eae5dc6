package display

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/overlaycat/internal/events"
	"github.com/1broseidon/overlaycat/internal/platform"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

func twoMonitors() []platform.Display {
	return []platform.Display{
		{ID: 1, Name: "DP-1", Bounds: platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
		{ID: 2, Name: "DP-2", Bounds: platform.Rect{X: 1920, Y: 0, Width: 1080, Height: 1920}},
	}
}

func newTestManager(t *testing.T, displays ...platform.Display) (*Manager, *platform.Headless, *recordingPublisher) {
	t.Helper()
	backend := platform.NewHeadless(displays...)
	pub := &recordingPublisher{}
	opts := DefaultOptions()
	opts.CloseTimeout = 100 * time.Millisecond
	opts.PollInterval = 5 * time.Millisecond
	return NewManager(backend, opts, pub, nil), backend, pub
}

func openedBounds(t *testing.T, backend *platform.Headless, label string) platform.Rect {
	t.Helper()
	w, ok, err := backend.LookupWindow(label)
	if err != nil || !ok {
		t.Fatalf("window %q not open (err=%v)", label, err)
	}
	return w.Bounds
}

func TestCreate_CentersOnEachMonitor(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	id0, err := m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("create slot 0: %v", err)
	}
	id1, err := m.Create(ctx, 1, RoleSecondary)
	if err != nil {
		t.Fatalf("create slot 1: %v", err)
	}

	if got := openedBounds(t, backend, id0); got != (platform.Rect{X: 760, Y: 340, Width: 400, Height: 400}) {
		t.Fatalf("slot 0 bounds = %+v", got)
	}
	if got := openedBounds(t, backend, id1); got != (platform.Rect{X: 2260, Y: 760, Width: 400, Height: 400}) {
		t.Fatalf("slot 1 bounds = %+v", got)
	}

	list := m.List()
	if len(list) != 2 || list[0].ID != id0 || list[1].ID != id1 {
		t.Fatalf("unexpected instances: %+v", list)
	}

	monitors, err := m.ListMonitors()
	if err != nil {
		t.Fatalf("list monitors: %v", err)
	}
	want := []Monitor{
		{Index: 0, Name: "DP-1", X: 0, Y: 0, Width: 1920, Height: 1080},
		{Index: 1, Name: "DP-2", X: 1920, Y: 0, Width: 1080, Height: 1920},
	}
	for i := range want {
		if monitors[i] != want[i] {
			t.Fatalf("monitor %d = %+v, want %+v", i, monitors[i], want[i])
		}
	}
}

func TestCreate_OpensOverlayStyledWindow(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	id, err := m.Create(context.Background(), 0, RolePrimary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "main_monitor_0" {
		t.Fatalf("id = %q", id)
	}

	opened := backend.Opened()
	if len(opened) != 1 {
		t.Fatalf("expected one OpenWindow call, got %d", len(opened))
	}
	o := opened[0]
	if !o.AlwaysOnTop || !o.Transparent || o.Decorations || o.Shadow || !o.SkipTaskbar || !o.AcceptFirstMouse {
		t.Fatalf("unexpected window options: %+v", o)
	}
	if o.MinWidth != 200 || o.MinHeight != 200 || o.MaxWidth != 800 || o.MaxHeight != 800 || !o.Resizable {
		t.Fatalf("unexpected size constraints: %+v", o)
	}
	if !backend.Visible(id) || backend.Focused() != id {
		t.Fatalf("expected window to be shown and focused")
	}

	inst, ok := m.registry.Get(0)
	if !ok || !inst.IsPrimary || inst.MonitorName != "DP-1" {
		t.Fatalf("unexpected instance %+v", inst)
	}
}

func TestCreate_Idempotent(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	first, err := m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first != second {
		t.Fatalf("expected same identifier, got %q and %q", first, second)
	}
	if n := len(backend.Opened()); n != 1 {
		t.Fatalf("expected 1 window opened, got %d", n)
	}

	// A different role on an occupied slot still returns the live window.
	third, err := m.Create(ctx, 0, RolePrimary)
	if err != nil {
		t.Fatalf("third create: %v", err)
	}
	if third != first {
		t.Fatalf("expected existing window %q, got %q", first, third)
	}
}

func TestCreate_ConcurrentCallsOpenOneWindow(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	errs := make([]error, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = m.Create(ctx, 1, RoleSecondary)
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("create %d: %v", i, errs[i])
		}
		if ids[i] != "secondary_monitor_1" {
			t.Fatalf("create %d returned %q", i, ids[i])
		}
	}
	if n := len(backend.Opened()); n != 1 {
		t.Fatalf("expected exactly one window, got %d", n)
	}
}

func TestCreate_OutOfRangeLeavesRegistryUnchanged(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()
	if _, err := m.Create(ctx, 0, RoleSecondary); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, slot := range []int{2, 9, -1} {
		_, err := m.Create(ctx, slot, RoleSecondary)
		if !errors.Is(err, ErrMonitorIndexOutOfRange) {
			t.Fatalf("slot %d: expected out-of-range error, got %v", slot, err)
		}
	}
	if m.registry.Len() != 1 {
		t.Fatalf("registry changed: %+v", m.List())
	}
	if n := len(backend.Opened()); n != 1 {
		t.Fatalf("expected no extra windows, got %d", n)
	}
}

func TestCreate_PurgesStaleEntry(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	id, err := m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	backend.DropWindow(id)

	again, err := m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if again != id {
		t.Fatalf("expected deterministic identifier %q, got %q", id, again)
	}
	if n := len(backend.Opened()); n != 2 {
		t.Fatalf("expected the window to be reopened, got %d opens", n)
	}
	if _, ok, _ := backend.LookupWindow(id); !ok {
		t.Fatalf("window should be alive after recreate")
	}
}

func TestCreate_ClosesLegacyWindows(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	backend.AddWindow("monitor_0", platform.Rect{X: 5, Y: 5, Width: 400, Height: 400})
	backend.AddWindow("main_monitor_0", platform.Rect{X: 5, Y: 5, Width: 400, Height: 400})

	id, err := m.Create(context.Background(), 0, RoleSecondary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, stray := range []string{"monitor_0", "main_monitor_0"} {
		if _, ok, _ := backend.LookupWindow(stray); ok {
			t.Fatalf("stray window %q should have been closed", stray)
		}
	}
	if _, ok, _ := backend.LookupWindow(id); !ok {
		t.Fatalf("new window %q missing", id)
	}
}

func TestCreate_CollisionWhenStrayRefusesToClose(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	backend.AddWindow("secondary_monitor_0", platform.Rect{Width: 400, Height: 400})
	backend.KeepOnClose = true

	_, err := m.Create(context.Background(), 0, RoleSecondary)
	if !errors.Is(err, ErrIdentifierCollision) {
		t.Fatalf("expected collision, got %v", err)
	}
	if m.registry.Len() != 0 {
		t.Fatalf("nothing should be registered on collision")
	}
}

func TestCreate_OpenFailureRegistersNothing(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	cause := errors.New("no ARGB visual")
	backend.OpenHook = func(platform.WindowOptions) error { return cause }

	_, err := m.Create(context.Background(), 0, RoleSecondary)
	if KindOf(err) != KindWindowCreationFailed {
		t.Fatalf("expected WindowCreationFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected underlying reason to be preserved, got %v", err)
	}
	if m.registry.Len() != 0 || m.positions.Len() != 0 {
		t.Fatalf("expected no partial state")
	}
}

func TestCreate_PlatformQueryFailureSurfaces(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	backend.DisplaysHook = func() error { return errors.New("randr unavailable") }

	_, err := m.Create(context.Background(), 0, RoleSecondary)
	if !errors.Is(err, ErrPlatformQuery) {
		t.Fatalf("expected platform query error, got %v", err)
	}
	if _, err := m.ListMonitors(); KindOf(err) != KindPlatformQuery {
		t.Fatalf("ListMonitors should surface the failure, got %v", err)
	}
}

func TestCreate_ReusesValidatedPosition(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	m.positions.Save(0, WindowPosition{X: 100, Y: 120, Width: 400, Height: 400, Monitor: "DP-1"})
	id, err := m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := openedBounds(t, backend, id); got.X != 100 || got.Y != 120 {
		t.Fatalf("expected remembered position, got %+v", got)
	}
}

func TestCreate_IgnoresPositionOutsideMonitor(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	// Recorded when slot 1 was a wider display.
	m.positions.Save(1, WindowPosition{X: 3500, Y: 100, Width: 400, Height: 400, Monitor: "DP-2"})
	id, err := m.Create(ctx, 1, RoleSecondary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := openedBounds(t, backend, id); got.X != 2260 || got.Y != 760 {
		t.Fatalf("expected centered default, got %+v", got)
	}
}

func TestCreate_ReopensAtMovedPosition(t *testing.T) {
	m, backend, pub := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	id, err := m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := backend.MoveWindow(id, platform.Rect{X: 100, Y: 120, Width: 400, Height: 400}); err != nil {
		t.Fatalf("move: %v", err)
	}

	list := m.List()
	if len(list) != 1 || list[0].X != 100 || list[0].Y != 120 {
		t.Fatalf("registry not updated after move: %+v", list)
	}
	if !contains(pub.names(), events.WindowMoved) {
		t.Fatalf("expected %s event, got %v", events.WindowMoved, pub.names())
	}

	if err := m.CloseBySlot(ctx, 0); err != nil {
		t.Fatalf("close: %v", err)
	}
	id, err = m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if got := openedBounds(t, backend, id); got != (platform.Rect{X: 100, Y: 120, Width: 400, Height: 400}) {
		t.Fatalf("expected window at moved position, got %+v", got)
	}
}

func TestRecordMove_IgnoresUntrackedWindows(t *testing.T) {
	m, backend, pub := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	if m.RecordMove("main", platform.Rect{X: 1, Y: 1, Width: 400, Height: 400}) {
		t.Fatal("main window moves must not be recorded")
	}

	id, err := m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.CloseBySlot(ctx, 0); err != nil {
		t.Fatalf("close: %v", err)
	}
	if m.RecordMove(id, platform.Rect{X: 100, Y: 120, Width: 400, Height: 400}) {
		t.Fatal("moves of closed windows must not be recorded")
	}
	if contains(pub.names(), events.WindowMoved) {
		t.Fatalf("unexpected %s event", events.WindowMoved)
	}

	id, err = m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if got := openedBounds(t, backend, id); got.X != 760 || got.Y != 340 {
		t.Fatalf("expected centered default, got %+v", got)
	}
}

func TestCreate_UsesConfiguredSizeAtRememberedPosition(t *testing.T) {
	tests := []struct {
		name  string
		moveX int
		wantX int
		wantY int
	}{
		// 760+600 still fits on the 1920x1080 monitor.
		{"position still fits", 760, 760, 340},
		// 1500+600 overflows, so the larger window is centered instead.
		{"position overflows at new size", 1500, 660, 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, backend, _ := newTestManager(t, twoMonitors()...)
			ctx := context.Background()

			id, err := m.Create(ctx, 0, RoleSecondary)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := backend.MoveWindow(id, platform.Rect{X: tt.moveX, Y: 340, Width: 400, Height: 400}); err != nil {
				t.Fatalf("move: %v", err)
			}
			if err := m.CloseBySlot(ctx, 0); err != nil {
				t.Fatalf("close: %v", err)
			}

			opts := m.options()
			opts.Width, opts.Height = 600, 600
			opts.MinWidth, opts.MinHeight = 500, 500
			m.SetOptions(opts)

			id, err = m.Create(ctx, 0, RoleSecondary)
			if err != nil {
				t.Fatalf("re-create: %v", err)
			}
			want := platform.Rect{X: tt.wantX, Y: tt.wantY, Width: 600, Height: 600}
			if got := openedBounds(t, backend, id); got != want {
				t.Fatalf("opened at %+v, want %+v", got, want)
			}
		})
	}
}

func TestCloseBySlot(t *testing.T) {
	m, backend, pub := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	id, err := m.Create(ctx, 1, RoleSecondary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.CloseBySlot(ctx, 1); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := m.registry.Get(1); ok {
		t.Fatalf("slot 1 should be empty")
	}
	if _, ok, _ := backend.LookupWindow(id); ok {
		t.Fatalf("window should be closed")
	}

	if err := m.CloseBySlot(ctx, 1); err != nil {
		t.Fatalf("closing an empty slot should succeed, got %v", err)
	}

	names := pub.names()
	if len(names) != 2 || names[0] != events.WindowCreated || names[1] != events.WindowClosed {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestCloseBySlot_CloseFailureStillUnregisters(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	if _, err := m.Create(ctx, 0, RoleSecondary); err != nil {
		t.Fatalf("create: %v", err)
	}
	backend.CloseHook = func(string) error { return errors.New("window busy") }

	if err := m.CloseBySlot(ctx, 0); err != nil {
		t.Fatalf("close failure must not surface, got %v", err)
	}
	if len(m.List()) != 0 {
		t.Fatalf("registry should be empty, got %+v", m.List())
	}
}

func TestCloseByIdentifier(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	id, err := m.Create(ctx, 0, RolePrimary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	backend.KeepOnClose = true

	start := time.Now()
	if err := m.CloseByIdentifier(ctx, id); err != nil {
		t.Fatalf("close: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("close confirmation should be bounded by the close timeout")
	}
	if len(m.List()) != 0 {
		t.Fatalf("registry should be empty")
	}

	// Unknown identifiers are accepted.
	if err := m.CloseByIdentifier(ctx, "secondary_monitor_9"); err != nil {
		t.Fatalf("unknown identifier: %v", err)
	}
}

func TestResetAll(t *testing.T) {
	m, backend, pub := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	if err := m.EnsureMainWindow(ctx); err != nil {
		t.Fatalf("main window: %v", err)
	}
	mainBounds := openedBounds(t, backend, DefaultMainLabel)

	if _, err := m.Create(ctx, 0, RolePrimary); err != nil {
		t.Fatalf("create 0: %v", err)
	}
	if _, err := m.Create(ctx, 1, RoleSecondary); err != nil {
		t.Fatalf("create 1: %v", err)
	}
	backend.AddWindow("monitor_7", platform.Rect{Width: 10, Height: 10})
	backend.AddWindow("unrelated", platform.Rect{Width: 10, Height: 10})

	if err := m.ResetAll(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(m.List()) != 0 || m.positions.Len() != 0 {
		t.Fatalf("expected empty registry and positions")
	}

	windows, _ := backend.Windows()
	var labels []string
	for _, w := range windows {
		labels = append(labels, w.Label)
	}
	if len(labels) != 2 || labels[0] != DefaultMainLabel || labels[1] != "unrelated" {
		t.Fatalf("unexpected windows after reset: %v", labels)
	}
	if got := openedBounds(t, backend, DefaultMainLabel); got != mainBounds {
		t.Fatalf("main window moved: %+v -> %+v", mainBounds, got)
	}
	if backend.Focused() != DefaultMainLabel {
		t.Fatalf("expected main window focused after reset")
	}

	names := pub.names()
	if names[len(names)-1] != events.WindowsReset {
		t.Fatalf("expected windows-reset event last, got %v", names)
	}
}

func TestResetAll_ForgetsPositions(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	m.positions.Save(0, WindowPosition{X: 50, Y: 60, Width: 400, Height: 400, Monitor: "DP-1"})
	if err := m.ResetAll(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	id, err := m.Create(ctx, 0, RoleSecondary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := openedBounds(t, backend, id); got.X != 760 || got.Y != 340 {
		t.Fatalf("expected centered default after reset, got %+v", got)
	}
}

func TestResetAll_CloseFailuresDoNotAbort(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	backend.AddWindow("monitor_0", platform.Rect{Width: 10, Height: 10})
	backend.AddWindow("monitor_1", platform.Rect{Width: 10, Height: 10})
	backend.CloseHook = func(label string) error {
		if label == "monitor_0" {
			return errors.New("stuck")
		}
		return nil
	}

	if err := m.ResetAll(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok, _ := backend.LookupWindow("monitor_1"); ok {
		t.Fatalf("monitor_1 should be closed despite monitor_0 failing")
	}
}

func TestPrune(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	id0, _ := m.Create(ctx, 0, RoleSecondary)
	if _, err := m.Create(ctx, 1, RoleSecondary); err != nil {
		t.Fatalf("create: %v", err)
	}
	backend.DropWindow(id0)

	n, err := m.Prune(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}
	list := m.List()
	if len(list) != 1 || list[0].MonitorIndex != 1 {
		t.Fatalf("unexpected registry after prune: %+v", list)
	}
}

func TestShowOnAllMonitors(t *testing.T) {
	m, _, _ := newTestManager(t, twoMonitors()...)
	ids, err := m.ShowOnAllMonitors(context.Background())
	if err != nil {
		t.Fatalf("show all: %v", err)
	}
	if len(ids) != 2 || ids[0] != "main_monitor_0" || ids[1] != "secondary_monitor_1" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

// The main window is validated and focused but deliberately not moved.
func TestFocusMainOnMonitor_DoesNotReposition(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()

	if err := m.FocusMainOnMonitor(1); err == nil {
		t.Fatalf("expected error without a main window")
	}
	if err := m.EnsureMainWindow(ctx); err != nil {
		t.Fatalf("main window: %v", err)
	}
	before := openedBounds(t, backend, DefaultMainLabel)
	if before.X != 760 || before.Y != 340 {
		t.Fatalf("main window should start centered on monitor 0, got %+v", before)
	}

	if err := m.FocusMainOnMonitor(1); err != nil {
		t.Fatalf("focus: %v", err)
	}
	if after := openedBounds(t, backend, DefaultMainLabel); after != before {
		t.Fatalf("main window moved from %+v to %+v", before, after)
	}
	if backend.Focused() != DefaultMainLabel {
		t.Fatalf("main window should be focused")
	}
	if err := m.FocusMainOnMonitor(2); !errors.Is(err, ErrMonitorIndexOutOfRange) {
		t.Fatalf("expected out-of-range, got %v", err)
	}
}

func TestEnsureMainWindow_Idempotent(t *testing.T) {
	m, backend, _ := newTestManager(t, twoMonitors()...)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := m.EnsureMainWindow(ctx); err != nil {
			t.Fatalf("ensure %d: %v", i, err)
		}
	}
	if n := len(backend.Opened()); n != 1 {
		t.Fatalf("expected one main window, got %d opens", n)
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
