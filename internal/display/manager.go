package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/overlaycat/internal/events"
	"github.com/1broseidon/overlaycat/internal/platform"
)

const (
	DefaultWindowSize    = 400
	DefaultMinWindowSize = 200
	DefaultMaxWindowSize = 800
	DefaultCloseTimeout  = 2 * time.Second
	DefaultMainLabel     = "main"
	defaultPollInterval  = 25 * time.Millisecond
)

// Options controls how overlay windows are opened.
type Options struct {
	Title     string
	Width     int
	Height    int
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
	Resizable bool

	// MainLabel is the label of the main application window. Empty disables
	// main-window handling.
	MainLabel string

	// CloseTimeout bounds how long a close waits for the window to disappear.
	CloseTimeout time.Duration
	PollInterval time.Duration
}

// DefaultOptions returns a 400x400 resizable overlay bounded to 200..800.
func DefaultOptions() Options {
	return Options{
		Title:        "overlaycat",
		Width:        DefaultWindowSize,
		Height:       DefaultWindowSize,
		MinWidth:     DefaultMinWindowSize,
		MinHeight:    DefaultMinWindowSize,
		MaxWidth:     DefaultMaxWindowSize,
		MaxHeight:    DefaultMaxWindowSize,
		Resizable:    true,
		MainLabel:    DefaultMainLabel,
		CloseTimeout: DefaultCloseTimeout,
		PollInterval: defaultPollInterval,
	}
}

// ClosedEvent is the payload of events.WindowClosed.
type ClosedEvent struct {
	ID           string `json:"id"`
	MonitorIndex int    `json:"monitorIndex"`
	Registered   bool   `json:"registered"`
}

// ResetEvent is the payload of events.WindowsReset.
type ResetEvent struct {
	Closed []string `json:"closed"`
}

// Manager owns the overlay window lifecycle: one window per monitor slot,
// reconciled against the windows that actually exist.
//
// Operations on the same slot are serialized by a per-slot mutex; ResetAll
// excludes every other operation.
type Manager struct {
	backend   platform.Backend
	monitors  *Enumerator
	registry  *Registry
	positions *PositionStore
	publisher events.Publisher
	logger    *slog.Logger

	optsMu sync.RWMutex
	opts   Options

	resetMu sync.RWMutex
	slotsMu sync.Mutex
	slots   map[int]*sync.Mutex
}

// NewManager creates a manager with empty registry and position store.
func NewManager(backend platform.Backend, opts Options, publisher events.Publisher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if publisher == nil {
		publisher = discardPublisher{}
	}
	m := &Manager{
		backend:   backend,
		monitors:  NewEnumerator(backend),
		registry:  NewRegistry(),
		positions: NewPositionStore(),
		publisher: publisher,
		logger:    logger,
		opts:      normalizeOptions(opts),
		slots:     make(map[int]*sync.Mutex),
	}
	if n, ok := backend.(platform.MoveNotifier); ok {
		n.SetMoveHandler(func(label string, bounds platform.Rect) {
			m.RecordMove(label, bounds)
		})
	}
	return m
}

// SetOptions replaces the window options. Already-open windows are unaffected.
func (m *Manager) SetOptions(opts Options) {
	m.optsMu.Lock()
	defer m.optsMu.Unlock()
	m.opts = normalizeOptions(opts)
}

func (m *Manager) options() Options {
	m.optsMu.RLock()
	defer m.optsMu.RUnlock()
	return m.opts
}

// ListMonitors enumerates the connected monitors.
func (m *Manager) ListMonitors() ([]Monitor, error) {
	return m.monitors.ListMonitors()
}

// List returns a snapshot of the registered instances.
func (m *Manager) List() []WindowInstance {
	return m.registry.List()
}

// Create opens an overlay on slot, or returns the identifier of the one
// already open there.
func (m *Manager) Create(ctx context.Context, slot int, role Role) (string, error) {
	if slot < 0 {
		return "", &Error{
			Kind:   KindMonitorIndexOutOfRange,
			Detail: fmt.Sprintf("monitor index out of range: %d is negative", slot),
		}
	}

	m.resetMu.RLock()
	defer m.resetMu.RUnlock()
	unlock := m.lockSlot(slot)
	defer unlock()

	id := Identifier(slot, role)
	log := m.logger.With("slot", slot, "id", id)
	log.Debug("creating overlay window", "role", role)

	if existing, ok := m.registry.Get(slot); ok {
		_, alive, err := m.backend.LookupWindow(existing.ID)
		if err != nil {
			return "", platformQueryError("query windows", err)
		}
		if alive {
			log.Debug("overlay already open on slot", "existing", existing.ID)
			return existing.ID, nil
		}
		m.registry.Remove(slot)
		log.Info("purged stale registry entry", "stale", existing.ID)
	}

	// Windows from earlier sessions or naming schemes that nothing tracks.
	for _, known := range KnownIdentifiers(slot) {
		_, alive, err := m.backend.LookupWindow(known)
		if err != nil {
			return "", platformQueryError("query windows", err)
		}
		if alive {
			log.Info("closing untracked overlay window", "stray", known)
			m.closeAndConfirm(ctx, known)
		}
	}

	monitors, err := m.monitors.ListMonitors()
	if err != nil {
		return "", err
	}
	if slot >= len(monitors) {
		return "", outOfRangeError(slot, len(monitors))
	}
	mon := monitors[slot]
	opts := m.options()

	bounds := platform.Rect{Width: opts.Width, Height: opts.Height}
	if pos, ok := m.positions.GetValidated(slot, mon, opts.Width, opts.Height); ok {
		bounds.X, bounds.Y = pos.X, pos.Y
		log.Debug("reusing remembered position", "x", pos.X, "y", pos.Y)
	} else {
		bounds.X, bounds.Y = mon.Center(opts.Width, opts.Height)
	}

	if _, alive, err := m.backend.LookupWindow(id); err != nil {
		return "", platformQueryError("query windows", err)
	} else if alive {
		return "", &Error{
			Kind:   KindIdentifierCollision,
			Detail: fmt.Sprintf("window identifier %s is still in use after cleanup", id),
		}
	}

	if _, err := m.backend.OpenWindow(m.overlayOptions(opts, id, bounds)); err != nil {
		return "", &Error{
			Kind:   KindWindowCreationFailed,
			Detail: fmt.Sprintf("failed to create window %s", id),
			Err:    err,
		}
	}
	if err := m.backend.ShowWindow(id); err != nil {
		log.Warn("failed to show window", "error", err)
	}
	if err := m.backend.FocusWindow(id); err != nil {
		log.Warn("failed to focus window", "error", err)
	}

	inst := WindowInstance{
		ID:           id,
		MonitorIndex: slot,
		MonitorName:  mon.Name,
		X:            bounds.X,
		Y:            bounds.Y,
		IsPrimary:    role == RolePrimary,
	}
	m.registry.Put(slot, inst)
	m.positions.Save(slot, WindowPosition{
		X:       bounds.X,
		Y:       bounds.Y,
		Width:   bounds.Width,
		Height:  bounds.Height,
		Monitor: mon.Name,
	})

	log.Info("overlay window created", "monitor", mon.Name, "x", bounds.X, "y", bounds.Y)
	m.publisher.Publish(events.New(events.WindowCreated, inst))
	return id, nil
}

// RecordMove remembers bounds as the position of the overlay id after it was
// moved. Windows the registry does not track, such as the main window, are
// ignored. It reports whether anything was recorded.
func (m *Manager) RecordMove(id string, bounds platform.Rect) bool {
	slot, ok := m.registry.SlotOf(id)
	if !ok {
		return false
	}

	m.resetMu.RLock()
	defer m.resetMu.RUnlock()
	unlock := m.lockSlot(slot)
	defer unlock()

	// The slot may have been closed or reused while we waited for the lock.
	inst, ok := m.registry.Get(slot)
	if !ok || inst.ID != id {
		return false
	}
	if inst.X == bounds.X && inst.Y == bounds.Y {
		return false
	}

	inst.X, inst.Y = bounds.X, bounds.Y
	m.registry.Put(slot, inst)
	m.positions.Save(slot, WindowPosition{
		X:       bounds.X,
		Y:       bounds.Y,
		Width:   bounds.Width,
		Height:  bounds.Height,
		Monitor: inst.MonitorName,
	})

	m.logger.Debug("overlay window moved", "slot", slot, "id", id, "x", bounds.X, "y", bounds.Y)
	m.publisher.Publish(events.New(events.WindowMoved, inst))
	return true
}

// CloseByIdentifier unregisters id and closes its window. The registry entry
// is removed before the close is attempted; close failures are only logged.
func (m *Manager) CloseByIdentifier(ctx context.Context, id string) error {
	m.resetMu.RLock()
	defer m.resetMu.RUnlock()

	slot, ok := m.registry.SlotOf(id)
	if !ok {
		slot, ok = ParseSlot(id)
	}
	if ok {
		unlock := m.lockSlot(slot)
		defer unlock()
	}

	removedSlot, registered := m.registry.RemoveByIdentifier(id)
	if registered {
		slot = removedSlot
		m.logger.Info("removed overlay from registry", "slot", slot, "id", id)
	}

	m.closeIfAlive(ctx, id)
	m.publisher.Publish(events.New(events.WindowClosed, ClosedEvent{ID: id, MonitorIndex: slot, Registered: registered}))
	return nil
}

// CloseBySlot unregisters and closes whatever is open on slot. An empty slot
// is a no-op.
func (m *Manager) CloseBySlot(ctx context.Context, slot int) error {
	m.resetMu.RLock()
	defer m.resetMu.RUnlock()
	unlock := m.lockSlot(slot)
	defer unlock()

	inst, ok := m.registry.Remove(slot)
	if !ok {
		m.logger.Debug("no overlay registered on slot", "slot", slot)
		return nil
	}

	m.closeIfAlive(ctx, inst.ID)
	m.logger.Info("closed overlay on slot", "slot", slot, "id", inst.ID)
	m.publisher.Publish(events.New(events.WindowClosed, ClosedEvent{ID: inst.ID, MonitorIndex: slot, Registered: true}))
	return nil
}

// ResetAll forgets every instance and position and closes every overlay
// window, current or legacy. The main window is shown and focused but never
// moved.
func (m *Manager) ResetAll(ctx context.Context) error {
	m.resetMu.Lock()
	defer m.resetMu.Unlock()

	m.positions.ClearAll()
	m.registry.ClearAll()

	if label := m.options().MainLabel; label != "" {
		if _, alive, err := m.backend.LookupWindow(label); err == nil && alive {
			m.showAndFocus(label)
		}
	}

	windows, err := m.backend.Windows()
	if err != nil {
		return platformQueryError("list windows", err)
	}

	var pending []string
	for _, w := range windows {
		if !IsOverlayIdentifier(w.Label) {
			continue
		}
		if err := m.backend.CloseWindow(w.Label); err != nil {
			m.logger.Warn("failed to close overlay during reset", "id", w.Label, "error", err)
			continue
		}
		pending = append(pending, w.Label)
	}

	var wg sync.WaitGroup
	for _, label := range pending {
		wg.Add(1)
		go func(label string) {
			defer wg.Done()
			if err := m.awaitClosed(ctx, label); err != nil {
				m.logger.Warn("overlay did not confirm close during reset", "id", label, "error", err)
			}
		}(label)
	}
	wg.Wait()

	m.logger.Info("overlay windows reset", "closed", len(pending))
	m.publisher.Publish(events.New(events.WindowsReset, ResetEvent{Closed: pending}))
	return nil
}

// Prune drops registry entries whose window no longer exists and returns how
// many were dropped.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	m.resetMu.RLock()
	defer m.resetMu.RUnlock()

	pruned := 0
	for _, inst := range m.registry.List() {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}

		stale, err := m.pruneSlot(inst)
		if err != nil {
			return pruned, err
		}
		if stale {
			pruned++
		}
	}
	return pruned, nil
}

func (m *Manager) pruneSlot(inst WindowInstance) (bool, error) {
	unlock := m.lockSlot(inst.MonitorIndex)
	defer unlock()

	current, ok := m.registry.Get(inst.MonitorIndex)
	if !ok || current.ID != inst.ID {
		return false, nil
	}
	_, alive, err := m.backend.LookupWindow(current.ID)
	if err != nil {
		return false, platformQueryError("query windows", err)
	}
	if alive {
		return false, nil
	}
	m.registry.Remove(inst.MonitorIndex)
	m.logger.Info("pruned stale overlay", "slot", inst.MonitorIndex, "id", inst.ID)
	return true, nil
}

// ShowOnAllMonitors opens an overlay on every connected monitor. Slot 0 gets
// the primary role. Slots that fail are reported together; the rest stay open.
func (m *Manager) ShowOnAllMonitors(ctx context.Context) ([]string, error) {
	monitors, err := m.monitors.ListMonitors()
	if err != nil {
		return nil, err
	}

	var (
		ids  []string
		errs []error
	)
	for _, mon := range monitors {
		role := RoleSecondary
		if mon.Index == 0 {
			role = RolePrimary
		}
		id, err := m.Create(ctx, mon.Index, role)
		if err != nil {
			errs = append(errs, fmt.Errorf("monitor %d: %w", mon.Index, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, errors.Join(errs...)
}

// FocusMainOnMonitor validates slot and brings the main window to the front.
// The main window keeps its current position.
func (m *Manager) FocusMainOnMonitor(slot int) error {
	label := m.options().MainLabel
	if label == "" {
		return fmt.Errorf("main window handling is disabled")
	}
	if _, alive, err := m.backend.LookupWindow(label); err != nil {
		return platformQueryError("query windows", err)
	} else if !alive {
		return fmt.Errorf("main window %q not found", label)
	}

	monitors, err := m.monitors.ListMonitors()
	if err != nil {
		return err
	}
	if slot < 0 || slot >= len(monitors) {
		return outOfRangeError(slot, len(monitors))
	}

	m.showAndFocus(label)
	m.logger.Info("main window focused; position unchanged", "slot", slot)
	return nil
}

// EnsureMainWindow opens the main window centered on the first monitor if it
// does not exist yet. It runs once at daemon startup.
func (m *Manager) EnsureMainWindow(ctx context.Context) error {
	opts := m.options()
	if opts.MainLabel == "" {
		return nil
	}
	if _, alive, err := m.backend.LookupWindow(opts.MainLabel); err != nil {
		return platformQueryError("query windows", err)
	} else if alive {
		return nil
	}

	monitors, err := m.monitors.ListMonitors()
	if err != nil {
		return err
	}
	if len(monitors) == 0 {
		return outOfRangeError(0, 0)
	}

	bounds := platform.Rect{Width: opts.Width, Height: opts.Height}
	bounds.X, bounds.Y = monitors[0].Center(opts.Width, opts.Height)

	if _, err := m.backend.OpenWindow(m.overlayOptions(opts, opts.MainLabel, bounds)); err != nil {
		return &Error{
			Kind:   KindWindowCreationFailed,
			Detail: "failed to create main window",
			Err:    err,
		}
	}
	m.showAndFocus(opts.MainLabel)
	m.logger.Info("main window placed", "monitor", monitors[0].Name, "x", bounds.X, "y", bounds.Y)
	return nil
}

func (m *Manager) overlayOptions(opts Options, label string, bounds platform.Rect) platform.WindowOptions {
	return platform.WindowOptions{
		Label:            label,
		Title:            opts.Title,
		Bounds:           bounds,
		MinWidth:         opts.MinWidth,
		MinHeight:        opts.MinHeight,
		MaxWidth:         opts.MaxWidth,
		MaxHeight:        opts.MaxHeight,
		Resizable:        opts.Resizable,
		AlwaysOnTop:      true,
		Transparent:      true,
		Decorations:      false,
		Shadow:           false,
		SkipTaskbar:      true,
		AcceptFirstMouse: true,
	}
}

func (m *Manager) showAndFocus(label string) {
	if err := m.backend.ShowWindow(label); err != nil {
		m.logger.Warn("failed to show window", "id", label, "error", err)
	}
	if err := m.backend.FocusWindow(label); err != nil {
		m.logger.Warn("failed to focus window", "id", label, "error", err)
	}
}

// closeIfAlive closes label if the backend still knows it. Every failure is
// logged and swallowed.
func (m *Manager) closeIfAlive(ctx context.Context, label string) {
	_, alive, err := m.backend.LookupWindow(label)
	if err != nil {
		m.logger.Warn("failed to look up window before close", "id", label, "error", err)
		return
	}
	if !alive {
		m.logger.Debug("window already gone", "id", label)
		return
	}
	m.closeAndConfirm(ctx, label)
}

func (m *Manager) closeAndConfirm(ctx context.Context, label string) bool {
	if err := m.backend.CloseWindow(label); err != nil {
		m.logger.Warn("failed to close window", "id", label, "error", err)
		return false
	}
	if err := m.awaitClosed(ctx, label); err != nil {
		m.logger.Warn("window did not confirm close", "id", label, "error", err)
		return false
	}
	return true
}

// awaitClosed polls the backend until label is gone, the close timeout
// elapses, or ctx is cancelled.
func (m *Manager) awaitClosed(ctx context.Context, label string) error {
	opts := m.options()
	deadline := time.NewTimer(opts.CloseTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		_, alive, err := m.backend.LookupWindow(label)
		if err != nil {
			return err
		}
		if !alive {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("window still open after %s", opts.CloseTimeout)
		case <-ticker.C:
		}
	}
}

func (m *Manager) lockSlot(slot int) func() {
	m.slotsMu.Lock()
	mu, ok := m.slots[slot]
	if !ok {
		mu = &sync.Mutex{}
		m.slots[slot] = mu
	}
	m.slotsMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func normalizeOptions(opts Options) Options {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.MinWidth <= 0 {
		opts.MinWidth = def.MinWidth
	}
	if opts.MinHeight <= 0 {
		opts.MinHeight = def.MinHeight
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = def.MaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = def.MaxHeight
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = def.CloseTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	return opts
}

type discardPublisher struct{}

func (discardPublisher) Publish(events.Event) {}
