// Package app wires the lifecycle manager, memory watchdog and event bus into
// the command surface served to front ends.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/overlaycat/internal/config"
	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/events"
	"github.com/1broseidon/overlaycat/internal/memwatch"
	"github.com/1broseidon/overlaycat/internal/platform"
)

// Status summarizes the running daemon.
type Status struct {
	DaemonRunning   bool             `json:"daemon_running"`
	UptimeSeconds   int64            `json:"uptime_seconds"`
	Instances       int              `json:"instances"`
	Monitors        int              `json:"monitors"`
	WatchdogRunning bool             `json:"watchdog_running"`
	LastMemory      *memwatch.Status `json:"last_memory,omitempty"`
}

// ReloadFunc reloads configuration from disk and applies it.
type ReloadFunc func(ctx context.Context) error

// Options configures New.
type Options struct {
	Backend platform.Backend
	Config  *config.Config
	Sampler memwatch.Sampler
	Logger  *slog.Logger
}

// App is the process-wide state. main owns it and hands it to every command
// handler.
type App struct {
	manager  *display.Manager
	watchdog *memwatch.Watchdog
	bus      *events.Bus
	logger   *slog.Logger

	startTime time.Time

	mu       sync.Mutex
	cfg      *config.Config
	baseCtx  context.Context
	reloader ReloadFunc
}

// New builds the application state. Nothing is started until Start.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	bus := events.NewBus(logger.With("component", "events"))
	return &App{
		manager: display.NewManager(opts.Backend, cfg.DisplayOptions(), bus, logger.With("component", "display")),
		watchdog: memwatch.New(memwatch.Config{
			LimitMB:   cfg.Memory.LimitMB,
			Interval:  cfg.Memory.Interval,
			Sampler:   opts.Sampler,
			Publisher: bus,
			Logger:    logger.With("component", "memwatch"),
		}),
		bus:       bus,
		logger:    logger,
		startTime: time.Now(),
		cfg:       cfg,
		baseCtx:   context.Background(),
	}
}

// Start places the main window and starts the watchdog. ctx bounds the
// watchdog's lifetime.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	a.baseCtx = ctx
	cfg := a.cfg
	a.mu.Unlock()

	if err := a.manager.EnsureMainWindow(ctx); err != nil {
		return fmt.Errorf("failed to place main window: %w", err)
	}
	if cfg.Memory.Enabled {
		a.watchdog.Start(ctx)
	}
	return nil
}

// Stop halts the watchdog.
func (a *App) Stop() {
	a.watchdog.Stop()
}

// Bus returns the event bus.
func (a *App) Bus() *events.Bus { return a.bus }

// Manager returns the window lifecycle manager.
func (a *App) Manager() *display.Manager { return a.manager }

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// SetReloader installs the function RELOAD calls.
func (a *App) SetReloader(fn ReloadFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reloader = fn
}

// Apply switches to cfg. Overlay geometry applies to windows opened afterwards.
func (a *App) Apply(cfg *config.Config) {
	a.mu.Lock()
	a.cfg = cfg
	ctx := a.baseCtx
	a.mu.Unlock()

	a.manager.SetOptions(cfg.DisplayOptions())
	a.watchdog.SetLimit(cfg.Memory.LimitMB)
	a.watchdog.SetInterval(cfg.Memory.Interval)
	if cfg.Memory.Enabled {
		a.watchdog.Start(ctx)
	} else {
		a.watchdog.Stop()
	}
	a.logger.Info("configuration applied", "memory_limit_mb", cfg.Memory.LimitMB)
}

// Reload runs the installed reloader.
func (a *App) Reload(ctx context.Context) error {
	a.mu.Lock()
	fn := a.reloader
	a.mu.Unlock()
	if fn == nil {
		return fmt.Errorf("reload is not supported")
	}
	return fn(ctx)
}

func (a *App) ListMonitors(ctx context.Context) ([]display.Monitor, error) {
	return a.manager.ListMonitors()
}

func (a *App) CreateWindowOnMonitor(ctx context.Context, slot int, isPrimary bool) (string, error) {
	return a.manager.Create(ctx, slot, display.RoleFor(isPrimary))
}

func (a *App) CloseWindowInstance(ctx context.Context, id string) error {
	return a.manager.CloseByIdentifier(ctx, id)
}

func (a *App) CloseWindowOnMonitor(ctx context.Context, slot int) error {
	return a.manager.CloseBySlot(ctx, slot)
}

// MoveMainWindowToMonitor validates slot and focuses the main window without
// moving it.
func (a *App) MoveMainWindowToMonitor(ctx context.Context, slot int) error {
	return a.manager.FocusMainOnMonitor(slot)
}

func (a *App) ResetWindowPositions(ctx context.Context) error {
	return a.manager.ResetAll(ctx)
}

func (a *App) ListWindowInstances(ctx context.Context) []display.WindowInstance {
	return a.manager.List()
}

func (a *App) ShowOnAllMonitors(ctx context.Context) ([]string, error) {
	return a.manager.ShowOnAllMonitors(ctx)
}

func (a *App) GetMemoryStatus(ctx context.Context) (memwatch.Status, error) {
	return a.watchdog.Status(ctx)
}

func (a *App) TriggerMemoryCleanup(ctx context.Context) (string, error) {
	return a.watchdog.Cleanup(ctx)
}

// Status reports daemon health. A monitor query failure reports zero monitors.
func (a *App) Status(ctx context.Context) Status {
	s := Status{
		DaemonRunning:   true,
		UptimeSeconds:   int64(time.Since(a.startTime).Seconds()),
		Instances:       len(a.manager.List()),
		WatchdogRunning: a.watchdog.Running(),
	}
	if monitors, err := a.manager.ListMonitors(); err == nil {
		s.Monitors = len(monitors)
	}
	if last, ok := a.watchdog.Last(); ok {
		s.LastMemory = &last
	}
	return s
}

// Subscribe calls handler for each named event, or for every event when names
// is empty. The returned function unsubscribes.
func (a *App) Subscribe(names []string, handler events.Handler) func() {
	var ids []string
	if len(names) == 0 {
		ids = append(ids, a.bus.SubscribeAll(handler))
	}
	for _, name := range names {
		ids = append(ids, a.bus.Subscribe(name, handler))
	}
	return func() {
		for _, id := range ids {
			a.bus.Unsubscribe(id)
		}
	}
}

// Prune drops registry entries whose windows are gone.
func (a *App) Prune(ctx context.Context) (int, error) {
	return a.manager.Prune(ctx)
}
