package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/overlaycat/internal/app"
	"github.com/1broseidon/overlaycat/internal/config"
	"github.com/1broseidon/overlaycat/internal/daemon"
	"github.com/1broseidon/overlaycat/internal/hotkeys"
	"github.com/1broseidon/overlaycat/internal/ipc"
	"github.com/1broseidon/overlaycat/internal/journal"
	"github.com/1broseidon/overlaycat/internal/logging"
	"github.com/1broseidon/overlaycat/internal/memwatch"
	"github.com/1broseidon/overlaycat/internal/platform"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "create":
		os.Exit(runCreate(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "close-monitor":
		os.Exit(runCloseMonitor(os.Args[2:]))
	case "move-main":
		os.Exit(runMoveMain(os.Args[2:]))
	case "reset":
		os.Exit(runReset(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "show-all":
		os.Exit(runShowAll(os.Args[2:]))
	case "memory":
		os.Exit(runMemory(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "history":
		os.Exit(runHistory(os.Args[2:]))
	case "events":
		os.Exit(runEvents(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: overlaycat <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the overlaycat daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload the daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  monitors            List connected monitors")
	fmt.Fprintln(w, "  create              Create an overlay window on a monitor")
	fmt.Fprintln(w, "  close               Close an overlay window by identifier")
	fmt.Fprintln(w, "  close-monitor       Close the overlay window on a monitor")
	fmt.Fprintln(w, "  move-main           Bring the main window to the front")
	fmt.Fprintln(w, "  reset               Close all overlays and forget positions")
	fmt.Fprintln(w, "  list                List overlay window instances")
	fmt.Fprintln(w, "  show-all            Create an overlay on every monitor")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  memory status       Show memory usage against the limit")
	fmt.Fprintln(w, "  memory cleanup      Force a memory cleanup in the daemon")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config path         Print the configuration file path")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  history             Show journaled lifecycle and memory events")
	fmt.Fprintln(w, "  events              Stream live events from the daemon")
	fmt.Fprintln(w, "  tui                 Open interactive dashboard")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'overlaycat <command> --help' for command-specific options.")
}

func runDaemon(args []string) int {
	fs := newFlagSet("daemon", "Usage: overlaycat daemon [--config PATH] [--headless]",
		"Run the overlay daemon in the foreground.")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/overlaycat/config.yaml)")
	headless := fs.Bool("headless", false, "Use simulated displays instead of X11")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			log.Fatalf("Failed to resolve config path: %v", err)
		}
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	if *headless {
		cfg.Headless.Enabled = true
	}

	logFile, err := cfg.LogFilePath()
	if err != nil {
		log.Fatalf("Failed to resolve log file: %v", err)
	}
	logger, err := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		File:      logFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
		MaxFiles:  cfg.LogMaxFiles,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Close()
	if res.File != "" {
		log.Printf("Configuration loaded from %s", res.File)
	}

	backend, disconnect, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to open windowing backend: %v", err)
	}
	defer disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application := app.New(app.Options{
		Backend: backend,
		Config:  cfg,
		Sampler: memwatch.NewProcessSampler(),
		Logger:  logger.Logger,
	})
	application.SetReloader(func(ctx context.Context) error {
		res, err := config.LoadFromPath(path)
		if err != nil {
			return err
		}
		if *headless {
			res.Config.Headless.Enabled = true
		}
		application.Apply(res.Config)
		logger.SetLevel(res.Config.LogLevel)
		return nil
	})

	// Record from the first watchdog tick on.
	stopJournal := startJournal(cfg, application.Bus(), logger)
	defer stopJournal()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer application.Stop()
	log.Println("overlaycat daemon started successfully")

	ipcServer, err := ipc.NewServer(application, logger.With("component", "ipc"))
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()
	log.Printf("IPC listening on %s", ipcServer.SocketPath())

	if cfg.Hotkeys.Reset != "" || cfg.Hotkeys.ShowAll != "" {
		handler, err := hotkeys.NewHandler(ctx, backend, application, logger.With("component", "hotkeys"))
		if err != nil {
			log.Printf("Warning: hotkeys disabled: %v", err)
		} else {
			if err := handler.Register(cfg.Hotkeys); err != nil {
				log.Printf("Warning: %v", err)
			}
			defer handler.Unregister()
		}
	}

	if cfg.ReconcileInterval > 0 {
		reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
			Interval: cfg.ReconcileInterval,
			Logger:   logger.With("component", "reconciler"),
		}, application)

		// Run an immediate pass to drop anything lost while starting up.
		reconciler.ReconcileNow(ctx)
		go reconciler.Run(ctx)
	}

	watcher, err := config.NewWatcher(path, config.DefaultWatchDebounce, func() error {
		log.Println("Config file changed, reloading...")
		return application.Reload(ctx)
	}, func(err error) {
		log.Printf("Config reload failed: %v", err)
	})
	if err != nil {
		log.Printf("Warning: config watching disabled: %v", err)
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			log.Println("Received SIGHUP, reloading config...")
			if err := application.Reload(ctx); err != nil {
				log.Printf("Config reload failed: %v", err)
				continue
			}
			log.Println("Config reloaded successfully")
		default:
			log.Printf("Received %s, shutting down...", sig)
			signal.Stop(sigCh)
			return 0
		}
	}
	return 0
}

// eventLooper is implemented by backends that need their event loop pumped.
type eventLooper interface {
	EventLoop()
}

type disconnecter interface {
	Disconnect()
}

// openBackend returns the configured windowing backend and a function that
// releases it.
func openBackend(cfg *config.Config) (platform.Backend, func(), error) {
	if cfg.Headless.Enabled {
		log.Printf("Running headless with %d simulated display(s)", len(cfg.Headless.Displays))
		return platform.NewHeadless(headlessDisplays(cfg.Headless.Displays)...), func() {}, nil
	}

	if cfg.XAuthority != "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}
	backend, err := platform.OpenNative(cfg.Display)
	if err != nil {
		return nil, nil, err
	}
	if looper, ok := backend.(eventLooper); ok {
		go looper.EventLoop()
	}
	release := func() {
		if d, ok := backend.(disconnecter); ok {
			d.Disconnect()
		}
	}
	return backend, release, nil
}

func headlessDisplays(in []config.HeadlessDisplay) []platform.Display {
	out := make([]platform.Display, 0, len(in))
	for i, d := range in {
		bounds := platform.Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
		out = append(out, platform.Display{ID: i + 1, Name: d.Name, Bounds: bounds, Usable: bounds})
	}
	return out
}

// startJournal records bus events when the journal is enabled. The returned
// function stops recording, flushes queued entries and closes the database.
func startJournal(cfg *config.Config, bus journal.Subscriber, logger *logging.Logger) func() {
	if !cfg.Journal.Enabled {
		return func() {}
	}
	recorder, closeJournal, err := openRecorder(cfg, logger)
	if err != nil {
		log.Printf("Warning: journal disabled: %v", err)
		return func() {}
	}
	recorder.Start(bus)
	return func() {
		recorder.Stop()
		closeJournal()
	}
}

func openRecorder(cfg *config.Config, logger *logging.Logger) (*journal.Recorder, func(), error) {
	path, err := cfg.JournalPath()
	if err != nil {
		return nil, nil, err
	}
	db, err := journal.Connect(path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Printf("Journal recording to %s", path)
	recorder := journal.NewRecorder(journal.NewRepository(db), cfg.Journal.RecordStatus, logger.With("component", "journal"))
	return recorder, func() { db.Close() }, nil
}
