package main

import (
	"fmt"
	"os"

	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/ipc"
	"github.com/1broseidon/overlaycat/internal/memwatch"
)

func runMonitors(args []string) int {
	fs := newFlagSet("monitors", "Usage: overlaycat monitors [--json]", "List connected monitors in slot order.")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	monitors, err := ipc.NewClient().ListMonitors()
	if err != nil {
		return fail(err)
	}
	if wantJSON(*jsonOut) {
		printJSON(os.Stdout, monitors)
		return 0
	}
	printMonitors(monitors)
	return 0
}

func printMonitors(monitors []display.Monitor) {
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "SLOT\tNAME\tSIZE\tPOSITION")
	for _, m := range monitors {
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%d,%d\n", m.Index, m.Name, m.Width, m.Height, m.X, m.Y)
	}
	tw.Flush()
}

func runCreate(args []string) int {
	fs := newFlagSet("create", "Usage: overlaycat create [--primary] <slot>",
		"Create an overlay window centered on monitor <slot>. Prints the window identifier.")
	primary := fs.Bool("primary", false, "Use the primary role (main_monitor_N)")
	if code, ok := parseFlags(fs, args, 1); !ok {
		return code
	}
	slot, err := parseSlot(fs.Arg(0))
	if err != nil {
		return fail(err)
	}

	id, err := ipc.NewClient().CreateWindow(slot, *primary)
	if err != nil {
		return fail(err)
	}
	fmt.Println(id)
	return 0
}

func runClose(args []string) int {
	fs := newFlagSet("close", "Usage: overlaycat close <id>",
		"Close an overlay window by identifier (e.g. secondary_monitor_1).")
	if code, ok := parseFlags(fs, args, 1); !ok {
		return code
	}
	if err := ipc.NewClient().CloseWindow(fs.Arg(0)); err != nil {
		return fail(err)
	}
	return 0
}

func runCloseMonitor(args []string) int {
	fs := newFlagSet("close-monitor", "Usage: overlaycat close-monitor <slot>",
		"Close the overlay window registered for monitor <slot>, if any.")
	if code, ok := parseFlags(fs, args, 1); !ok {
		return code
	}
	slot, err := parseSlot(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := ipc.NewClient().CloseMonitorWindow(slot); err != nil {
		return fail(err)
	}
	return 0
}

func runMoveMain(args []string) int {
	fs := newFlagSet("move-main", "Usage: overlaycat move-main <slot>",
		"Validate monitor <slot> and bring the main window to the front. The window is not moved.")
	if code, ok := parseFlags(fs, args, 1); !ok {
		return code
	}
	slot, err := parseSlot(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := ipc.NewClient().MoveMainWindow(slot); err != nil {
		return fail(err)
	}
	return 0
}

func runReset(args []string) int {
	fs := newFlagSet("reset", "Usage: overlaycat reset",
		"Close every overlay window, forget remembered positions and focus the main window.")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}
	if err := ipc.NewClient().ResetPositions(); err != nil {
		return fail(err)
	}
	return 0
}

func runList(args []string) int {
	fs := newFlagSet("list", "Usage: overlaycat list [--json]", "List registered overlay windows.")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	instances, err := ipc.NewClient().ListInstances()
	if err != nil {
		return fail(err)
	}
	if wantJSON(*jsonOut) {
		printJSON(os.Stdout, instances)
		return 0
	}
	if len(instances) == 0 {
		fmt.Println("no overlay windows")
		return 0
	}
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "ID\tSLOT\tMONITOR\tPOSITION\tPRIMARY")
	for _, inst := range instances {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d,%d\t%v\n", inst.ID, inst.MonitorIndex, inst.MonitorName, inst.X, inst.Y, inst.IsPrimary)
	}
	tw.Flush()
	return 0
}

func runShowAll(args []string) int {
	fs := newFlagSet("show-all", "Usage: overlaycat show-all [--json]",
		"Create an overlay on every connected monitor. Slot 0 gets the primary role.")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	ids, err := ipc.NewClient().ShowAll()
	if wantJSON(*jsonOut) {
		printJSON(os.Stdout, ids)
	} else {
		for _, id := range ids {
			fmt.Println(id)
		}
	}
	if err != nil {
		return fail(err)
	}
	return 0
}

func runMemory(args []string) int {
	usage := func() {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  overlaycat memory status [--json]")
		fmt.Fprintln(os.Stderr, "  overlaycat memory cleanup")
	}
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "status":
		fs := newFlagSet("status", "Usage: overlaycat memory status [--json]",
			"Sample the daemon's resident memory and compare it to the limit.")
		jsonOut := fs.Bool("json", false, "Output JSON")
		if code, ok := parseFlags(fs, args[1:], 0); !ok {
			return code
		}
		status, err := ipc.NewClient().GetMemoryStatus()
		if err != nil {
			return fail(err)
		}
		if wantJSON(*jsonOut) {
			printJSON(os.Stdout, status)
			return 0
		}
		printMemoryStatus(*status)
		return 0

	case "cleanup":
		fs := newFlagSet("cleanup", "Usage: overlaycat memory cleanup",
			"Force a garbage collection in the daemon and report current usage.")
		if code, ok := parseFlags(fs, args[1:], 0); !ok {
			return code
		}
		msg, err := ipc.NewClient().TriggerMemoryCleanup()
		if err != nil {
			return fail(err)
		}
		fmt.Println(msg)
		return 0

	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown memory command: %s\n\n", args[0])
		usage()
		return 2
	}
}

func printMemoryStatus(s memwatch.Status) {
	fmt.Printf("current_mb:       %d\n", s.CurrentMB)
	fmt.Printf("limit_mb:         %d\n", s.LimitMB)
	fmt.Printf("usage_percentage: %.2f\n", s.UsagePercentage)
	fmt.Printf("over_limit:       %v\n", s.IsOverLimit)
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "Usage: overlaycat status [--json]", "Show daemon status via IPC.")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		return fail(err)
	}
	if wantJSON(*jsonOut) {
		printJSON(os.Stdout, status)
		return 0
	}
	fmt.Printf("daemon_running:   %v\n", status.DaemonRunning)
	fmt.Printf("uptime_seconds:   %d\n", status.UptimeSeconds)
	fmt.Printf("instances:        %d\n", status.Instances)
	fmt.Printf("monitors:         %d\n", status.Monitors)
	fmt.Printf("watchdog_running: %v\n", status.WatchdogRunning)
	if status.LastMemory != nil {
		fmt.Printf("last_memory_mb:   %d/%d\n", status.LastMemory.CurrentMB, status.LastMemory.LimitMB)
	}
	return 0
}

func runReload(args []string) int {
	fs := newFlagSet("reload", "Usage: overlaycat reload", "Ask the daemon to reload its configuration.")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		return fail(err)
	}
	fmt.Println("config reloaded")
	return 0
}
