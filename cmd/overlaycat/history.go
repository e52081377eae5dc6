package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/1broseidon/overlaycat/internal/config"
	"github.com/1broseidon/overlaycat/internal/journal"
)

func runHistory(args []string) int {
	fs := newFlagSet("history", "Usage: overlaycat history [--event NAME] [--since DURATION] [--limit N] [--counts] [--json]",
		"Show journaled lifecycle and memory events, newest first. Requires journal.enabled.")
	event := fs.String("event", "", "Only show events with this name (e.g. memory-warning)")
	since := fs.Duration("since", 0, "Only show events newer than this (e.g. 1h)")
	limit := fs.Int("limit", 50, "Maximum number of entries")
	counts := fs.Bool("counts", false, "Show per-event totals instead of entries")
	prune := fs.Duration("prune", 0, "Delete entries older than this and exit")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	path, err := cfg.JournalPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "no journal at %s (enable journal.enabled in the config)\n", path)
		return 1
	}

	db, err := journal.Connect(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	repo := journal.NewRepository(db)

	if *prune > 0 {
		n, err := repo.DeleteBefore(time.Now().Add(-*prune))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("deleted %d entries\n", n)
		return 0
	}

	if *counts {
		totals, err := repo.CountByEvent()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if wantJSON(*jsonOut) {
			printJSON(os.Stdout, totals)
			return 0
		}
		names := make([]string, 0, len(totals))
		for name := range totals {
			names = append(names, name)
		}
		sort.Strings(names)
		tw := newTable(os.Stdout)
		fmt.Fprintln(tw, "EVENT\tCOUNT")
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%d\n", name, totals[name])
		}
		tw.Flush()
		return 0
	}

	q := journal.Query{Event: *event, Limit: *limit}
	if *since > 0 {
		q.Since = time.Now().Add(-*since)
	}
	entries, err := repo.Recent(q)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*jsonOut) {
		printJSON(os.Stdout, entries)
		return 0
	}
	printEntries(entries)
	return 0
}

func printEntries(entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Println("no entries")
		return
	}
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "TIME\tEVENT\tWINDOW\tSLOT\tMEMORY")
	for _, e := range entries {
		slot := "-"
		if e.MonitorIndex != nil {
			slot = fmt.Sprintf("%d", *e.MonitorIndex)
		}
		window := e.WindowID
		if window == "" {
			window = "-"
		}
		memory := "-"
		if e.LimitMB > 0 {
			memory = fmt.Sprintf("%d/%dMB", e.CurrentMB, e.LimitMB)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Event, window, slot, memory)
	}
	tw.Flush()
}
