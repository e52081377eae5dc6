package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/overlaycat/internal/ipc"
)

func runEvents(args []string) int {
	fs := newFlagSet("events", "Usage: overlaycat events [--json] [EVENT...]",
		"Stream live events from the daemon until interrupted. With no EVENT names, every event is shown.")
	jsonOut := fs.Bool("json", false, "Output one JSON object per line")
	if code, ok := parseFlags(fs, args, -1); !ok {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asJSON := wantJSON(*jsonOut)
	enc := json.NewEncoder(os.Stdout)
	err := ipc.NewClient().Subscribe(ctx, fs.Args(), func(ev ipc.StreamEvent) {
		if asJSON {
			enc.Encode(ev)
			return
		}
		fmt.Printf("%s  %-16s %s\n", ev.Time.Local().Format(time.TimeOnly), ev.Name, string(ev.Payload))
	})
	if err != nil {
		return fail(err)
	}
	return 0
}
