package main

import (
	"fmt"
	"os"

	"github.com/1broseidon/overlaycat/internal/ipc"
	"github.com/1broseidon/overlaycat/internal/tui"
)

func runTUI(args []string) int {
	fs := newFlagSet("tui", "Usage: overlaycat tui", "Open the interactive dashboard for the running daemon.")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}
	if err := tui.Run(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
