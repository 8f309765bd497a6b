// Command heos is a command line client for HEOS devices. It opens the CLI
// protocol connection on port 1255 and offers an interactive shell, one-shot
// commands, a player listing and an event monitor.
//
// Usage:
//
//	heos --host 192.168.1.20                 Start the interactive shell
//	heos send player/get_volume pid=1        Send one command
//	heos players                             List the players in the system
//	heos watch                               Print device events until interrupted
//
// Settings are read from heos.yaml (current directory or
// $HOME/.config/heos), HEOS_* environment variables and flags.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}
